// Package events publishes transcript pipeline milestones to Redis and
// forwards them to a chat-ops webhook. Delivery is best-effort: a failed
// publish is logged and never propagated back into the pipeline.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ridgelineco/coachsync/pkg/logging"
)

// Redis channels for pipeline events.
const (
	ChannelTranscriptIngested = "events.transcript.ingested"
	ChannelTranscriptQueued   = "events.transcript.queued"
	ChannelSyncRunCompleted   = "events.sync_run.completed"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with sensible defaults.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "coachsync",
		Version:   "1.0",
	}
}

// TranscriptIngestedEvent is published when a transcript is persisted.
type TranscriptIngestedEvent struct {
	BaseEvent

	ExternalID      string `json:"external_id"`
	DataItemID      string `json:"data_item_id"`
	Title           string `json:"title"`
	SessionType     string `json:"session_type"`
	MatchedVia      string `json:"matched_via"`
	ChunksProcessed int    `json:"chunks_processed"`
	ChunksTotal     int    `json:"chunks_total"`
}

// TranscriptQueuedEvent is published when a transcript enters the
// pending-assignment queue.
type TranscriptQueuedEvent struct {
	BaseEvent

	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
}

// SyncRunCompletedEvent is published after a full multi-credential run.
type SyncRunCompletedEvent struct {
	BaseEvent

	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Credentials     int       `json:"credentials"`
	SyncedCount     int       `json:"synced_count"`
	SkippedCount    int       `json:"skipped_count"`
	QueuedCount     int       `json:"queued_count"`
	FailedCount     int       `json:"failed_count"`
}

// Publisher publishes pipeline events to Redis.
type Publisher struct {
	client *redis.Client
	logger logging.Logger
}

// PublisherConfig holds Redis connection configuration.
type PublisherConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *redis.Client, logger logging.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.With(logging.F("component", "event_publisher")),
	}
}

// NewPublisherFromConfig creates a publisher with a new Redis connection.
func NewPublisherFromConfig(cfg PublisherConfig, logger logging.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPublisher(client, logger), nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// PublishTranscriptIngested publishes a persisted-transcript event.
func (p *Publisher) PublishTranscriptIngested(ctx context.Context, event TranscriptIngestedEvent) error {
	event.BaseEvent = NewBaseEvent("transcript.ingested")
	return p.publish(ctx, ChannelTranscriptIngested, event)
}

// PublishTranscriptQueued publishes a pending-queue event.
func (p *Publisher) PublishTranscriptQueued(ctx context.Context, event TranscriptQueuedEvent) error {
	event.BaseEvent = NewBaseEvent("transcript.queued")
	return p.publish(ctx, ChannelTranscriptQueued, event)
}

// PublishSyncRunCompleted publishes a run summary event.
func (p *Publisher) PublishSyncRunCompleted(ctx context.Context, event SyncRunCompletedEvent) error {
	event.BaseEvent = NewBaseEvent("sync_run.completed")
	event.DurationSeconds = event.CompletedAt.Sub(event.StartedAt).Seconds()
	return p.publish(ctx, ChannelSyncRunCompleted, event)
}

// publish serializes and publishes an event to Redis.
func (p *Publisher) publish(ctx context.Context, channel string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", channel))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	p.logger.Debug("Event published", logging.F("channel", channel))
	return nil
}
