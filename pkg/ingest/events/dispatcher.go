package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ridgelineco/coachsync/pkg/ingest"
	"github.com/ridgelineco/coachsync/pkg/logging"
)

// Dispatcher consumes pipeline milestones and forwards them to Redis and,
// optionally, a chat-ops webhook. It implements ingest.Notifier. Both sinks
// are fire-and-forget: delivery failures are logged, never returned.
type Dispatcher struct {
	publisher  *Publisher
	webhookURL string
	http       *http.Client
	logger     logging.Logger
}

// NewDispatcher creates a dispatcher. Either sink may be absent: a nil
// publisher skips Redis, an empty webhookURL skips chat notifications.
func NewDispatcher(publisher *Publisher, webhookURL string, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		publisher:  publisher,
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With(logging.F("component", "event_dispatcher")),
	}
}

var _ ingest.Notifier = (*Dispatcher)(nil)

// TranscriptIngested forwards a persisted-transcript milestone.
func (d *Dispatcher) TranscriptIngested(ctx context.Context, outcome *ingest.Outcome, title string) {
	if d.publisher != nil {
		_ = d.publisher.PublishTranscriptIngested(ctx, TranscriptIngestedEvent{
			ExternalID:      outcome.ExternalID,
			DataItemID:      outcome.DataItemID,
			Title:           title,
			SessionType:     string(outcome.SessionType),
			MatchedVia:      string(outcome.MatchedVia),
			ChunksProcessed: outcome.ChunksProcessed,
			ChunksTotal:     outcome.ChunksTotal,
		})
	}
	d.notifyChat(ctx, fmt.Sprintf("Ingested %q as %s (%s, %d/%d chunks)",
		title, outcome.DataItemID, outcome.SessionType,
		outcome.ChunksProcessed, outcome.ChunksTotal))
}

// TranscriptQueued forwards a pending-queue milestone.
func (d *Dispatcher) TranscriptQueued(ctx context.Context, externalID, title string) {
	if d.publisher != nil {
		_ = d.publisher.PublishTranscriptQueued(ctx, TranscriptQueuedEvent{
			ExternalID: externalID,
			Title:      title,
		})
	}
	d.notifyChat(ctx, fmt.Sprintf("Transcript %q (%s) needs a coach assignment", title, externalID))
}

// SyncRunCompleted forwards a run summary.
func (d *Dispatcher) SyncRunCompleted(ctx context.Context, report *ingest.RunReport) {
	synced, skipped, queued, failed := report.Totals()
	if d.publisher != nil {
		_ = d.publisher.PublishSyncRunCompleted(ctx, SyncRunCompletedEvent{
			StartedAt:    report.StartedAt,
			CompletedAt:  report.CompletedAt,
			Credentials:  len(report.Credentials),
			SyncedCount:  synced,
			SkippedCount: skipped,
			QueuedCount:  queued,
			FailedCount:  failed,
		})
	}
	d.notifyChat(ctx, fmt.Sprintf("Sync run complete: %d synced, %d skipped, %d queued, %d failed",
		synced, skipped, queued, failed))
}

// notifyChat posts a plain-text message to the chat-ops webhook.
func (d *Dispatcher) notifyChat(ctx context.Context, text string) {
	if d.webhookURL == "" {
		return
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		d.logger.Warn("chat notification encode failed", logging.Err(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("chat notification request failed", logging.Err(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		d.logger.Warn("chat notification delivery failed", logging.Err(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("chat notification rejected",
			logging.F("status", resp.StatusCode))
	}
}
