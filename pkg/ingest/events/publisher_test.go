package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ridgelineco/coachsync/pkg/ingest"
	"github.com/ridgelineco/coachsync/pkg/logging"
)

func TestBaseEvent(t *testing.T) {
	event := NewBaseEvent("test.event")

	if event.EventType != "test.event" {
		t.Errorf("unexpected event type: %s", event.EventType)
	}
	if event.Source != "coachsync" {
		t.Errorf("unexpected source: %s", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("unexpected version: %s", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}

func TestTranscriptIngestedEvent(t *testing.T) {
	event := TranscriptIngestedEvent{
		BaseEvent:       NewBaseEvent("transcript.ingested"),
		ExternalID:      "tr-abc",
		DataItemID:      "tr-1234abcd",
		Title:           "Jake Krask and Ryan Session Jan 7 2026",
		SessionType:     "client_coaching",
		MatchedVia:      "email",
		ChunksProcessed: 3,
		ChunksTotal:     3,
	}

	if event.EventType != "transcript.ingested" {
		t.Errorf("unexpected event type: %s", event.EventType)
	}
	if event.ChunksProcessed != event.ChunksTotal {
		t.Errorf("unexpected chunk counts: %d/%d", event.ChunksProcessed, event.ChunksTotal)
	}
}

func TestSyncRunCompletedEvent_Duration(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	end := time.Now()

	event := SyncRunCompletedEvent{
		StartedAt:   start,
		CompletedAt: end,
		Credentials: 2,
		SyncedCount: 5,
	}
	event.DurationSeconds = event.CompletedAt.Sub(event.StartedAt).Seconds()

	if event.DurationSeconds < 3600 {
		t.Errorf("unexpected duration: %f", event.DurationSeconds)
	}
}

func TestDispatcher_ChatNotification(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode chat payload: %v", err)
		}
	}))
	defer srv.Close()

	d := NewDispatcher(nil, srv.URL, logging.NewNopLogger())
	d.TranscriptQueued(context.Background(), "tr-77", "Private Debrief")

	if got["text"] == "" {
		t.Fatal("expected a chat message")
	}
}

func TestDispatcher_NoSinksIsSafe(t *testing.T) {
	d := NewDispatcher(nil, "", logging.NewNopLogger())

	d.TranscriptIngested(context.Background(), &ingest.Outcome{ExternalID: "tr-1"}, "Title")
	d.TranscriptQueued(context.Background(), "tr-2", "Title")
	d.SyncRunCompleted(context.Background(), &ingest.RunReport{})
}

func TestDispatcher_ChatFailureSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, srv.URL, logging.NewNopLogger())
	d.SyncRunCompleted(context.Background(), &ingest.RunReport{})
}
