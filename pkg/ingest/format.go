// Package ingest orchestrates the transcript pipeline: fetch, dedup,
// classify, resolve identities, chunk, embed, persist, and record the
// outcome in the sync ledger.
package ingest

import (
	"fmt"
	"strings"

	"github.com/ridgelineco/coachsync/pkg/provider"
)

// FormattedTranscript is the processed form of a raw transcript, ready for
// classification and chunking. It is stored as JSON on pending-queue entries.
type FormattedTranscript struct {
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Format renders the provider transcript into speaker-attributed text and
// fills the metadata bag. A blank provider title gets a synthetic
// "Coaching Session <date>" title so downstream records are never unnamed.
func Format(raw *provider.RawTranscript) *FormattedTranscript {
	var b strings.Builder
	var lastSpeaker string
	for _, s := range raw.Sentences {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(s.Speaker)
		if speaker == "" {
			speaker = "Unknown"
		}
		// Consecutive sentences by the same speaker share one attribution.
		if speaker != lastSpeaker {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(speaker)
			b.WriteString(": ")
			lastSpeaker = speaker
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = fmt.Sprintf("Coaching Session %s", raw.Date.Format("2006-01-02"))
	}

	meta := map[string]string{
		"source":           provider.SourceName,
		"external_id":      raw.ID,
		"organizer_email":  raw.OrganizerEmail,
		"duration_minutes": fmt.Sprintf("%.1f", raw.DurationMinutes),
		"participants":     strings.Join(raw.ParticipantNames(), ", "),
	}
	if raw.HostEmail != "" {
		meta["host_email"] = raw.HostEmail
	}
	if raw.Summary != "" {
		meta["summary"] = raw.Summary
	}

	return &FormattedTranscript{
		Title:    title,
		Text:     b.String(),
		Metadata: meta,
	}
}
