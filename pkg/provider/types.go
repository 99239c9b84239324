// Package provider wraps the external meeting-transcription service: a
// GraphQL query API for fetching transcripts plus signed webhook
// notifications for transcript-ready events.
package provider

import "time"

// Sentence is one speaker-attributed utterance.
type Sentence struct {
	Speaker string `json:"speaker_name"`
	Text    string `json:"text"`
}

// Attendee is one meeting participant as reported by the provider.
type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// RawTranscript is the provider's representation of one recorded session.
// It exists only transiently during an ingestion pass and is never persisted
// as-is.
type RawTranscript struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Date            time.Time  `json:"date"`
	DurationMinutes float64    `json:"duration"`
	OrganizerEmail  string     `json:"organizer_email"`
	HostEmail       string     `json:"host_email"`
	Sentences       []Sentence `json:"sentences"`
	Attendees       []Attendee `json:"meeting_attendees"`
	Summary         string     `json:"summary"`
}

// AttendeeEmails returns the attendee email list in provider order.
func (t *RawTranscript) AttendeeEmails() []string {
	out := make([]string, 0, len(t.Attendees))
	for _, a := range t.Attendees {
		if a.Email != "" {
			out = append(out, a.Email)
		}
	}
	return out
}

// ParticipantNames returns the attendee display names in provider order.
func (t *RawTranscript) ParticipantNames() []string {
	out := make([]string, 0, len(t.Attendees))
	for _, a := range t.Attendees {
		if a.DisplayName != "" {
			out = append(out, a.DisplayName)
		}
	}
	return out
}

// TranscriptSummary is the lightweight listing record used for poll-mode
// discovery.
type TranscriptSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	OrganizerEmail string    `json:"organizer_email"`
}

// WebhookEventTranscriptionCompleted is the only webhook event type that
// triggers ingestion; all others are acknowledged and discarded.
const WebhookEventTranscriptionCompleted = "transcription.completed"

// WebhookEvent is the payload the provider posts to the webhook endpoint.
type WebhookEvent struct {
	EventType    string `json:"eventType"`
	TranscriptID string `json:"meetingId"`
}
