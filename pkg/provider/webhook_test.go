package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"eventType":"transcription.completed","meetingId":"tr-9"}`)
	secret := "whsec_test"
	sig := SignPayload(body, secret)

	tests := []struct {
		name   string
		body   []byte
		header string
		secret string
		want   bool
	}{
		{"valid", body, sig, secret, true},
		{"valid with sha256 prefix", body, "sha256=" + sig, secret, true},
		{"wrong secret", body, sig, "other-secret", false},
		{"tampered body", []byte(`{"meetingId":"tr-evil"}`), sig, secret, false},
		{"missing signature", body, "", secret, false},
		{"missing secret", body, sig, "", false},
		{"malformed hex", body, "not-hex!", secret, false},
		{"truncated signature", body, sig[:16], secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.body, tt.header, tt.secret))
		})
	}
}

func TestParseWebhookEvent(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{"eventType":"transcription.completed","meetingId":"tr-42"}`))
	require.NoError(t, err)
	assert.Equal(t, WebhookEventTranscriptionCompleted, ev.EventType)
	assert.Equal(t, "tr-42", ev.TranscriptID)

	// Unknown event types parse fine; filtering happens upstream.
	ev, err = ParseWebhookEvent([]byte(`{"eventType":"recording.started","meetingId":"tr-43"}`))
	require.NoError(t, err)
	assert.Equal(t, "recording.started", ev.EventType)

	_, err = ParseWebhookEvent([]byte(`{"eventType":"transcription.completed"}`))
	require.Error(t, err)

	_, err = ParseWebhookEvent([]byte(`not json`))
	require.Error(t, err)
}
