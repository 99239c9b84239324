package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ridgelineco/coachsync/pkg/buildinfo"
)

// MaxListLimit is the provider's page-size cap for transcript listings.
const MaxListLimit = 50

// DefaultAPIURL is the provider's GraphQL endpoint.
const DefaultAPIURL = "https://api.scribeline.example/graphql"

// SourceName tags items and chunks produced from this provider's transcripts.
const SourceName = "scribeline"

// ProviderError is returned for non-success HTTP status codes and
// GraphQL-level error payloads.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

// Client talks to the transcription provider's GraphQL API. One Client is
// bound to one credential's API key.
type Client struct {
	apiURL string
	apiKey string
	http   *http.Client
}

// NewClient creates a provider client for the given API key.
func NewClient(apiURL, apiKey string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

const transcriptQuery = `
query Transcript($id: String!) {
  transcript(id: $id) {
    id
    title
    date
    duration
    organizer_email
    host_email
    summary { overview }
    sentences { speaker_name text }
    meeting_attendees { email displayName }
  }
}`

const listQuery = `
query Transcripts($limit: Int!) {
  transcripts(limit: $limit) {
    id
    title
    date
    organizer_email
  }
}`

// graphqlRequest is the standard GraphQL POST body.
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// graphqlError is one entry of a GraphQL error payload.
type graphqlError struct {
	Message string `json:"message"`
}

// transcriptPayload mirrors the provider's transcript shape; dates arrive as
// epoch milliseconds and the summary as a nested object.
type transcriptPayload struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Date           int64      `json:"date"`
	Duration       float64    `json:"duration"`
	OrganizerEmail string     `json:"organizer_email"`
	HostEmail      string     `json:"host_email"`
	Summary        *struct {
		Overview string `json:"overview"`
	} `json:"summary"`
	Sentences []Sentence `json:"sentences"`
	Attendees []Attendee `json:"meeting_attendees"`
}

func (p *transcriptPayload) toRawTranscript() *RawTranscript {
	out := &RawTranscript{
		ID:              p.ID,
		Title:           p.Title,
		Date:            time.UnixMilli(p.Date).UTC(),
		DurationMinutes: p.Duration,
		OrganizerEmail:  p.OrganizerEmail,
		HostEmail:       p.HostEmail,
		Sentences:       p.Sentences,
		Attendees:       p.Attendees,
	}
	if p.Summary != nil {
		out.Summary = p.Summary.Overview
	}
	return out
}

// FetchTranscript fetches one transcript by its external id.
func (c *Client) FetchTranscript(ctx context.Context, externalID string) (*RawTranscript, error) {
	var data struct {
		Transcript *transcriptPayload `json:"transcript"`
	}
	if err := c.query(ctx, transcriptQuery, map[string]interface{}{"id": externalID}, &data); err != nil {
		return nil, err
	}
	if data.Transcript == nil {
		return nil, &ProviderError{Message: fmt.Sprintf("transcript %s not found", externalID)}
	}
	return data.Transcript.toRawTranscript(), nil
}

// ListRecent lists the most recent transcripts visible to this credential,
// capped at MaxListLimit.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]TranscriptSummary, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	var data struct {
		Transcripts []struct {
			ID             string `json:"id"`
			Title          string `json:"title"`
			Date           int64  `json:"date"`
			OrganizerEmail string `json:"organizer_email"`
		} `json:"transcripts"`
	}
	if err := c.query(ctx, listQuery, map[string]interface{}{"limit": limit}, &data); err != nil {
		return nil, err
	}

	out := make([]TranscriptSummary, 0, len(data.Transcripts))
	for _, t := range data.Transcripts {
		out = append(out, TranscriptSummary{
			ID:             t.ID,
			Title:          t.Title,
			Date:           time.UnixMilli(t.Date).UTC(),
			OrganizerEmail: t.OrganizerEmail,
		})
	}
	return out, nil
}

// query executes a GraphQL request and decodes the data payload into out.
func (c *Client) query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", buildinfo.UserAgent("coachsync"))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &ProviderError{Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return &ProviderError{Message: "graphql: " + strings.Join(msgs, "; ")}
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &ProviderError{Message: fmt.Sprintf("malformed data payload: %v", err)}
	}
	return nil
}
