package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelineco/coachsync/pkg/classifier"
	"github.com/ridgelineco/coachsync/pkg/directory"
	"github.com/ridgelineco/coachsync/pkg/embedding"
	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/identity"
	"github.com/ridgelineco/coachsync/pkg/ledger"
	"github.com/ridgelineco/coachsync/pkg/logging"
	"github.com/ridgelineco/coachsync/pkg/pending"
	"github.com/ridgelineco/coachsync/pkg/provider"
	"github.com/ridgelineco/coachsync/pkg/store"
)

// ---------------------------------------------------------------------------
// stubs

type stubLedger struct {
	mu      sync.Mutex
	entries map[string]*ledger.Entry
}

func newStubLedger() *stubLedger {
	return &stubLedger{entries: make(map[string]*ledger.Entry)}
}

func (s *stubLedger) Get(_ context.Context, externalID string) (*ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[externalID]
	if !ok {
		return nil, cserrors.ErrNotFound
	}
	return e, nil
}

func (s *stubLedger) Record(_ context.Context, entry *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ExternalID]; ok {
		return cserrors.ErrConflict
	}
	s.entries[entry.ExternalID] = entry
	return nil
}

func (s *stubLedger) MarkSynced(_ context.Context, externalID, dataItemID, sessionType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[externalID]
	if !ok || e.Status == ledger.StatusSynced {
		return nil
	}
	e.Status = ledger.StatusSynced
	e.DataItemID = dataItemID
	e.SessionType = sessionType
	e.Reason = ""
	return nil
}

type stubWriter struct {
	items         []*store.DataItem
	chunks        []*store.DataChunk
	failPositions map[int]bool
	failItems     bool
}

func (s *stubWriter) CreateItem(_ context.Context, item *store.DataItem) error {
	if s.failItems {
		return fmt.Errorf("insert data item: connection refused")
	}
	if item.ID == "" {
		item.ID = fmt.Sprintf("tr-item%04d", len(s.items))
	}
	s.items = append(s.items, item)
	return nil
}

func (s *stubWriter) CreateChunk(_ context.Context, chunk *store.DataChunk) error {
	if s.failPositions[chunk.Position] {
		return fmt.Errorf("insert data chunk %d: connection reset", chunk.Position)
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

type stubQueue struct {
	entries map[string]*pending.Entry
}

func newStubQueue() *stubQueue {
	return &stubQueue{entries: make(map[string]*pending.Entry)}
}

func (s *stubQueue) Enqueue(_ context.Context, entry *pending.Entry) error {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("pend-%04d", len(s.entries))
	}
	if entry.Status == "" {
		entry.Status = pending.StatusPending
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubQueue) Get(_ context.Context, id string) (*pending.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, cserrors.ErrNotFound
	}
	return e, nil
}

func (s *stubQueue) List(_ context.Context, includeProcessed bool) ([]pending.Entry, error) {
	var out []pending.Entry
	for _, e := range s.entries {
		if !includeProcessed && e.Status != pending.StatusPending {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *stubQueue) MarkProcessed(_ context.Context, id, coachID, clientID, dataItemID string) error {
	e, ok := s.entries[id]
	if !ok {
		return cserrors.ErrNotFound
	}
	e.Status = pending.StatusProcessed
	e.AssignedCoachID = coachID
	e.AssignedClientID = clientID
	e.DataItemID = dataItemID
	return nil
}

type stubEmbedder struct {
	failTexts []string
	calls     int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		for _, bad := range s.failTexts {
			if strings.Contains(text, bad) {
				return nil, fmt.Errorf("embed api status 500: internal")
			}
		}
		out[i] = []float32{float32(len(text)), 0.5}
	}
	return out, nil
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

var _ embedding.Embedder = (*stubEmbedder)(nil)

type stubSource struct {
	transcripts map[string]*provider.RawTranscript
	listErr     error
}

func (s *stubSource) FetchTranscript(_ context.Context, externalID string) (*provider.RawTranscript, error) {
	t, ok := s.transcripts[externalID]
	if !ok {
		return nil, &provider.ProviderError{Message: fmt.Sprintf("transcript %s not found", externalID)}
	}
	return t, nil
}

func (s *stubSource) ListRecent(_ context.Context, limit int) ([]provider.TranscriptSummary, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []provider.TranscriptSummary
	for id, t := range s.transcripts {
		out = append(out, provider.TranscriptSummary{ID: id, Title: t.Title, Date: t.Date})
	}
	return out, nil
}

type stubDirectory struct {
	coachesByEmail map[string]*directory.Coach
	coachesByID    map[string]*directory.Coach
	clientsByEmail map[string]*directory.Client
	clientsByID    map[string]*directory.Client
}

func (s *stubDirectory) CoachByEmail(_ context.Context, email string) (*directory.Coach, error) {
	if c, ok := s.coachesByEmail[strings.ToLower(email)]; ok {
		return c, nil
	}
	return nil, cserrors.ErrNotFound
}

func (s *stubDirectory) CoachByID(_ context.Context, id string) (*directory.Coach, error) {
	if c, ok := s.coachesByID[id]; ok {
		return c, nil
	}
	return nil, cserrors.ErrNotFound
}

func (s *stubDirectory) ClientByEmail(_ context.Context, email string) (*directory.Client, error) {
	if c, ok := s.clientsByEmail[strings.ToLower(email)]; ok {
		return c, nil
	}
	return nil, cserrors.ErrNotFound
}

func (s *stubDirectory) ClientByID(_ context.Context, id string) (*directory.Client, error) {
	if c, ok := s.clientsByID[id]; ok {
		return c, nil
	}
	return nil, cserrors.ErrNotFound
}

type recordingNotifier struct {
	ingested []string
	queued   []string
	runs     int
}

func (r *recordingNotifier) TranscriptIngested(_ context.Context, o *Outcome, _ string) {
	r.ingested = append(r.ingested, o.ExternalID)
}

func (r *recordingNotifier) TranscriptQueued(_ context.Context, externalID, _ string) {
	r.queued = append(r.queued, externalID)
}

func (r *recordingNotifier) SyncRunCompleted(_ context.Context, _ *RunReport) {
	r.runs++
}

// ---------------------------------------------------------------------------
// fixtures

var (
	coachAvery = &directory.Coach{ID: "coach-avery", Name: "Avery Quinn", Email: "avery@ridgeline.coach"}
	clientRyan = &directory.Client{
		ID:             "client-ryan",
		Name:           "Ryan Holt",
		Email:          "ryan@acme.example",
		OrganizationID: "org-acme",
		PrimaryCoachID: "coach-avery",
	}
)

func newDirectoryStub() *stubDirectory {
	return &stubDirectory{
		coachesByEmail: map[string]*directory.Coach{"avery@ridgeline.coach": coachAvery},
		coachesByID:    map[string]*directory.Coach{"coach-avery": coachAvery},
		clientsByEmail: map[string]*directory.Client{"ryan@acme.example": clientRyan},
		clientsByID:    map[string]*directory.Client{"client-ryan": clientRyan},
	}
}

func coachingTranscript(id string) *provider.RawTranscript {
	var sentences []provider.Sentence
	for i := 0; i < 400; i++ {
		sentences = append(sentences, provider.Sentence{
			Speaker: "Avery",
			Text:    "Let us talk about the quarterly goals you set last time.",
		})
	}
	return &provider.RawTranscript{
		ID:             id,
		Title:          "Jake Krask and Ryan Session Jan 7 2026",
		Date:           time.Date(2026, 1, 7, 15, 0, 0, 0, time.UTC),
		OrganizerEmail: "avery@ridgeline.coach",
		Sentences:      sentences,
		Attendees: []provider.Attendee{
			{Email: "avery@ridgeline.coach", DisplayName: "Avery Quinn"},
			{Email: "ryan@acme.example", DisplayName: "Ryan Holt"},
		},
	}
}

func strangerTranscript(id string) *provider.RawTranscript {
	return &provider.RawTranscript{
		ID:              id,
		Title:           "Private Debrief",
		Date:            time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 25.5,
		Summary:         "Short planning debrief.",
		OrganizerEmail:  "nobody@nowhere.example",
		Sentences: []provider.Sentence{
			{Speaker: "Someone", Text: "Quick private note about next steps."},
		},
		Attendees: []provider.Attendee{
			{Email: "nobody@nowhere.example", DisplayName: "Someone"},
		},
	}
}

type testHarness struct {
	orch     *Orchestrator
	ledger   *stubLedger
	writer   *stubWriter
	queue    *stubQueue
	embedder *stubEmbedder
	notifier *recordingNotifier
	dir      *stubDirectory
}

func newHarness() *testHarness {
	h := &testHarness{
		ledger:   newStubLedger(),
		writer:   &stubWriter{},
		queue:    newStubQueue(),
		embedder: &stubEmbedder{},
		notifier: &recordingNotifier{},
		dir:      newDirectoryStub(),
	}
	h.orch = NewOrchestrator(OrchestratorConfig{
		Ledger:   h.ledger,
		Writer:   h.writer,
		Queue:    h.queue,
		Resolver: identity.NewResolver(h.dir, logging.NewNopLogger()),
		Embedder: h.embedder,
		Notifier: h.notifier,
		Logger:   logging.NewNopLogger(),
	})
	return h
}

// ---------------------------------------------------------------------------
// tests

func TestProcessTranscript_FullPath(t *testing.T) {
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-100": coachingTranscript("tr-100"),
	}}

	outcome := h.orch.ProcessTranscript(context.Background(), source, Credential{ID: "cred-1"}, "tr-100")

	assert.Equal(t, OutcomeSynced, outcome.Status)
	assert.Equal(t, classifier.SessionClientCoaching, outcome.SessionType)
	assert.Equal(t, identity.MatchedViaEmail, outcome.MatchedVia)
	assert.Greater(t, outcome.ChunksTotal, 1)
	assert.Equal(t, outcome.ChunksTotal, outcome.ChunksProcessed)

	require.Len(t, h.writer.items, 1)
	item := h.writer.items[0]
	assert.Equal(t, "coach-avery", item.CoachID)
	assert.Equal(t, "client-ryan", item.ClientID)
	assert.Equal(t, "org-acme", item.OrganizationID)
	assert.Equal(t, string(classifier.SessionClientCoaching), item.Metadata["session_type"])
	assert.Equal(t, provider.SourceName, item.Metadata["source"])

	assert.Len(t, h.writer.chunks, outcome.ChunksTotal)
	chunk := h.writer.chunks[0]
	assert.Equal(t, provider.SourceName, chunk.Metadata["source"])
	assert.Equal(t, "tr-100", chunk.Metadata["external_id"])

	entry, err := h.ledger.Get(context.Background(), "tr-100")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSynced, entry.Status)
	assert.Equal(t, item.ID, entry.DataItemID)

	assert.Equal(t, []string{"tr-100"}, h.notifier.ingested)
}

func TestProcessTranscript_DuplicateSkips(t *testing.T) {
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-100": coachingTranscript("tr-100"),
	}}

	first := h.orch.ProcessTranscript(context.Background(), source, Credential{}, "tr-100")
	require.Equal(t, OutcomeSynced, first.Status)

	second := h.orch.ProcessTranscript(context.Background(), source, Credential{}, "tr-100")
	assert.Equal(t, OutcomeSkipped, second.Status)
	assert.Equal(t, ReasonDuplicate, second.Reason)
	assert.Len(t, h.writer.items, 1, "no second DataItem for the same external id")
}

func TestProcessTranscript_UnresolvedQueues(t *testing.T) {
	// Scenario: zero matches and no fallback coach.
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-200": strangerTranscript("tr-200"),
	}}

	outcome := h.orch.ProcessTranscript(context.Background(), source, Credential{ID: "cred-1"}, "tr-200")

	assert.Equal(t, OutcomeQueued, outcome.Status)
	assert.Empty(t, h.writer.items, "no DataItem for an unresolved transcript")

	entries, err := h.queue.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pending.StatusPending, entries[0].Status)
	assert.Equal(t, "tr-200", entries[0].ExternalID)
	assert.NotEmpty(t, entries[0].Payload)
	assert.Contains(t, entries[0].UnmatchedEmails, "nobody@nowhere.example")

	entry, err := h.ledger.Get(context.Background(), "tr-200")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSkipped, entry.Status)
	assert.Contains(t, entry.Reason, "no_coach_match")

	assert.Equal(t, []string{"tr-200"}, h.notifier.queued)
}

func TestProcessTranscript_CredentialOwnerFallback(t *testing.T) {
	// Scenario: no participant matches, but the credential names an owner.
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-300": strangerTranscript("tr-300"),
	}}

	outcome := h.orch.ProcessTranscript(context.Background(), source,
		Credential{ID: "cred-1", OwnerCoachID: "coach-avery"}, "tr-300")

	assert.Equal(t, OutcomeSynced, outcome.Status)
	assert.Equal(t, identity.MatchedViaCredentialOwner, outcome.MatchedVia)
	require.Len(t, h.writer.items, 1)
	assert.Equal(t, "coach-avery", h.writer.items[0].CoachID)
	assert.Empty(t, h.writer.items[0].ClientID)
}

func TestProcessTranscript_UntaggedStillIngests(t *testing.T) {
	// Scenario: no keyword match and no client match, but a coach email.
	h := newHarness()
	raw := strangerTranscript("tr-400")
	raw.Title = "New FS Thing Weekly"
	raw.OrganizerEmail = "avery@ridgeline.coach"
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{"tr-400": raw}}

	outcome := h.orch.ProcessTranscript(context.Background(), source, Credential{}, "tr-400")

	assert.Equal(t, OutcomeSynced, outcome.Status)
	assert.Equal(t, classifier.SessionUntagged, outcome.SessionType)
	require.Len(t, h.writer.items, 1)
	assert.Equal(t, string(classifier.SessionUntagged), h.writer.items[0].Metadata["session_type"])
}

func TestProcessTranscript_FetchFailureRecordsFailedLedger(t *testing.T) {
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{}}

	outcome := h.orch.ProcessTranscript(context.Background(), source, Credential{}, "tr-missing")

	assert.Equal(t, OutcomeFailed, outcome.Status)
	require.Error(t, outcome.Err)

	entry, err := h.ledger.Get(context.Background(), "tr-missing")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFailed, entry.Status)
}

func TestProcessTranscript_FailedEntryIsRetryable(t *testing.T) {
	// A fetch failure must not permanently block the external id: a later
	// attempt that can see the transcript ingests it and promotes the
	// ledger entry.
	h := newHarness()
	invisible := &stubSource{transcripts: map[string]*provider.RawTranscript{}}
	visible := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-900": coachingTranscript("tr-900"),
	}}

	first := h.orch.ProcessTranscript(context.Background(), invisible, Credential{ID: "cred-a"}, "tr-900")
	require.Equal(t, OutcomeFailed, first.Status)

	second := h.orch.ProcessTranscript(context.Background(), visible, Credential{ID: "cred-b"}, "tr-900")
	assert.Equal(t, OutcomeSynced, second.Status)
	require.Len(t, h.writer.items, 1)

	entry, err := h.ledger.Get(context.Background(), "tr-900")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSynced, entry.Status)
	assert.Equal(t, h.writer.items[0].ID, entry.DataItemID)
	assert.Empty(t, entry.Reason)
}

func TestHandleWebhookEvent_MeetingVisibleToSecondAccountOnly(t *testing.T) {
	// Webhook deliveries do not say which provider account can see the
	// meeting, so the server tries each credential until one fetches it.
	// The first account's failed attempt must not poison the second's.
	h := newHarness()
	ev := &provider.WebhookEvent{
		EventType:    provider.WebhookEventTranscriptionCompleted,
		TranscriptID: "tr-901",
	}
	attempts := []struct {
		cred   Credential
		source *stubSource
	}{
		{Credential{ID: "cred-a"}, &stubSource{transcripts: map[string]*provider.RawTranscript{}}},
		{Credential{ID: "cred-b"}, &stubSource{transcripts: map[string]*provider.RawTranscript{
			"tr-901": coachingTranscript("tr-901"),
		}}},
	}

	var outcome *Outcome
	for _, a := range attempts {
		result, err := h.orch.HandleWebhookEvent(context.Background(), ev, a.source, a.cred)
		require.NoError(t, err)
		require.NotNil(t, result)
		outcome = result
		if outcome.Status != OutcomeFailed {
			break
		}
	}

	require.NotNil(t, outcome)
	assert.Equal(t, OutcomeSynced, outcome.Status)
	require.Len(t, h.writer.items, 1)

	entry, err := h.ledger.Get(context.Background(), "tr-901")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSynced, entry.Status)
	assert.Equal(t, h.writer.items[0].ID, entry.DataItemID)
}

func TestProcessTranscript_ChunkFailureTolerated(t *testing.T) {
	h := newHarness()
	h.writer.failPositions = map[int]bool{1: true}
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-500": coachingTranscript("tr-500"),
	}}

	outcome := h.orch.ProcessTranscript(context.Background(), source, Credential{}, "tr-500")

	assert.Equal(t, OutcomeSynced, outcome.Status, "partial chunk sets are tolerated")
	assert.Equal(t, outcome.ChunksTotal-1, outcome.ChunksProcessed)
	assert.Len(t, h.writer.chunks, outcome.ChunksTotal-1)
	require.Len(t, h.writer.items, 1, "parent item retained")

	entry, err := h.ledger.Get(context.Background(), "tr-500")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSynced, entry.Status)
}

func TestHandleWebhookEvent_IgnoresOtherTypes(t *testing.T) {
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-600": coachingTranscript("tr-600"),
	}}

	outcome, err := h.orch.HandleWebhookEvent(context.Background(),
		&provider.WebhookEvent{EventType: "recording.started", TranscriptID: "tr-600"},
		source, Credential{})
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Empty(t, h.writer.items)

	outcome, err = h.orch.HandleWebhookEvent(context.Background(),
		&provider.WebhookEvent{EventType: provider.WebhookEventTranscriptionCompleted, TranscriptID: "tr-600"},
		source, Credential{})
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, OutcomeSynced, outcome.Status)
}

func TestProcessPending_AssignsAndPersists(t *testing.T) {
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-700": strangerTranscript("tr-700"),
	}}

	queued := h.orch.ProcessTranscript(context.Background(), source, Credential{ID: "cred-1"}, "tr-700")
	require.Equal(t, OutcomeQueued, queued.Status)

	entries, err := h.queue.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entryID := entries[0].ID

	outcome, err := h.orch.ProcessPending(context.Background(), h.dir, entryID, "coach-avery", "client-ryan")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSynced, outcome.Status)
	assert.Equal(t, identity.MatchedViaExplicitOverride, outcome.MatchedVia)

	require.Len(t, h.writer.items, 1)
	item := h.writer.items[0]
	assert.Equal(t, "coach-avery", item.CoachID)
	assert.Equal(t, "client-ryan", item.ClientID)
	assert.Equal(t, "Short planning debrief.", item.Summary, "summary survives the queue round trip")
	assert.InDelta(t, 25.5, item.DurationMinutes, 0.001)

	ledgerEntry, err := h.ledger.Get(context.Background(), "tr-700")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSynced, ledgerEntry.Status, "skipped entry is promoted on assignment")
	assert.Equal(t, outcome.DataItemID, ledgerEntry.DataItemID)

	entry, err := h.queue.Get(context.Background(), entryID)
	require.NoError(t, err)
	assert.Equal(t, pending.StatusProcessed, entry.Status)
	assert.Equal(t, "coach-avery", entry.AssignedCoachID)
	assert.Equal(t, "client-ryan", entry.AssignedClientID)
	assert.Equal(t, outcome.DataItemID, entry.DataItemID)

	// A second assignment attempt is rejected.
	_, err = h.orch.ProcessPending(context.Background(), h.dir, entryID, "coach-avery", "")
	assert.True(t, cserrors.IsInvalidState(err))
}

func TestProcessPending_UnknownCoach(t *testing.T) {
	h := newHarness()
	source := &stubSource{transcripts: map[string]*provider.RawTranscript{
		"tr-800": strangerTranscript("tr-800"),
	}}
	h.orch.ProcessTranscript(context.Background(), source, Credential{}, "tr-800")

	entries, _ := h.queue.List(context.Background(), false)
	require.Len(t, entries, 1)

	_, err := h.orch.ProcessPending(context.Background(), h.dir, entries[0].ID, "coach-ghost", "")
	require.Error(t, err)
	assert.True(t, cserrors.IsNotFound(err))
}

func TestFormat(t *testing.T) {
	raw := &provider.RawTranscript{
		ID:             "tr-fmt",
		Date:           time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC),
		OrganizerEmail: "avery@ridgeline.coach",
		Sentences: []provider.Sentence{
			{Speaker: "Avery", Text: "Welcome back."},
			{Speaker: "Avery", Text: "How was your week?"},
			{Speaker: "Ryan", Text: "Busy, but productive."},
			{Speaker: "", Text: "Inaudible segment."},
		},
		Attendees: []provider.Attendee{
			{Email: "avery@ridgeline.coach", DisplayName: "Avery Quinn"},
		},
	}

	f := Format(raw)

	assert.Equal(t, "Coaching Session 2026-01-07", f.Title, "blank title gets a synthetic one")
	assert.Equal(t,
		"Avery: Welcome back. How was your week?\n\nRyan: Busy, but productive.\n\nUnknown: Inaudible segment.",
		f.Text)
	assert.Equal(t, provider.SourceName, f.Metadata["source"])
	assert.Equal(t, "tr-fmt", f.Metadata["external_id"])
	assert.Equal(t, "Avery Quinn", f.Metadata["participants"])
	assert.NotContains(t, f.Metadata, "summary", "no summary key when the provider sent none")
}

func TestFormat_CarriesSummary(t *testing.T) {
	raw := coachingTranscript("tr-sum")
	raw.Summary = "Reviewed quarterly goals."
	f := Format(raw)
	assert.Equal(t, "Reviewed quarterly goals.", f.Metadata["summary"])
}

func TestFormat_KeepsProviderTitle(t *testing.T) {
	raw := coachingTranscript("tr-1")
	f := Format(raw)
	assert.Equal(t, "Jake Krask and Ryan Session Jan 7 2026", f.Title)
}

func TestOutcomeSummary(t *testing.T) {
	o := &Outcome{
		Status: OutcomeSynced, ExternalID: "tr-1", DataItemID: "tr-abcd1234",
		SessionType: classifier.SessionClientCoaching, ChunksProcessed: 3, ChunksTotal: 4,
	}
	assert.Contains(t, o.Summary(), "3/4 chunks")

	o = &Outcome{Status: OutcomeFailed, ExternalID: "tr-2", Err: fmt.Errorf("boom")}
	assert.Contains(t, o.Summary(), "failed")
}
