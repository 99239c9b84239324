package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ridgelineco/coachsync/pkg/chunker"
	"github.com/ridgelineco/coachsync/pkg/classifier"
	"github.com/ridgelineco/coachsync/pkg/directory"
	"github.com/ridgelineco/coachsync/pkg/embedding"
	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/identity"
	"github.com/ridgelineco/coachsync/pkg/ledger"
	"github.com/ridgelineco/coachsync/pkg/logging"
	"github.com/ridgelineco/coachsync/pkg/observability"
	"github.com/ridgelineco/coachsync/pkg/pending"
	"github.com/ridgelineco/coachsync/pkg/provider"
	"github.com/ridgelineco/coachsync/pkg/store"
)

// Fetcher is the provider surface the orchestrator pulls transcripts from.
type Fetcher interface {
	FetchTranscript(ctx context.Context, externalID string) (*provider.RawTranscript, error)
}

// Credential identifies one provider API credential and its attributed owner.
type Credential struct {
	ID           string
	Label        string
	APIKey       string
	OwnerCoachID string
}

// Notifier receives pipeline milestones. Implementations must not block
// ingestion; delivery failures stay inside the implementation.
type Notifier interface {
	TranscriptIngested(ctx context.Context, outcome *Outcome, title string)
	TranscriptQueued(ctx context.Context, externalID, title string)
	SyncRunCompleted(ctx context.Context, report *RunReport)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) TranscriptIngested(context.Context, *Outcome, string) {}
func (NopNotifier) TranscriptQueued(context.Context, string, string)     {}
func (NopNotifier) SyncRunCompleted(context.Context, *RunReport)         {}

// Orchestrator drives one transcript through the pipeline: dedup check,
// fetch, identity resolution, classification, chunk/embed/persist, and the
// terminal ledger write.
type Orchestrator struct {
	ledger     ledger.Recorder
	writer     store.Writer
	queue      pending.Queue
	resolver   *identity.Resolver
	classifier *classifier.Classifier
	embedder   embedding.Embedder
	notifier   Notifier
	tracer     *observability.Tracer
	logger     logging.Logger
	chunkSize  int
	overlap    int
}

// OrchestratorConfig collects the orchestrator's collaborators.
type OrchestratorConfig struct {
	Ledger     ledger.Recorder
	Writer     store.Writer
	Queue      pending.Queue
	Resolver   *identity.Resolver
	Classifier *classifier.Classifier
	Embedder   embedding.Embedder
	Notifier   Notifier
	Tracer     *observability.Tracer
	Logger     logging.Logger
	ChunkSize  int
	Overlap    int
}

// NewOrchestrator creates an orchestrator. A nil Notifier is replaced with
// NopNotifier; zero chunk params take the chunker defaults.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.NewDefault()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = chunker.DefaultOverlap
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewTracer()
	}
	return &Orchestrator{
		ledger:     cfg.Ledger,
		writer:     cfg.Writer,
		queue:      cfg.Queue,
		resolver:   cfg.Resolver,
		classifier: cfg.Classifier,
		embedder:   cfg.Embedder,
		notifier:   cfg.Notifier,
		tracer:     cfg.Tracer,
		logger:     cfg.Logger.With(logging.F("component", "ingest_orchestrator")),
		chunkSize:  cfg.ChunkSize,
		overlap:    cfg.Overlap,
	}
}

// HandleWebhookEvent processes one verified webhook delivery. Event types
// other than transcription.completed are acknowledged and discarded with a
// nil outcome.
func (o *Orchestrator) HandleWebhookEvent(ctx context.Context, ev *provider.WebhookEvent, fetcher Fetcher, cred Credential) (*Outcome, error) {
	if ev.EventType != provider.WebhookEventTranscriptionCompleted {
		o.logger.Debug("ignoring webhook event",
			logging.F("event_type", ev.EventType),
			logging.F("external_id", ev.TranscriptID))
		return nil, nil
	}
	return o.ProcessTranscript(ctx, fetcher, cred, ev.TranscriptID), nil
}

// ProcessTranscript runs the full pipeline for one external id. Failures are
// folded into the returned Outcome; this method never returns an error
// because a single bad transcript must not abort a batch.
func (o *Orchestrator) ProcessTranscript(ctx context.Context, fetcher Fetcher, cred Credential, externalID string) *Outcome {
	ctx, span := o.tracer.StartTranscriptSpan(ctx, externalID, cred.Label)
	defer span.End()
	helper := observability.NewSpanHelper(span)

	outcome := o.processTranscript(ctx, fetcher, cred, externalID)

	switch outcome.Status {
	case OutcomeFailed:
		helper.SetError(outcome.Err, "processing", false)
	case OutcomeSynced:
		helper.SetResolution(string(outcome.MatchedVia))
		helper.SetPersistence(outcome.DataItemID, string(outcome.SessionType), outcome.ChunksProcessed)
		helper.SetSuccess()
	default:
		helper.SetSuccess()
	}
	return outcome
}

func (o *Orchestrator) processTranscript(ctx context.Context, fetcher Fetcher, cred Credential, externalID string) *Outcome {
	log := o.logger.With(logging.F("external_id", externalID))

	prior, err := o.ledger.Get(ctx, externalID)
	if err != nil && !cserrors.IsNotFound(err) {
		return o.failed(ctx, externalID, cred, fmt.Errorf("ledger check: %w", err))
	}
	if prior != nil {
		// Synced and skipped entries are terminal. A failed entry is not:
		// the transcript may simply be invisible to the credential that
		// tried last, so another credential or a later run gets a retry.
		if prior.Status != ledger.StatusFailed {
			log.Debug("transcript already in ledger, skipping",
				logging.F("status", string(prior.Status)))
			return &Outcome{
				Status:     OutcomeSkipped,
				ExternalID: externalID,
				Reason:     ReasonDuplicate,
			}
		}
		log.Info("retrying previously failed transcript",
			logging.F("prior_reason", prior.Reason))
	}

	raw, err := fetcher.FetchTranscript(ctx, externalID)
	if err != nil {
		return o.failed(ctx, externalID, cred, fmt.Errorf("fetch transcript: %w", err))
	}

	formatted := Format(raw)

	match, err := o.resolver.Resolve(ctx, identity.Candidates{
		OrganizerEmail: raw.OrganizerEmail,
		HostEmail:      raw.HostEmail,
		AttendeeEmails: raw.AttendeeEmails(),
	}, cred.OwnerCoachID)
	if err != nil {
		return o.failed(ctx, externalID, cred, fmt.Errorf("resolve identities: %w", err))
	}

	if !match.Resolved() {
		return o.enqueue(ctx, raw, formatted, match, cred)
	}

	outcome := o.persist(ctx, raw.ID, raw, formatted, match, cred)
	if outcome.Synced() {
		o.notifier.TranscriptIngested(ctx, outcome, formatted.Title)
	}
	return outcome
}

// ProcessPending re-runs the persistence path for a queued entry with an
// operator-assigned coach and optional client.
func (o *Orchestrator) ProcessPending(ctx context.Context, dir directory.Lookup, entryID, coachID, clientID string) (*Outcome, error) {
	entry, err := o.queue.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != pending.StatusPending {
		return nil, fmt.Errorf("entry %s already %s: %w", entryID, entry.Status, cserrors.ErrInvalidState)
	}

	coach, err := dir.CoachByID(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("assigned coach %s: %w", coachID, err)
	}

	var client *directory.Client
	if clientID != "" {
		client, err = dir.ClientByID(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("assigned client %s: %w", clientID, err)
		}
	}

	var stored pendingPayload
	if err := json.Unmarshal(entry.Payload, &stored); err != nil {
		return nil, fmt.Errorf("decode stored transcript payload: %w", err)
	}

	match := identity.ExplicitOverride(coach, client)

	raw := &provider.RawTranscript{
		ID:              entry.ExternalID,
		Title:           entry.Title,
		Date:            entry.SessionDate,
		DurationMinutes: stored.DurationMinutes,
		OrganizerEmail:  entry.OrganizerEmail,
		Summary:         stored.Summary,
	}
	cred := Credential{ID: entry.CredentialID}

	outcome := o.persist(ctx, entry.ExternalID, raw, &stored.Formatted, match, cred)
	if !outcome.Synced() {
		return outcome, outcome.Err
	}

	if err := o.queue.MarkProcessed(ctx, entryID, coachID, clientID, outcome.DataItemID); err != nil {
		return outcome, fmt.Errorf("mark entry processed: %w", err)
	}

	o.notifier.TranscriptIngested(ctx, outcome, stored.Formatted.Title)
	return outcome, nil
}

// pendingPayload is the JSONB document stored with a queue entry. It carries
// the formatted transcript plus the raw fields the persistence path needs,
// so operator assignment never re-fetches from the provider.
type pendingPayload struct {
	Formatted       FormattedTranscript `json:"formatted"`
	Summary         string              `json:"summary,omitempty"`
	DurationMinutes float64             `json:"duration_minutes,omitempty"`
}

// enqueue routes an unresolved transcript to the pending-assignment queue
// and records a skipped ledger entry. Human input is required; this is an
// expected outcome, not a failure.
func (o *Orchestrator) enqueue(ctx context.Context, raw *provider.RawTranscript, formatted *FormattedTranscript, match *identity.MatchResult, cred Credential) *Outcome {
	payload, err := json.Marshal(pendingPayload{
		Formatted:       *formatted,
		Summary:         raw.Summary,
		DurationMinutes: raw.DurationMinutes,
	})
	if err != nil {
		return o.failed(ctx, raw.ID, cred, fmt.Errorf("encode transcript payload: %w", err))
	}

	entry := &pending.Entry{
		ExternalID:       raw.ID,
		Title:            formatted.Title,
		SessionDate:      raw.Date,
		OrganizerEmail:   raw.OrganizerEmail,
		ParticipantNames: raw.ParticipantNames(),
		UnmatchedEmails:  match.UnmatchedEmails,
		CredentialID:     cred.ID,
		Payload:          payload,
	}
	if err := o.queue.Enqueue(ctx, entry); err != nil {
		return o.failed(ctx, raw.ID, cred, fmt.Errorf("enqueue pending entry: %w", err))
	}

	o.recordLedger(ctx, &ledger.Entry{
		ExternalID:   raw.ID,
		Status:       ledger.StatusSkipped,
		Reason:       fmt.Sprintf("%s: %v", ReasonUnresolved, match.UnmatchedEmails),
		CredentialID: cred.ID,
	})

	o.notifier.TranscriptQueued(ctx, raw.ID, formatted.Title)

	return &Outcome{
		Status:     OutcomeQueued,
		ExternalID: raw.ID,
		MatchedVia: identity.MatchedViaNone,
		Reason:     ReasonUnresolved,
	}
}

// persist classifies, chunks, embeds, and stores one resolved transcript,
// then writes the synced ledger entry. Chunk writes are sequential; a failed
// chunk is counted and logged, siblings are kept.
func (o *Orchestrator) persist(ctx context.Context, externalID string, raw *provider.RawTranscript, formatted *FormattedTranscript, match *identity.MatchResult, cred Credential) *Outcome {
	log := o.logger.With(logging.F("external_id", externalID))

	sessionType := o.classifier.Classify(formatted.Title, match.Client != nil)

	meta := make(map[string]string, len(formatted.Metadata)+2)
	for k, v := range formatted.Metadata {
		meta[k] = v
	}
	meta["session_type"] = string(sessionType)
	if len(match.UnmatchedEmails) > 0 {
		unmatched, _ := json.Marshal(match.UnmatchedEmails)
		meta["unmatched_emails"] = string(unmatched)
	}

	item := &store.DataItem{
		ExternalID:      externalID,
		Title:           formatted.Title,
		SessionDate:     raw.Date,
		DurationMinutes: raw.DurationMinutes,
		SessionType:     sessionType,
		CoachID:         match.Coach.ID,
		ClientID:        match.ClientID(),
		OrganizationID:  match.OrganizationID,
		MatchedVia:      string(match.MatchedVia),
		Summary:         raw.Summary,
		Content:         formatted.Text,
		Metadata:        meta,
	}
	if err := o.writer.CreateItem(ctx, item); err != nil {
		return o.failed(ctx, externalID, cred, fmt.Errorf("create data item: %w", err))
	}

	chunkMeta := map[string]string{
		"source":      provider.SourceName,
		"external_id": externalID,
	}
	chunks := chunker.Split(formatted.Text, o.chunkSize, o.overlap)
	processed := 0
	for i, text := range chunks {
		vec, err := o.embedder.EmbedOne(ctx, text)
		if err != nil {
			log.Warn("chunk embedding failed",
				logging.Err(err),
				logging.F("position", i))
			continue
		}
		chunk := &store.DataChunk{
			DataItemID: item.ID,
			Position:   i,
			Content:    text,
			Embedding:  vec,
			Metadata:   chunkMeta,
		}
		if err := o.writer.CreateChunk(ctx, chunk); err != nil {
			log.Warn("chunk persistence failed",
				logging.Err(err),
				logging.F("position", i))
			continue
		}
		processed++
	}

	o.recordSynced(ctx, externalID, item.ID, string(sessionType), cred.ID)

	log.Info("transcript persisted",
		logging.F("data_item_id", item.ID),
		logging.F("session_type", string(sessionType)),
		logging.F("matched_via", string(match.MatchedVia)),
		logging.F("chunks", fmt.Sprintf("%d/%d", processed, len(chunks))))

	return &Outcome{
		Status:          OutcomeSynced,
		ExternalID:      externalID,
		DataItemID:      item.ID,
		SessionType:     sessionType,
		MatchedVia:      match.MatchedVia,
		ChunksProcessed: processed,
		ChunksTotal:     len(chunks),
	}
}

// failed records a failed ledger entry and folds the error into an Outcome.
func (o *Orchestrator) failed(ctx context.Context, externalID string, cred Credential, err error) *Outcome {
	perr := cserrors.ClassifyError(err, "ingest")
	o.logger.Error("transcript processing failed",
		logging.Err(perr),
		logging.F("external_id", externalID))

	o.recordLedger(ctx, &ledger.Entry{
		ExternalID:   externalID,
		Status:       ledger.StatusFailed,
		Reason:       perr.Error(),
		CredentialID: cred.ID,
	})

	return &Outcome{
		Status:     OutcomeFailed,
		ExternalID: externalID,
		Err:        perr,
	}
}

// recordSynced writes the terminal synced entry. A conflict means an entry
// already exists for this external id: a skipped queue entry being assigned,
// a failed attempt being retried, or a lost race. The existing entry is then
// promoted in place so it gains the DataItem reference.
func (o *Orchestrator) recordSynced(ctx context.Context, externalID, dataItemID, sessionType, credentialID string) {
	err := o.ledger.Record(ctx, &ledger.Entry{
		ExternalID:   externalID,
		Status:       ledger.StatusSynced,
		SessionType:  sessionType,
		DataItemID:   dataItemID,
		CredentialID: credentialID,
	})
	if err == nil {
		return
	}
	if cserrors.IsConflict(err) {
		if err = o.ledger.MarkSynced(ctx, externalID, dataItemID, sessionType); err == nil {
			return
		}
	}
	o.logger.Error("ledger write failed",
		logging.Err(err),
		logging.F("external_id", externalID))
}

// recordLedger writes a ledger entry, swallowing the duplicate-insert
// conflict as a benign lost race.
func (o *Orchestrator) recordLedger(ctx context.Context, entry *ledger.Entry) {
	err := o.ledger.Record(ctx, entry)
	if err == nil || cserrors.IsConflict(err) {
		return
	}
	o.logger.Error("ledger write failed",
		logging.Err(err),
		logging.F("external_id", entry.ExternalID))
}

