package ingest

import (
	"context"
	"fmt"
	"time"

	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/logging"
	"github.com/ridgelineco/coachsync/pkg/observability"
	"github.com/ridgelineco/coachsync/pkg/provider"
)

// Source is the per-credential provider surface: transcript listing plus
// individual fetches.
type Source interface {
	Fetcher
	ListRecent(ctx context.Context, limit int) ([]provider.TranscriptSummary, error)
}

// SourceFactory builds a Source bound to one credential's API key.
type SourceFactory func(cred Credential) Source

// CredentialReport aggregates one credential's slice of a sync run.
type CredentialReport struct {
	Credential string
	Found      int
	Synced     int
	Skipped    int
	Queued     int
	Failed     int
	// Err is set when the credential failed wholesale, for example an
	// expired token; its transcripts were not processed.
	Err error
}

// RunReport aggregates a full multi-credential sync run.
type RunReport struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Credentials []CredentialReport
	Synced      []Outcome
	Skipped     []Outcome
	Queued      []Outcome
	Failed      []Outcome
}

// Totals returns the merged counts across all credentials.
func (r *RunReport) Totals() (synced, skipped, queued, failed int) {
	return len(r.Synced), len(r.Skipped), len(r.Queued), len(r.Failed)
}

// Scheduler walks the configured credentials sequentially and syncs each
// one's recent transcripts through the orchestrator.
type Scheduler struct {
	orch        *Orchestrator
	factory     SourceFactory
	credentials []Credential
	delay       time.Duration
	listLimit   int
	metrics     *Metrics
	logger      logging.Logger
}

// SchedulerConfig collects the scheduler's collaborators.
type SchedulerConfig struct {
	Orchestrator *Orchestrator
	Factory      SourceFactory
	Credentials  []Credential
	// Delay is the pause between credentials, spacing out provider load.
	Delay     time.Duration
	ListLimit int
	Metrics   *Metrics
	Logger    logging.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = provider.MaxListLimit
	}
	return &Scheduler{
		orch:        cfg.Orchestrator,
		factory:     cfg.Factory,
		credentials: cfg.Credentials,
		delay:       cfg.Delay,
		listLimit:   cfg.ListLimit,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With(logging.F("component", "sync_scheduler")),
	}
}

// Run executes one full sync pass. Credentials are processed in order; a
// credential's wholesale failure is recorded and the run continues. The
// seen-set is shared across credentials so a meeting visible to several
// accounts is ingested exactly once per run.
func (s *Scheduler) Run(ctx context.Context) (*RunReport, error) {
	ctx, span := observability.NewTracer().StartRunSpan(ctx, len(s.credentials))
	defer span.End()

	report := &RunReport{StartedAt: time.Now().UTC()}
	seen := make(map[string]bool)

	for i, cred := range s.credentials {
		if i > 0 && s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}

		credReport := s.runCredential(ctx, cred, seen, report)
		report.Credentials = append(report.Credentials, credReport)

		if ctx.Err() != nil {
			report.CompletedAt = time.Now().UTC()
			return report, ctx.Err()
		}
	}

	report.CompletedAt = time.Now().UTC()
	if s.metrics != nil {
		s.metrics.RunDuration.Observe(report.CompletedAt.Sub(report.StartedAt).Seconds())
	}

	s.orch.notifier.SyncRunCompleted(ctx, report)

	synced, skipped, queued, failed := report.Totals()
	s.logger.Info("sync run complete",
		logging.F("credentials", len(s.credentials)),
		logging.F("synced", synced),
		logging.F("skipped", skipped),
		logging.F("queued", queued),
		logging.F("failed", failed))

	return report, nil
}

// runCredential syncs one credential's transcripts. Listing failure marks
// the whole credential failed; per-transcript failures are isolated by the
// orchestrator.
func (s *Scheduler) runCredential(ctx context.Context, cred Credential, seen map[string]bool, report *RunReport) CredentialReport {
	log := s.logger.With(logging.F("credential", cred.Label))
	credReport := CredentialReport{Credential: cred.Label}

	source := s.factory(cred)
	summaries, err := source.ListRecent(ctx, s.listLimit)
	if err != nil {
		credReport.Err = cserrors.NewPipelineError(
			cserrors.ErrCredential, "list",
			fmt.Sprintf("credential %s: transcript listing failed", cred.Label), err)
		log.Error("credential listing failed", logging.Err(err))
		return credReport
	}
	credReport.Found = len(summaries)
	log.Info("credential transcripts discovered", logging.F("count", len(summaries)))

	for _, summary := range summaries {
		if ctx.Err() != nil {
			return credReport
		}
		if seen[summary.ID] {
			credReport.Skipped++
			continue
		}
		seen[summary.ID] = true

		outcome := s.orch.ProcessTranscript(ctx, source, cred, summary.ID)
		s.metrics.Observe(outcome)

		switch outcome.Status {
		case OutcomeSynced:
			credReport.Synced++
			report.Synced = append(report.Synced, *outcome)
		case OutcomeSkipped:
			credReport.Skipped++
			report.Skipped = append(report.Skipped, *outcome)
		case OutcomeQueued:
			credReport.Queued++
			report.Queued = append(report.Queued, *outcome)
		case OutcomeFailed:
			credReport.Failed++
			report.Failed = append(report.Failed, *outcome)
		}
	}

	return credReport
}
