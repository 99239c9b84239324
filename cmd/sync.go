package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/ingest"
	"github.com/ridgelineco/coachsync/pkg/ledger"
)

// Sync command flags
var (
	syncLimit      int
	syncDelay      time.Duration
	syncCredential string
	syncOutput     string
	syncDryRun     bool
)

// NewSyncCommand creates the 'sync' command.
func NewSyncCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync recent transcripts from all configured provider accounts",
		Long: `Run one sync pass over the configured provider credentials.

Credentials are processed sequentially with a configurable pause between
them. For each account the most recent transcripts are listed and any not
yet recorded in the sync ledger are fetched, resolved to a coach, chunked,
embedded, and stored. Transcripts with no identity match are placed on the
pending-assignment queue.

A transcript visible to several accounts is processed once per run; one
account's failure does not stop the others.

Examples:
  coachsync sync
  coachsync sync --limit 10
  coachsync sync --credential avery
  coachsync sync --dry-run
  coachsync sync --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, deps)
		},
	}

	cmd.Flags().IntVarP(&syncLimit, "limit", "l", 0, "Maximum transcripts to list per credential (default from config)")
	cmd.Flags().DurationVar(&syncDelay, "delay", 0, "Pause between credentials (default from config)")
	cmd.Flags().StringVar(&syncCredential, "credential", "", "Sync only the credential with this label")
	cmd.Flags().StringVarP(&syncOutput, "output", "o", "", "Output format: text, json")
	cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "List what would be synced without ingesting")

	return cmd
}

func runSync(cmd *cobra.Command, deps *Deps) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	creds := a.credentials
	if syncCredential != "" {
		cred, err := selectCredential(creds, syncCredential)
		if err != nil {
			return err
		}
		creds = []ingest.Credential{cred}
	}

	limit := a.cfg.Sync.ListLimit
	if syncLimit > 0 {
		limit = syncLimit
	}
	delay := a.cfg.Sync.Delay
	if cmd.Flags().Changed("delay") {
		delay = syncDelay
	}

	if syncDryRun {
		return runSyncDryRun(cmd, a, creds, limit)
	}

	scheduler := ingest.NewScheduler(ingest.SchedulerConfig{
		Orchestrator: a.orch,
		Factory:      a.factory,
		Credentials:  creds,
		Delay:        delay,
		ListLimit:    limit,
		Metrics:      a.metrics,
		Logger:       a.logger,
	})

	report, err := scheduler.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync run: %w", err)
	}

	if syncOutput == "json" {
		return printReportJSON(cmd, report)
	}
	printReportText(cmd, report)
	return nil
}

// runSyncDryRun lists each credential's discoverable transcripts and their
// ledger state without ingesting anything.
func runSyncDryRun(cmd *cobra.Command, a *app, creds []ingest.Credential, limit int) error {
	ctx := cmd.Context()
	seen := make(map[string]bool)

	for _, cred := range creds {
		source := a.factory(cred)
		summaries, err := source.ListRecent(ctx, limit)
		if err != nil {
			cmd.Printf("%s: listing failed: %v\n", cred.Label, err)
			continue
		}
		cmd.Printf("%s: %d transcript(s)\n", cred.Label, len(summaries))

		for _, s := range summaries {
			state := "would sync"
			if seen[s.ID] {
				state = "duplicate in run"
			} else {
				prior, err := a.ledger.Get(ctx, s.ID)
				if err != nil && !cserrors.IsNotFound(err) {
					return fmt.Errorf("checking ledger for %s: %w", s.ID, err)
				}
				switch {
				case prior == nil:
				case prior.Status == ledger.StatusFailed:
					state = "would retry"
				default:
					state = "already synced"
				}
			}
			seen[s.ID] = true
			cmd.Printf("  %-14s %s  %s\n", state, s.ID, s.Title)
		}
	}
	return nil
}

func printReportText(cmd *cobra.Command, report *ingest.RunReport) {
	cmd.Printf("Sync run completed in %s\n\n", report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond))

	for _, cr := range report.Credentials {
		if cr.Err != nil {
			cmd.Printf("  %-20s FAILED: %v\n", cr.Credential, cr.Err)
			continue
		}
		cmd.Printf("  %-20s found=%d synced=%d skipped=%d queued=%d failed=%d\n",
			cr.Credential, cr.Found, cr.Synced, cr.Skipped, cr.Queued, cr.Failed)
	}

	synced, skipped, queued, failed := report.Totals()
	cmd.Printf("\nTotal: %d synced, %d skipped, %d queued, %d failed\n", synced, skipped, queued, failed)

	for _, o := range report.Synced {
		cmd.Printf("  synced  %s -> %s (%s, %d/%d chunks)\n",
			o.ExternalID, o.DataItemID, o.SessionType, o.ChunksProcessed, o.ChunksTotal)
	}
	for _, o := range report.Queued {
		cmd.Printf("  queued  %s (awaiting coach assignment)\n", o.ExternalID)
	}
	for _, o := range report.Failed {
		cmd.Printf("  failed  %s: %v\n", o.ExternalID, o.Err)
	}
}

func printReportJSON(cmd *cobra.Command, report *ingest.RunReport) error {
	type outcomeJSON struct {
		Status          string `json:"status"`
		ExternalID      string `json:"external_id"`
		DataItemID      string `json:"data_item_id,omitempty"`
		SessionType     string `json:"session_type,omitempty"`
		MatchedVia      string `json:"matched_via,omitempty"`
		ChunksProcessed int    `json:"chunks_processed,omitempty"`
		ChunksTotal     int    `json:"chunks_total,omitempty"`
		Reason          string `json:"reason,omitempty"`
		Error           string `json:"error,omitempty"`
	}
	type credentialJSON struct {
		Credential string `json:"credential"`
		Found      int    `json:"found"`
		Synced     int    `json:"synced"`
		Skipped    int    `json:"skipped"`
		Queued     int    `json:"queued"`
		Failed     int    `json:"failed"`
		Error      string `json:"error,omitempty"`
	}

	toJSON := func(outcomes []ingest.Outcome) []outcomeJSON {
		out := make([]outcomeJSON, 0, len(outcomes))
		for _, o := range outcomes {
			oj := outcomeJSON{
				Status:          string(o.Status),
				ExternalID:      o.ExternalID,
				DataItemID:      o.DataItemID,
				SessionType:     string(o.SessionType),
				MatchedVia:      string(o.MatchedVia),
				ChunksProcessed: o.ChunksProcessed,
				ChunksTotal:     o.ChunksTotal,
				Reason:          o.Reason,
			}
			if o.Err != nil {
				oj.Error = o.Err.Error()
			}
			out = append(out, oj)
		}
		return out
	}

	credJSON := make([]credentialJSON, 0, len(report.Credentials))
	for _, cr := range report.Credentials {
		cj := credentialJSON{
			Credential: cr.Credential,
			Found:      cr.Found,
			Synced:     cr.Synced,
			Skipped:    cr.Skipped,
			Queued:     cr.Queued,
			Failed:     cr.Failed,
		}
		if cr.Err != nil {
			cj.Error = cr.Err.Error()
		}
		credJSON = append(credJSON, cj)
	}

	payload := struct {
		StartedAt   time.Time        `json:"started_at"`
		CompletedAt time.Time        `json:"completed_at"`
		Credentials []credentialJSON `json:"credentials"`
		Synced      []outcomeJSON    `json:"synced"`
		Skipped     []outcomeJSON    `json:"skipped"`
		Queued      []outcomeJSON    `json:"queued"`
		Failed      []outcomeJSON    `json:"failed"`
	}{
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Credentials: credJSON,
		Synced:      toJSON(report.Synced),
		Skipped:     toJSON(report.Skipped),
		Queued:      toJSON(report.Queued),
		Failed:      toJSON(report.Failed),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
