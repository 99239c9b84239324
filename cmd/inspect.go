package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/ledger"
	"github.com/ridgelineco/coachsync/pkg/store"
)

// NewInspectCommand creates the 'inspect' command.
func NewInspectCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	return &cobra.Command{
		Use:   "inspect [id]",
		Short: "Show sync ledger totals or one transcript's stored record",
		Long: `Without an argument, print the sync ledger's entry counts by status and
the number of transcripts awaiting coach assignment.

With an argument, look up the transcript by its provider external id (or by
its data item id) and print the ledger entry, the stored item, and its
chunk count.

Examples:
  coachsync inspect
  coachsync inspect meeting-48213
  coachsync inspect tr-9f2ac81b`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, deps, args)
		},
	}
}

func runInspect(cmd *cobra.Command, deps *Deps, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		counts, err := a.ledger.CountByStatus(ctx)
		if err != nil {
			return fmt.Errorf("counting ledger entries: %w", err)
		}
		entries, err := a.queue.List(ctx, false)
		if err != nil {
			return fmt.Errorf("listing pending entries: %w", err)
		}
		printLedgerTotals(cmd, counts, len(entries))
		return nil
	}

	id := args[0]

	entry, err := a.ledger.Get(ctx, id)
	if err != nil && !cserrors.IsNotFound(err) {
		return fmt.Errorf("reading ledger entry: %w", err)
	}

	item, err := a.store.GetItemByExternalID(ctx, id)
	if cserrors.IsNotFound(err) {
		item, err = a.store.GetItem(ctx, id)
	}
	if err != nil && !cserrors.IsNotFound(err) {
		return fmt.Errorf("reading data item: %w", err)
	}

	if entry == nil && item == nil {
		return fmt.Errorf("no ledger entry or data item for %q", id)
	}

	chunks := 0
	if item != nil {
		chunks, err = a.store.CountChunks(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("counting chunks: %w", err)
		}
	}

	printTranscriptDetail(cmd, entry, item, chunks)
	return nil
}

func printLedgerTotals(cmd *cobra.Command, counts map[ledger.Status]int, pendingCount int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	cmd.Printf("Sync ledger: %d entries\n", total)
	for _, status := range []ledger.Status{ledger.StatusSynced, ledger.StatusSkipped, ledger.StatusFailed} {
		cmd.Printf("  %-8s %d\n", string(status), counts[status])
	}
	cmd.Printf("Awaiting coach assignment: %d\n", pendingCount)
}

func printTranscriptDetail(cmd *cobra.Command, entry *ledger.Entry, item *store.DataItem, chunks int) {
	if entry != nil {
		cmd.Printf("Ledger entry\n")
		cmd.Printf("  external id:  %s\n", entry.ExternalID)
		cmd.Printf("  status:       %s\n", string(entry.Status))
		if entry.Reason != "" {
			cmd.Printf("  reason:       %s\n", entry.Reason)
		}
		if entry.CredentialID != "" {
			cmd.Printf("  credential:   %s\n", entry.CredentialID)
		}
		cmd.Printf("  recorded at:  %s\n", entry.SyncedAt.Format("2006-01-02 15:04:05 MST"))
	}

	if item == nil {
		cmd.Println("No data item stored.")
		return
	}

	cmd.Printf("Data item\n")
	cmd.Printf("  id:           %s\n", item.ID)
	cmd.Printf("  title:        %s\n", item.Title)
	cmd.Printf("  session date: %s\n", item.SessionDate.Format("2006-01-02"))
	cmd.Printf("  session type: %s\n", string(item.SessionType))
	cmd.Printf("  coach:        %s\n", item.CoachID)
	if item.ClientID != "" {
		cmd.Printf("  client:       %s\n", item.ClientID)
	}
	if item.OrganizationID != "" {
		cmd.Printf("  organization: %s\n", item.OrganizationID)
	}
	cmd.Printf("  matched via:  %s\n", item.MatchedVia)
	if item.DurationMinutes > 0 {
		cmd.Printf("  duration:     %.1f min\n", item.DurationMinutes)
	}
	if item.Summary != "" {
		cmd.Printf("  summary:      %s\n", item.Summary)
	}
	cmd.Printf("  chunks:       %d\n", chunks)
}
