package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ridgelineco/coachsync/pkg/pending"
)

// Pending command flags
var (
	pendingAll     bool
	pendingOutput  string
	assignCoachID  string
	assignClientID string
)

// NewPendingCommand creates the 'pending' command with its subcommands.
func NewPendingCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Review and assign transcripts with no identity match",
		Long: `Work the pending-assignment queue.

Transcripts whose participants match no coach are held here instead of
being dropped. 'pending list' shows what is waiting along with the emails
that failed to match; 'pending assign' attributes an entry to a coach and
runs it through the persistence pipeline using the transcript captured at
queue time.

Examples:
  coachsync pending list
  coachsync pending list --all
  coachsync pending assign 7f3b... --coach coach_01H --client client_01H`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingList(cmd, deps)
		},
	}

	cmd.PersistentFlags().StringVarP(&pendingOutput, "output", "o", "", "Output format: text, json")

	cmd.AddCommand(newPendingListCommand(deps))
	cmd.AddCommand(newPendingAssignCommand(deps))

	return cmd
}

func newPendingListCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued transcripts (same as bare 'coachsync pending')",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingList(cmd, deps)
		},
	}
	cmd.Flags().BoolVarP(&pendingAll, "all", "a", false, "Include already-processed entries")
	return cmd
}

func newPendingAssignCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <entry-id>",
		Short: "Assign a queued transcript to a coach and ingest it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPendingAssign(cmd, deps, args[0])
		},
	}
	cmd.Flags().StringVar(&assignCoachID, "coach", "", "Coach ID to attribute the session to (required)")
	cmd.Flags().StringVar(&assignClientID, "client", "", "Client ID for the session (optional)")
	cmd.MarkFlagRequired("coach")
	return cmd
}

func runPendingList(cmd *cobra.Command, deps *Deps) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.queue.List(ctx, pendingAll)
	if err != nil {
		return fmt.Errorf("listing pending transcripts: %w", err)
	}

	if pendingOutput == "json" {
		return printPendingJSON(cmd, entries)
	}

	if len(entries) == 0 {
		cmd.Println("No pending transcripts.")
		return nil
	}

	cmd.Printf("%d pending transcript(s):\n\n", len(entries))
	for _, e := range entries {
		cmd.Printf("  %s  %s\n", e.ID, e.Title)
		cmd.Printf("      meeting:    %s (%s)\n", e.ExternalID, e.SessionDate.Format("2006-01-02"))
		cmd.Printf("      organizer:  %s\n", e.OrganizerEmail)
		if len(e.UnmatchedEmails) > 0 {
			cmd.Printf("      unmatched:  %s\n", strings.Join(e.UnmatchedEmails, ", "))
		}
		if e.Status != pending.StatusPending {
			cmd.Printf("      status:     %s (coach %s)\n", e.Status, e.AssignedCoachID)
		}
		cmd.Println()
	}
	return nil
}

func printPendingJSON(cmd *cobra.Command, entries []pending.Entry) error {
	type entryJSON struct {
		ID              string   `json:"id"`
		ExternalID      string   `json:"external_id"`
		Title           string   `json:"title"`
		SessionDate     string   `json:"session_date"`
		OrganizerEmail  string   `json:"organizer_email,omitempty"`
		UnmatchedEmails []string `json:"unmatched_emails,omitempty"`
		Status          string   `json:"status"`
		AssignedCoachID string   `json:"assigned_coach_id,omitempty"`
		DataItemID      string   `json:"data_item_id,omitempty"`
	}

	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			ID:              e.ID,
			ExternalID:      e.ExternalID,
			Title:           e.Title,
			SessionDate:     e.SessionDate.Format("2006-01-02"),
			OrganizerEmail:  e.OrganizerEmail,
			UnmatchedEmails: e.UnmatchedEmails,
			Status:          string(e.Status),
			AssignedCoachID: e.AssignedCoachID,
			DataItemID:      e.DataItemID,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding entries: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func runPendingAssign(cmd *cobra.Command, deps *Deps, entryID string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.orch.ProcessPending(ctx, a.directory, entryID, assignCoachID, assignClientID)
	if err != nil {
		return fmt.Errorf("assigning entry %s: %w", entryID, err)
	}
	a.metrics.Observe(outcome)

	cmd.Println(outcome.Summary())
	if outcome.Err != nil {
		return fmt.Errorf("entry %s: %w", entryID, outcome.Err)
	}
	return nil
}
