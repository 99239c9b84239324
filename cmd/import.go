package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Import command flags
var importCredential string

// NewImportCommand creates the 'import' command.
func NewImportCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "import <meeting-id>",
		Short: "Import a single transcript by its provider meeting ID",
		Long: `Fetch one transcript from the provider and run it through the full
ingestion pipeline: dedup check, identity resolution, classification,
chunking, embedding, and storage.

Already-synced transcripts are skipped. Transcripts with no identity match
are placed on the pending-assignment queue; assign them later with
'coachsync pending assign'.

Examples:
  coachsync import mtg_01HQXK7V9T
  coachsync import mtg_01HQXK7V9T --credential avery`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, deps, args[0])
		},
	}

	cmd.Flags().StringVar(&importCredential, "credential", "", "Credential label to fetch with (required with multiple credentials)")

	return cmd
}

func runImport(cmd *cobra.Command, deps *Deps, externalID string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	cred, err := selectCredential(a.credentials, importCredential)
	if err != nil {
		return err
	}

	outcome := a.orch.ProcessTranscript(ctx, a.factory(cred), cred, externalID)
	a.metrics.Observe(outcome)

	cmd.Println(outcome.Summary())
	if outcome.Err != nil {
		return fmt.Errorf("import %s: %w", externalID, outcome.Err)
	}
	return nil
}
