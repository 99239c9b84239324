package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ridgelineco/coachsync/credentials"
)

// Credential command flags
var (
	credentialKey        string
	credentialOwnerCoach string
)

// NewCredentialCommand creates the 'credential' command with its subcommands.
func NewCredentialCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage provider API keys",
		Long: `Manage provider API keys in the encrypted credential store.

Keys are encrypted at rest with AES-GCM; the encryption key lives in the
system keyring (or COACHSYNC_ENCRYPTION_KEY in CI). A stored key is picked
up by the sync scheduler when the matching config credential entry omits
its api_key.

Examples:
  coachsync credential add avery --owner-coach coach_01H
  coachsync credential add avery --key sl-...        (non-interactive)
  coachsync credential list
  coachsync credential remove avery`,
	}

	cmd.AddCommand(newCredentialAddCommand())
	cmd.AddCommand(newCredentialListCommand())
	cmd.AddCommand(newCredentialRemoveCommand())

	return cmd
}

func newCredentialAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Store a provider API key under a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialAdd(cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&credentialKey, "key", "", "API key (prompted when omitted)")
	cmd.Flags().StringVar(&credentialOwnerCoach, "owner-coach", "", "Coach ID that owns this provider account")
	return cmd
}

func newCredentialListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credentials (keys are masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialList(cmd)
		},
	}
}

func newCredentialRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <label>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials.NewStore()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			cmd.Printf("Removed credential %q\n", args[0])
			return nil
		},
	}
}

func runCredentialAdd(cmd *cobra.Command, label string) error {
	apiKey := credentialKey
	if apiKey == "" {
		key, err := promptSecret(cmd, fmt.Sprintf("API key for %q: ", label))
		if err != nil {
			return err
		}
		apiKey = key
	}
	if apiKey == "" {
		return fmt.Errorf("no API key provided")
	}

	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	if err := store.Set(credentials.Credential{
		Label:        label,
		APIKey:       apiKey,
		OwnerCoachID: credentialOwnerCoach,
	}); err != nil {
		return err
	}

	cmd.Printf("Stored credential %q (%s)\n", label, credentials.MaskAPIKey(apiKey))
	return nil
}

func runCredentialList(cmd *cobra.Command) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	creds, err := store.List()
	if err != nil {
		return err
	}

	if len(creds) == 0 {
		cmd.Println("No credentials stored.")
		return nil
	}

	cmd.Printf("%-15s %-24s %-10s %-15s %s\n", "LABEL", "KEY", "ID", "OWNER COACH", "ADDED")
	for _, c := range creds {
		owner := c.OwnerCoachID
		if owner == "" {
			owner = "-"
		}
		cmd.Printf("%-15s %-24s %-10s %-15s %s\n",
			c.Label,
			credentials.MaskAPIKey(c.APIKey),
			credentials.Fingerprint(c.APIKey),
			owner,
			c.AddedAt.Format("2006-01-02"))
	}
	return nil
}

// promptSecret reads a secret from the terminal without echoing it.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; pass --key instead")
	}

	cmd.Print(prompt)
	raw, err := term.ReadPassword(fd)
	cmd.Println()
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
