// Package main provides the coachsync CLI entry point.
// coachsync ingests coaching-session transcripts from the transcription
// provider, resolves them to coaches and clients, and stores them as
// embedded, searchable session records.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ridgelineco/coachsync/cmd"
	"github.com/ridgelineco/coachsync/config"
	"github.com/ridgelineco/coachsync/pkg/buildinfo"
)

// Global flags.
var (
	debug       bool
	versionJSON bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "coachsync",
	Short: "Coaching-session transcript ingestion pipeline",
	Long: `coachsync pulls meeting transcripts from the transcription provider,
resolves each one to a coach (and, when possible, a client), classifies the
session from its title, and stores it chunked and embedded for retrieval.

COMMON WORKFLOWS:
  Poll all accounts:   coachsync sync
  One transcript:      coachsync import <meeting-id>
  Real-time webhooks:  coachsync serve
  Unmatched sessions:  coachsync pending list  →  coachsync pending assign <id> --coach <id>
  API keys:            coachsync credential add <label>

CONFIGURATION:
  Settings live in ~/.coachsync/config.yaml (or $COACHSYNC_CONFIG_DIR).
  Every setting can be overridden with COACHSYNC_* environment variables.
  Run 'coachsync <command> --help' for per-command flags and examples.`,
	PersistentPreRun: func(c *cobra.Command, args []string) {
		if debug {
			os.Setenv("COACHSYNC_DEBUG", "1")
		}
	},
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("coachsync")
		if versionJSON {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			c.Println(string(data))
			return nil
		}
		c.Printf("coachsync %s\n", buildinfo.String())
		c.Printf("  go: %s\n", info.GoVersion)
		return nil
	},
}

// configCmd prints the resolved configuration with secrets masked.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		c.Printf("Config file: %s\n\n", path)
		c.Printf("Database:    %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
		c.Printf("Provider:    %d credential(s)\n", len(cfg.Provider.Credentials))
		for _, cred := range cfg.Provider.Credentials {
			src := "config"
			if cred.APIKey == "" {
				src = "credential store"
			}
			c.Printf("  - %s (owner: %s, key: %s)\n", cred.Label, orDash(cred.OwnerCoachID), src)
		}
		if cfg.Redis.Enabled() {
			c.Printf("Redis:       %s:%d\n", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			c.Println("Redis:       disabled")
		}
		c.Printf("Embedding:   %s\n", orDash(cfg.Embedding.Model))
		c.Printf("Sync:        delay=%s list_limit=%d\n", cfg.Sync.Delay, cfg.Sync.ListLimit)
		c.Printf("Serve:       %s\n", cfg.ServeAddr)
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)

	deps := cmd.DefaultDeps()
	rootCmd.AddCommand(cmd.NewSyncCommand(deps))
	rootCmd.AddCommand(cmd.NewImportCommand(deps))
	rootCmd.AddCommand(cmd.NewServeCommand(deps))
	rootCmd.AddCommand(cmd.NewPendingCommand(deps))
	rootCmd.AddCommand(cmd.NewCredentialCommand(deps))
	rootCmd.AddCommand(cmd.NewInspectCommand(deps))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
