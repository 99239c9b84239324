// Package cmd provides CLI commands for the coachsync tool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ridgelineco/coachsync/config"
	"github.com/ridgelineco/coachsync/credentials"
	"github.com/ridgelineco/coachsync/pkg/db"
	"github.com/ridgelineco/coachsync/pkg/directory"
	"github.com/ridgelineco/coachsync/pkg/embedding"
	"github.com/ridgelineco/coachsync/pkg/identity"
	"github.com/ridgelineco/coachsync/pkg/ingest"
	"github.com/ridgelineco/coachsync/pkg/ingest/events"
	"github.com/ridgelineco/coachsync/pkg/ledger"
	"github.com/ridgelineco/coachsync/pkg/logging"
	"github.com/ridgelineco/coachsync/pkg/pending"
	"github.com/ridgelineco/coachsync/pkg/provider"
	"github.com/ridgelineco/coachsync/pkg/store"
)

// Deps holds the injectable dependencies for CLI commands.
type Deps struct {
	LoadConfig func() (*config.Config, error)
}

// DefaultDeps returns the default dependencies for production use.
func DefaultDeps() *Deps {
	return &Deps{
		LoadConfig: config.LoadConfig,
	}
}

// app bundles the wired pipeline for one command invocation.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	pool     *pgxpool.Pool
	registry *prometheus.Registry
	metrics  *ingest.Metrics

	directory directory.Lookup
	queue     *pending.Repository
	ledger    *ledger.Repository
	store     *store.Repository
	orch      *ingest.Orchestrator

	credentials []ingest.Credential
	factory     ingest.SourceFactory

	publisher *events.Publisher
}

// newApp loads configuration and wires the full ingestion pipeline.
// Callers must Close() when done.
func newApp(ctx context.Context, deps *Deps) (*app, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(&logging.Config{
		Level:     level,
		Component: "coachsync",
	})

	pool, err := db.ConnectWithRetry(ctx, &cfg.Database, 3, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = ingest.NewMetrics(a.registry)
	a.registry.MustRegister(db.NewPoolStatsCollector(pool, "coachsync"))

	dir := directory.NewRepository(pool, logger)
	a.directory = dir
	a.queue = pending.NewRepository(pool, logger)

	var notifier ingest.Notifier = ingest.NopNotifier{}
	if cfg.Redis.Enabled() || cfg.Notifications.ChatWebhookURL != "" {
		if cfg.Redis.Enabled() {
			pub, err := events.NewPublisherFromConfig(events.PublisherConfig{
				Host:     cfg.Redis.Host,
				Port:     cfg.Redis.Port,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			}, logger)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("connecting to Redis: %w", err)
			}
			a.publisher = pub
		}
		notifier = events.NewDispatcher(a.publisher, cfg.Notifications.ChatWebhookURL, logger)
	}

	a.ledger = ledger.NewRepository(pool, logger)
	a.store = store.NewRepository(pool, logger)
	a.orch = ingest.NewOrchestrator(ingest.OrchestratorConfig{
		Ledger:   a.ledger,
		Writer:   a.store,
		Queue:    a.queue,
		Resolver: identity.NewResolver(dir, logger),
		Embedder: embedding.NewClient(embedding.Config{
			APIURL: cfg.Embedding.APIURL,
			APIKey: cfg.Embedding.APIKey,
			Model:  cfg.Embedding.Model,
		}),
		Notifier:  notifier,
		Logger:    logger,
		ChunkSize: cfg.Sync.ChunkSize,
		Overlap:   cfg.Sync.ChunkOverlap,
	})

	a.credentials, err = resolveCredentials(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.factory = func(cred ingest.Credential) ingest.Source {
		return provider.NewClient(cfg.Provider.APIURL, cred.APIKey)
	}

	return a, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	db.Close(a.pool)
}

// resolveCredentials merges configured credentials with the encrypted
// store. A config entry may omit its api_key; the key is then looked up
// in the store under the same label.
func resolveCredentials(cfg *config.Config) ([]ingest.Credential, error) {
	creds := make([]ingest.Credential, 0, len(cfg.Provider.Credentials))

	var credStore *credentials.Store
	for _, cc := range cfg.Provider.Credentials {
		apiKey := cc.APIKey
		if apiKey == "" {
			if credStore == nil {
				var err error
				credStore, err = credentials.NewStore()
				if err != nil {
					return nil, fmt.Errorf("opening credential store: %w", err)
				}
			}
			stored, err := credStore.Get(cc.Label)
			if err != nil {
				if errors.Is(err, credentials.ErrNotFound) || errors.Is(err, credentials.ErrNoCredentials) {
					return nil, fmt.Errorf("credential %q has no api_key in config and none stored; run 'coachsync credential add %s'", cc.Label, cc.Label)
				}
				return nil, fmt.Errorf("reading credential %q: %w", cc.Label, err)
			}
			apiKey = stored.APIKey
		}

		creds = append(creds, ingest.Credential{
			ID:           cc.Label,
			Label:        cc.Label,
			APIKey:       apiKey,
			OwnerCoachID: cc.OwnerCoachID,
		})
	}

	if len(creds) == 0 {
		return nil, errors.New("no provider credentials configured; add one under provider.credentials in config.yaml")
	}

	return creds, nil
}

// selectCredential picks the credential with the given label, or the only
// configured credential when label is empty.
func selectCredential(creds []ingest.Credential, label string) (ingest.Credential, error) {
	if label == "" {
		if len(creds) == 1 {
			return creds[0], nil
		}
		return ingest.Credential{}, fmt.Errorf("multiple credentials configured; pick one with --credential")
	}
	for _, cred := range creds {
		if cred.Label == label {
			return cred, nil
		}
	}
	return ingest.Credential{}, fmt.Errorf("unknown credential %q", label)
}
