package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ridgelineco/coachsync/pkg/buildinfo"
	"github.com/ridgelineco/coachsync/pkg/ingest"
	"github.com/ridgelineco/coachsync/pkg/logging"
	"github.com/ridgelineco/coachsync/pkg/provider"
)

// maxWebhookBody caps inbound webhook payload size.
const maxWebhookBody = 1 << 20 // 1 MB

// Serve command flags
var serveAddr string

// NewServeCommand creates the 'serve' command.
func NewServeCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook listener for real-time transcript ingestion",
		Long: `Start an HTTP server that receives provider webhook deliveries and
ingests completed transcripts as they arrive.

Endpoints:
  POST /webhooks/transcripts   Provider webhook receiver (HMAC verified)
  GET  /metrics                Prometheus metrics
  GET  /healthz                Liveness check
  GET  /version                Build information

Deliveries are acknowledged immediately and processed in the background;
the sync ledger makes redelivery and webhook/poll overlap harmless.

Examples:
  coachsync serve
  coachsync serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, deps *Deps) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.ServeAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	handler := &webhookHandler{
		app:    a,
		logger: a.logger.With(logging.F("component", "webhook_server")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/transcripts", handler.handleWebhook)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok\n")
	})
	mux.Handle("GET /version", buildinfo.Handler("coachsync"))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		handler.logger.Info("webhook listener started", logging.F("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	handler.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	handler.wg.Wait()
	return nil
}

// webhookHandler receives provider deliveries and hands completed
// transcripts to the orchestrator.
type webhookHandler struct {
	app    *app
	logger logging.Logger
	wg     sync.WaitGroup
}

func (h *webhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	secret := h.app.cfg.Provider.WebhookSecret
	if !provider.VerifySignature(body, r.Header.Get(provider.SignatureHeader), secret) {
		h.logger.Warn("webhook signature rejected", logging.F("remote", r.RemoteAddr))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	ev, err := provider.ParseWebhookEvent(body)
	if err != nil {
		h.logger.Warn("webhook payload rejected", logging.Err(err))
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	// Acknowledge before processing; the ledger absorbs redeliveries.
	w.WriteHeader(http.StatusAccepted)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		h.process(ctx, ev)
	}()
}

// process runs the event through the pipeline. The webhook does not say
// which provider account can see the meeting, so credentials are tried in
// order until one fetches it. An account that cannot see the meeting leaves
// a failed ledger entry, which the ledger treats as retryable, so the next
// account's attempt proceeds.
func (h *webhookHandler) process(ctx context.Context, ev *provider.WebhookEvent) {
	var outcome *ingest.Outcome
	for _, cred := range h.app.credentials {
		result, err := h.app.orch.HandleWebhookEvent(ctx, ev, h.app.factory(cred), cred)
		if err != nil {
			h.logger.Error("webhook processing failed",
				logging.F("meeting_id", ev.TranscriptID),
				logging.Err(err))
			return
		}
		if result == nil {
			// Event type we don't act on.
			return
		}
		outcome = result
		if outcome.Status != ingest.OutcomeFailed {
			break
		}
	}

	h.app.metrics.Observe(outcome)
	if outcome != nil && outcome.Err != nil {
		h.logger.Error("webhook transcript failed",
			logging.F("meeting_id", ev.TranscriptID),
			logging.Err(outcome.Err))
	}
}
