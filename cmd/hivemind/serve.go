package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	hmhttp "github.com/hivemind-swarm/hivemind/internal/adapter/http"
	"github.com/hivemind-swarm/hivemind/internal/adapter/mcp"
	hmnats "github.com/hivemind-swarm/hivemind/internal/adapter/nats"
	"github.com/hivemind-swarm/hivemind/internal/adapter/natskv"
	hmotel "github.com/hivemind-swarm/hivemind/internal/adapter/otel"
	"github.com/hivemind-swarm/hivemind/internal/adapter/postgres"
	"github.com/hivemind-swarm/hivemind/internal/adapter/ristretto"
	"github.com/hivemind-swarm/hivemind/internal/adapter/ws"
	"github.com/hivemind-swarm/hivemind/internal/config"
	"github.com/hivemind-swarm/hivemind/internal/domain/board"
	"github.com/hivemind-swarm/hivemind/internal/logger"
	"github.com/hivemind-swarm/hivemind/internal/middleware"
	"github.com/hivemind-swarm/hivemind/internal/port/broadcast"
	"github.com/hivemind-swarm/hivemind/internal/port/cache"
	"github.com/hivemind-swarm/hivemind/internal/secrets"
	"github.com/hivemind-swarm/hivemind/internal/service"
)

const (
	version = "0.1.0"

	idempotencyBucket = "hivemind_idempotency"
	idempotencyTTL    = 24 * time.Hour
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	log, closer := logger.New(cfg.Logging)
	defer closer.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := hmotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	metrics, err := hmotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	instance := uuid.NewString()

	vault, err := newVault(cfg)
	if err != nil {
		return err
	}
	go reloadOnHangup(ctx, vault)

	var queue *hmnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = hmnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	// The greeter reads the model, which is built after the hub.
	var model *service.ReadModel
	hub := ws.NewHub(cfg.Server.CORSOrigin, func(context.Context) []ws.Message {
		if model == nil {
			return nil
		}
		return greeting(model)
	})

	a, err := newApp(ctx, cfg, appDeps{
		Broadcaster: hub,
		Queue:       queue,
		Metrics:     metrics,
		Passphrase:  promptPassphrase,
		Secrets:     vault,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	model = a.model

	h := &hmhttp.Handlers{Model: a.model, Actions: a.actions, Instance: instance}
	if queue != nil {
		a.actions.SetQueue(queue, instance)
		h.Queue = queue
	}

	if cfg.Postgres.DSN != "" {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		store := postgres.NewJournalStore(pool)
		a.actions.SetJournal(store)
		h.Journal = store
		slog.Info("journal enabled")
	}

	if err := a.model.Refresh(ctx); err != nil {
		slog.Warn("initial refresh failed", "error", err)
	}
	if queue != nil {
		unfollow, err := service.Follow(ctx, queue, instance, a.model)
		if err != nil {
			return err
		}
		defer unfollow()
	}
	go a.model.Tasks.Run(ctx, cfg.Ledger.PollInterval)
	go a.model.Disputes.Run(ctx, cfg.Ledger.PollInterval)

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	idem, err := idempotencyStore(ctx, queue)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(hmhttp.SecurityHeaders)
	r.Use(hmhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(hmhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(limiter.Handler)
	r.Use(hmotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.Idempotency(idem, idempotencyTTL))
	hmhttp.MountRoutes(r, h, hub.HandleWS)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Writes wait for confirmations, up to the confirm timeout.
		WriteTimeout: cfg.Ledger.ConfirmTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var mcpSrv *mcp.Server
	if cfg.MCP.Enabled {
		mcpSrv = mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "hivemind",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
			APIKeySource: func() string {
				if k := vault.Get(secrets.MCPAPIKey); k != "" {
					return k
				}
				return cfg.MCP.APIKey
			},
		}, mcp.ServerDeps{Board: a.model})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		slog.Info("mcp server started", "addr", cfg.MCP.Addr)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"read_only", a.signer == nil,
			"instance", instance,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	if mcpSrv != nil {
		if err := mcpSrv.Stop(shutdownCtx); err != nil {
			slog.Error("mcp shutdown error", "error", err)
		}
	}
	if queue != nil {
		if err := queue.Drain(); err != nil {
			slog.Error("nats drain error", "error", err)
		}
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Error("otel shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// idempotencyStore shares recorded write responses between instances through
// NATS KV when connected and keeps them in process otherwise.
func idempotencyStore(ctx context.Context, q *hmnats.Queue) (cache.Cache, error) {
	if q != nil {
		return natskv.Open(ctx, q.JetStream(), idempotencyBucket, idempotencyTTL)
	}
	return ristretto.New(8)
}

// reloadOnHangup re-reads the secrets on every SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, v *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := v.Reload(); err != nil {
				slog.Error("secrets reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "keys", v.Keys())
		}
	}
}

// greeting is the current board snapshot sent to a fresh WebSocket client.
func greeting(m *service.ReadModel) []ws.Message {
	tasks := m.Tasks.Items()
	var msgs []ws.Message
	if msg, err := ws.NewMessage(broadcast.EventTasksRefreshed, board.Summarize(tasks)); err == nil {
		msgs = append(msgs, msg)
	}
	if msg, err := ws.NewMessage(broadcast.EventDisputesRefreshed, board.Overview(m.Disputes.Items(), tasks)); err == nil {
		msgs = append(msgs, msg)
	}
	return msgs
}

func promptPassphrase() (string, error) {
	if !isTerminal(os.Stdin) {
		return "", errors.New("keystore passphrase required: set HIVEMIND_KEYSTORE_PASSPHRASE")
	}
	return readPassword("Keystore passphrase: ")
}
