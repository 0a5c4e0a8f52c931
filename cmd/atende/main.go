// Command atende runs the conversational agent service: it terminates
// the HTTP and WebSocket channels, drives the dialogue engine and owns
// the background conversation sweeper.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atendeco/atende/internal/adapter/cachedstore"
	athttp "github.com/atendeco/atende/internal/adapter/http"
	"github.com/atendeco/atende/internal/adapter/llmintent"
	atnats "github.com/atendeco/atende/internal/adapter/nats"
	"github.com/atendeco/atende/internal/adapter/natskv"
	atotel "github.com/atendeco/atende/internal/adapter/otel"
	"github.com/atendeco/atende/internal/adapter/postgres"
	"github.com/atendeco/atende/internal/adapter/ristretto"
	"github.com/atendeco/atende/internal/adapter/webhookexec"
	"github.com/atendeco/atende/internal/adapter/ws"
	"github.com/atendeco/atende/internal/config"
	"github.com/atendeco/atende/internal/engine"
	"github.com/atendeco/atende/internal/logger"
	"github.com/atendeco/atende/internal/middleware"
	"github.com/atendeco/atende/internal/port/cache"
	"github.com/atendeco/atende/internal/resilience"
	"github.com/atendeco/atende/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"config", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"auth_enabled", cfg.Auth.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownTelemetry, err := atotel.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := atnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	var agentCache cache.Cache
	if cfg.Cache.Shared {
		kv, err := queue.KeyValue(ctx, "atende_agents", cfg.Cache.AgentTTL)
		if err != nil {
			return fmt.Errorf("shared cache: %w", err)
		}
		agentCache = natskv.New(kv)
		slog.Info("agent cache: shared NATS KV bucket")
	} else {
		local, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer local.Close()
		agentCache = local
	}

	st := cachedstore.New(postgres.NewStore(pool), agentCache, cfg.Cache.AgentTTL)

	// --- Ports ---
	analyzer := llmintent.NewClient(cfg.Intent.URL, cfg.Intent.APIKey, cfg.Intent.Model, cfg.Intent.Timeout)
	analyzer.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	executor := webhookexec.NewClient(cfg.Executor.URL, cfg.Executor.Secret, cfg.Executor.Timeout)
	executor.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Engine and event fan-out ---
	metrics, err := atotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	hub := ws.NewHub(cfg.Server.CORSOrigin, nil)
	events := atnats.NewEventPublisher(queue, log)

	eng := engine.New(st, analyzer, executor,
		engine.MultiSink{events, hub, metrics},
		engine.Config{
			StuckThreshold:  cfg.Engine.StuckThreshold,
			ConversationTTL: cfg.Engine.ConversationTTL,
		},
	)
	hub.SetProcessor(eng)

	// --- Services ---
	agentSvc := service.NewAgentService(st)
	convSvc := service.NewConversationService(st, queue, log)
	authSvc := service.NewAuthService(st)

	go convSvc.StartSweeper(ctx, cfg.Engine.SweepInterval)

	// --- HTTP ---
	handlers := &athttp.Handlers{
		Processor:     eng,
		Agents:        agentSvc,
		Conversations: convSvc,
		Auth:          authSvc,
		Pool:          pool,
		Queue:         queue,
		Intent:        analyzer,
	}

	r := chi.NewRouter()
	r.Use(athttp.SecurityHeaders)
	r.Use(athttp.CORS(cfg.Server.CORSOrigin))
	r.Use(athttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(atotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.TenantID)
	if cfg.Server.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		defer rl.StartCleanup(time.Minute, 10*time.Minute)()
		r.Use(rl.Handler)
	}
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))

	// WebSocket endpoint; sessions detach from the request deadline.
	r.Get("/ws", hub.HandleWS)

	athttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
