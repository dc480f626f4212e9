// secondguess is the decision-evaluation service: a five-stage
// proposer/critic pipeline with confidence adjustment and an append-only
// version store behind a REST API.
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
	"golang.org/x/sync/errgroup"

	sghttp "github.com/Strob0t/SecondGuess/internal/adapter/http"
	"github.com/Strob0t/SecondGuess/internal/adapter/litellm"
	sgnats "github.com/Strob0t/SecondGuess/internal/adapter/nats"
	"github.com/Strob0t/SecondGuess/internal/adapter/otel"
	"github.com/Strob0t/SecondGuess/internal/adapter/postgres"
	"github.com/Strob0t/SecondGuess/internal/adapter/ristretto"
	"github.com/Strob0t/SecondGuess/internal/config"
	"github.com/Strob0t/SecondGuess/internal/logger"
	"github.com/Strob0t/SecondGuess/internal/port/telemetry"
	"github.com/Strob0t/SecondGuess/internal/resilience"
	"github.com/Strob0t/SecondGuess/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.LiteLLM.Model,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	// Telemetry
	shutdownTelemetry, err := otel.Init(ctx, cfg.Telemetry.Endpoint, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}()

	var tracer telemetry.Tracer
	if cfg.Telemetry.Endpoint != "" {
		metrics, err := otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		tracer = otel.NewTracer(metrics)
	}

	// PostgreSQL
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

	// NATS
	queue, err := sgnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Latest-record cache
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- Reasoning ---

	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey, cfg.LiteLLM.Model, cfg.LiteLLM.Timeout)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	engine := litellm.NewEngine(llmClient)

	// --- Services ---

	store := postgres.NewStore(pool)
	workflow := service.NewWorkflow(engine, tracer)
	decisionSvc := service.NewDecisionService(store, workflow, queue, cache)

	// --- HTTP ---

	handlers := &sghttp.Handlers{
		Decisions:  decisionSvc,
		DBPing:     pool.Ping,
		QueueOK:    queue.IsConnected,
		ReasonerOK: llmClient.Health,
	}

	r := chi.NewRouter()

	r.Use(sghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(sghttp.Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(2 * time.Minute))
	if cfg.Telemetry.Endpoint != "" {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	sghttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
