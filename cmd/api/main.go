// Package main is the entry point for the ocrplane API server.
// One process carries the whole flow: authenticated uploads land in the
// workspace, a bounded worker pool drives the OCR pipeline, and the same
// HTTP surface answers status and result queries.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"ocrplane/internal/auth"
	"ocrplane/internal/config"
	"ocrplane/internal/logger"
	"ocrplane/internal/observability"
	"ocrplane/internal/pipeline"
	"ocrplane/internal/server"
	"ocrplane/internal/server/handlers"
	"ocrplane/internal/store"
	"ocrplane/internal/worker"
	"ocrplane/internal/workspace"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default: ocrplane.yaml in current directory)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, closeLog, err := logger.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logg)

	ctx := context.Background()

	// Tracing activates only when a collector endpoint is configured.
	if cfg.Observability.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "ocrplane-api", cfg.Observability.OTLPEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logg.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics("ocrplane-api")
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logg.Error("failed to shutdown metrics", "error", err)
		}
	}()

	// Workspace holds uploaded documents and per-job pipeline output.
	ws := workspace.New(cfg.Upload.WorkDir)
	if err := ws.EnsureRoot(); err != nil {
		log.Fatalf("Workspace unusable: %v", err)
	}
	logg.Info("workspace ready", "root", ws.Root())

	registry := store.NewRegistry()

	// Select the pipeline runner based on configuration.
	opts := pipeline.Options{
		Command:        cfg.Pipeline.Command,
		Markdown:       cfg.Pipeline.Markdown,
		ExtractTables:  cfg.Pipeline.ExtractTables,
		ExtractFigures: cfg.Pipeline.ExtractFigures,
		DockerImage:    cfg.Pipeline.DockerImage,
	}
	var runner pipeline.Runner
	switch cfg.Pipeline.Runtime {
	case "docker":
		dockerRunner, err := pipeline.NewDockerRunner(opts, logg)
		if err != nil {
			log.Fatalf("Failed to create Docker runner: %v", err)
		}
		runner = dockerRunner
		logg.Info("using docker runner", "image", cfg.Pipeline.DockerImage)
	default:
		runner = pipeline.NewExecRunner(opts, logg)
		logg.Info("using exec runner", "command", cfg.Pipeline.Command)
	}

	proc := worker.NewJobProcessor(registry, ws, runner, cfg.Pipeline.Timeout, logg)
	pool := worker.NewPool(proc, registry, logg,
		worker.WithWorkers(cfg.Pipeline.Workers),
		worker.WithQueueSize(cfg.Pipeline.QueueSize),
		worker.WithTimeout(cfg.Pipeline.Timeout),
	)
	pool.Start()

	// Observable gauges read live state only when scraped.
	meter := otel.Meter("ocrplane-api")
	_, err = meter.Int64ObservableGauge("ocrplane.queue.backlog",
		metric.WithDescription("Jobs waiting in the dispatch buffer"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(pool.Backlog()))
			return nil
		}),
	)
	if err != nil {
		logg.Warn("failed to register backlog gauge", "error", err)
	}
	_, err = meter.Int64ObservableGauge("ocrplane.jobs.registered",
		metric.WithDescription("Jobs tracked in the registry since startup"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(registry.Len()))
			return nil
		}),
	)
	if err != nil {
		logg.Warn("failed to register registry gauge", "error", err)
	}

	// Start Server
	addr := cfg.Addr()
	srv := server.New(addr, handlers.Config{
		Title:             cfg.App.Title,
		Registry:          registry,
		Credentials:       auth.NewCredentialStore(cfg.Security.Users),
		Tokens:            auth.NewTokenService(cfg.Security.SecretKey),
		Workspace:         ws,
		Dispatcher:        pool,
		TokenTTL:          cfg.Security.TokenTTL,
		MaxFileSizeMB:     cfg.Upload.MaxFileSizeMB,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		PDFPreflight:      cfg.Upload.PDFPreflight,
		Logger:            logg,
	}, metricsHandler)

	go func() {
		logg.Info("ocrplane starting", "addr", addr, "workers", cfg.Pipeline.Workers)
		if err := srv.Run(ctx); err != nil {
			logg.Error("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", "error", err)
	}

	// Intake is closed; give running pipelines a window to finish.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDrain()
	if err := pool.Shutdown(drainCtx); err != nil {
		logg.Error("worker pool did not drain", "error", err)
	}

	logg.Info("server exited properly")
}
