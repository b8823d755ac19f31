package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atmagaming/finances/internal/api/handlers"
	"github.com/atmagaming/finances/internal/api/middleware"
	"github.com/atmagaming/finances/internal/app"
	"github.com/atmagaming/finances/internal/cache"
	"github.com/atmagaming/finances/internal/config"
	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/jobs/amqp"
	"github.com/atmagaming/finances/internal/jobs/inmemory"
	"github.com/atmagaming/finances/internal/logger"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	var (
		port    = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		workers = flag.Int("workers", 1, "Number of concurrent mirror jobs")
	)
	flag.Parse()
	cfg.Port = *port

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Initialize data access
	source, closeSource, err := app.OpenSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open data source")
	}
	defer closeSource()

	service := data.NewService(source, cache.NewTTL(cfg.CacheTTL), nil)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var (
		publisher jobs.Publisher
		consumer  jobs.Consumer
	)
	if cfg.AMQPURL != "" {
		// Jobs run in cmd/worker; this process only records that they were queued.
		queue, err := amqp.NewQueue(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, jobStore)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP")
		}
		publisher = queue
		log.Info().Str("queue", cfg.AMQPQueue).Msg("Publishing mirror jobs to AMQP")
	} else {
		queue := inmemory.NewQueue(100, *workers, jobStore)

		// A mirror into the file the dashboard reads makes the cached tables stale.
		jobHandler := app.MirrorJobHandler(cfg, func(target jobs.Target) {
			if target == jobs.TargetSQLite && cfg.DataBackend == config.BackendSQLite {
				service.Refresh()
			}
		})

		// Start worker in background to process jobs
		if err := queue.Start(workerCtx, jobHandler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}
		publisher, consumer = queue, queue
	}

	targets := app.MirrorTargets(cfg)
	log.Info().
		Str("backend", cfg.DataBackend).
		Interface("mirror_targets", targets).
		Str("release_month", cfg.ReleaseMonth).
		Msg("Data layer ready")

	// Initialize handlers
	mux := handlers.Routes(
		handlers.NewDataHandler(service, cfg.ReleaseMonth),
		handlers.NewMirrorHandler(publisher, targets...),
		handlers.NewJobsHandler(jobStore),
	)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if consumer != nil {
		if err := consumer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancelWorker()

	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
