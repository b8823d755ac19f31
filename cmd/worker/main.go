package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atmagaming/finances/internal/app"
	"github.com/atmagaming/finances/internal/config"
	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/jobs/amqp"
	"github.com/atmagaming/finances/internal/jobs/inmemory"
	"github.com/atmagaming/finances/internal/logger"
)

// queue is a job transport this process both feeds and drains.
type queue interface {
	jobs.Publisher
	jobs.Consumer
}

func main() {
	cfg := config.Load()

	interval := flag.Duration("interval", time.Hour, "Time between mirror runs")
	once := flag.Bool("once", false, "Mirror every target once and exit")
	schedule := flag.Bool("schedule", true, "Enqueue mirror jobs every -interval; disable on extra AMQP consumers")
	flag.Parse()

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	targets := app.MirrorTargets(cfg)
	if len(targets) == 0 {
		log.Fatal().Msg("No mirror targets configured: set SQLITE_DB_PATH or BIGQUERY_PROJECT")
	}
	if _, err := app.NotionSource(cfg); err != nil {
		log.Fatal().Err(err).Msg("Mirror worker needs the Notion workspace")
	}

	jobStore := inmemory.NewStore()

	var jobQueue queue
	if cfg.AMQPURL != "" {
		q, err := amqp.NewQueue(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, jobStore)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP")
		}
		jobQueue = q
	} else {
		jobQueue = inmemory.NewQueue(len(targets)*2, 1, jobStore)
	}

	log.Info().Interface("targets", targets).Dur("interval", *interval).Msg("Starting mirror worker")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	if err := jobQueue.Start(ctx, app.MirrorJobHandler(cfg, nil)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	enqueue := func() {
		for _, target := range targets {
			if err := jobQueue.PublishMirror(ctx, &jobs.MirrorJob{Target: target}); err != nil {
				log.Error().Err(err).Str("target", string(target)).Msg("Failed to enqueue mirror job")
			}
		}
	}

	if *once {
		enqueue()
		waitIdle(ctx, jobStore)
		shutdown(jobQueue)
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var tick <-chan time.Time
	if *schedule {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		tick = ticker.C
		enqueue()
	}

	for {
		select {
		case <-tick:
			enqueue()
		case <-quit:
			log.Info().Msg("Shutting down worker service...")
			shutdown(jobQueue)
			cancel()
			return
		}
	}
}

// waitIdle blocks until no job is pending, running or waiting for a retry.
func waitIdle(ctx context.Context, store jobs.JobStore) {
	for {
		busy := 0
		for _, status := range []jobs.JobStatus{jobs.JobStatusPending, jobs.JobStatusRunning, jobs.JobStatusRetrying} {
			list, err := store.ListJobs(ctx, jobs.JobFilter{Status: status})
			if err != nil {
				lg := logger.FromContext(ctx)
				lg.Error().Err(err).Msg("Failed to list jobs")
				return
			}
			busy += len(list)
		}
		if busy == 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func shutdown(q queue) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the queue and wait for in-flight jobs
	if err := q.Stop(shutdownCtx); err != nil {
		lg := logger.FromContext(shutdownCtx)
		lg.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := q.Close(); err != nil {
		lg := logger.FromContext(shutdownCtx)
		lg.Error().Err(err).Msg("Failed to close job queue")
	}
}
