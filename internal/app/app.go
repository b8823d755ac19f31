// Package app builds the sources, sinks and job handlers the commands share.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/atmagaming/finances/internal/config"
	"github.com/atmagaming/finances/internal/data"
	infraBQ "github.com/atmagaming/finances/internal/infra/bigquery"
	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/mirror"
	"github.com/atmagaming/finances/internal/notion"
	"github.com/atmagaming/finances/internal/store/sqlite"
)

// ErrNotionNotConfigured is returned when a Notion read is requested without
// the API key and every database id.
var ErrNotionNotConfigured = errors.New("notion workspace is not configured")

func nop() error { return nil }

// NotionSource reads the live workspace.
func NotionSource(cfg *config.Config) (*notion.Source, error) {
	dbs := cfg.NotionDatabases()
	if cfg.NotionAPIKey == "" || dbs.People == "" || dbs.SensitiveData == "" ||
		dbs.Payees == "" || dbs.Transactions == "" || dbs.Vacations == "" {
		return nil, ErrNotionNotConfigured
	}
	return notion.NewSource(notion.NewClient(cfg.NotionAPIKey), dbs), nil
}

// OpenSource returns the data source selected by DATA_BACKEND and a func
// releasing it.
func OpenSource(cfg *config.Config) (data.Source, func() error, error) {
	switch cfg.DataBackend {
	case config.BackendNotion:
		src, err := NotionSource(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenSource: %w", err)
		}
		return src, nop, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenSource: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("OpenSource: unknown backend %q", cfg.DataBackend)
	}
}

// MirrorTargets lists the targets the configuration can write to.
func MirrorTargets(cfg *config.Config) []jobs.Target {
	var targets []jobs.Target
	if cfg.SQLiteDBPath != "" {
		targets = append(targets, jobs.TargetSQLite)
	}
	if cfg.BigQueryProject != "" {
		targets = append(targets, jobs.TargetBigQuery)
	}
	return targets
}

// OpenSink opens the mirror destination for target and a func releasing it.
func OpenSink(ctx context.Context, cfg *config.Config, target jobs.Target) (mirror.Sink, func() error, error) {
	switch target {
	case jobs.TargetSQLite:
		if cfg.SQLiteDBPath == "" {
			return nil, nil, errors.New("OpenSink: SQLITE_DB_PATH is not set")
		}
		store, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenSink: %w", err)
		}
		return store, store.Close, nil
	case jobs.TargetBigQuery:
		if cfg.BigQueryProject == "" {
			return nil, nil, errors.New("OpenSink: BIGQUERY_PROJECT is not set")
		}
		wh, err := infraBQ.NewWarehouse(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenSink: %w", err)
		}
		return wh, wh.Close, nil
	default:
		return nil, nil, fmt.Errorf("OpenSink: unknown target %q", target)
	}
}

// Mirror copies the Notion workspace into target.
func Mirror(ctx context.Context, cfg *config.Config, target jobs.Target, dryRun bool) (mirror.Stats, error) {
	src, err := NotionSource(cfg)
	if err != nil {
		return mirror.Stats{}, fmt.Errorf("Mirror: %w", err)
	}

	var sink mirror.Sink
	if !dryRun {
		s, closeSink, err := OpenSink(ctx, cfg, target)
		if err != nil {
			return mirror.Stats{}, fmt.Errorf("Mirror: %w", err)
		}
		defer closeSink()
		sink = s
	}

	stats, err := mirror.Run(ctx, src, sink, dryRun)
	if err != nil {
		return stats, fmt.Errorf("Mirror: %w", err)
	}
	return stats, nil
}

// MirrorJobHandler runs mirror jobs against cfg. onSuccess, when set, is
// called after every completed non-dry run.
func MirrorJobHandler(cfg *config.Config, onSuccess func(jobs.Target)) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.MirrorJob) error {
		stats, err := Mirror(ctx, cfg, job.Target, job.DryRun)
		if err != nil {
			return err
		}
		job.Stats = &stats

		if onSuccess != nil && !job.DryRun {
			onSuccess(job.Target)
		}
		return nil
	}
}
