package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/atmagaming/finances/internal/config"
	infraBQ "github.com/atmagaming/finances/internal/infra/bigquery"
	"github.com/atmagaming/finances/internal/logger"
	"github.com/atmagaming/finances/internal/store/sqlite"
)

type options struct {
	target    string
	dbPath    string
	projectID string
	datasetID string
	appliedBy string
}

func main() {
	cfg := config.Load()

	var opts options
	flag.StringVar(&opts.target, "target", "sqlite", "Schema to migrate: sqlite or bigquery")
	flag.StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "SQLite database path (or set SQLITE_DB_PATH env)")
	flag.StringVar(&opts.projectID, "project", cfg.BigQueryProject, "GCP project ID (or set BIGQUERY_PROJECT env)")
	flag.StringVar(&opts.datasetID, "dataset", cfg.BigQueryDataset, "BigQuery dataset ID (or set BIGQUERY_DATASET env)")
	flag.StringVar(&opts.appliedBy, "applied-by", "migrate-cli", "Name of the tool applying migrations")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if err := run(ctx, opts); err != nil {
		log.Fatal().Err(err).Str("target", opts.target).Msg("Migration failed")
	}
}

func run(ctx context.Context, opts options) error {
	log := logger.FromContext(ctx)

	switch opts.target {
	case "sqlite":
		if opts.dbPath == "" {
			return fmt.Errorf("-db is required")
		}
		if err := sqlite.RunMigrations(opts.dbPath); err != nil {
			return err
		}
		log.Info().Str("db", opts.dbPath).Msg("SQLite schema up to date")
		return nil

	case "bigquery":
		if opts.projectID == "" {
			return fmt.Errorf("-project is required. Please specify your GCP project ID")
		}
		wh, err := infraBQ.NewWarehouse(ctx, opts.projectID, opts.datasetID)
		if err != nil {
			return err
		}
		defer wh.Close()

		log.Info().Str("project", opts.projectID).Str("dataset", opts.datasetID).Msg("Connected to BigQuery")
		_, err = wh.Migrate(ctx, opts.appliedBy)
		return err

	default:
		return fmt.Errorf("unknown target %q: must be sqlite or bigquery", opts.target)
	}
}
