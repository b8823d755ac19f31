package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/atmagaming/finances/internal/app"
	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/config"
	"github.com/atmagaming/finances/internal/dashboard"
	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/engine"
	infraBQ "github.com/atmagaming/finances/internal/infra/bigquery"
	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/logger"
	"github.com/atmagaming/finances/internal/snapshot"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "expenses":
		runExpenses(cfg, log)
	case "projections":
		runProjections(cfg, log)
	case "shares":
		runShares(cfg, log)
	case "timeline":
		runTimeline(cfg, log)
	case "mirror":
		runMirror(cfg, log)
	case "snapshot":
		runSnapshot(cfg, log)
	case "totals":
		runTotals(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finances CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  expenses     Print confirmed expenses per month")
	fmt.Println("  projections  Print projected expenses through -end")
	fmt.Println("  shares       Print cumulative revenue shares through -end")
	fmt.Println("  timeline     Print the investment timeline through -end")
	fmt.Println("  mirror       Copy the Notion workspace into SQLite or BigQuery")
	fmt.Println("  snapshot     Publish the dashboard report to SNAPSHOT_BUCKET, or read one back")
	fmt.Println("  totals       Print monthly totals from the latest BigQuery mirror")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// load validates cfg and reads every table from the configured backend.
func load(cfg *config.Config, log zerolog.Logger) (context.Context, *data.Snapshot) {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)
	source, closeSource, err := app.OpenSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open data source")
	}
	defer closeSource()

	snap, err := data.Fetch(ctx, source, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load data")
	}
	return ctx, snap
}

// endFlag registers -end, defaulting to the configured release month.
func endFlag(fs *flag.FlagSet, cfg *config.Config) *string {
	return fs.String("end", cfg.ReleaseMonth, "Last month to compute (YYYY-MM)")
}

func checkMonth(log zerolog.Logger, month string) {
	if _, _, err := calendar.ParseMonthStrict(month); err != nil {
		log.Fatal().Err(err).Msg("Invalid -end")
	}
}

func printJSON(log zerolog.Logger, v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runExpenses(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("expenses", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	_, snap := load(cfg, log)
	printJSON(log, engine.AggregateExpensesByMonth(snap.Transactions))
}

func runProjections(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("projections", flag.ExitOnError)
	end := endFlag(fs, cfg)
	fs.Parse(os.Args[2:])
	checkMonth(log, *end)

	_, snap := load(cfg, log)
	printJSON(log, engine.ProjectExpenses(snap.SensitiveData, *end, time.Now()))
}

func runShares(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("shares", flag.ExitOnError)
	end := endFlag(fs, cfg)
	fs.Parse(os.Args[2:])
	checkMonth(log, *end)

	_, snap := load(cfg, log)
	printJSON(log, engine.RevenueShares(
		snap.Transactions, snap.SensitiveData, snap.PayeePersonMap(), snap.PersonNames(), *end, time.Now(),
	))
}

func runTimeline(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("timeline", flag.ExitOnError)
	end := endFlag(fs, cfg)
	cumulative := fs.Bool("cumulative", false, "Print running totals instead of monthly amounts")
	fs.Parse(os.Args[2:])
	checkMonth(log, *end)

	_, snap := load(cfg, log)
	points := engine.InvestmentTimeline(
		snap.Transactions, snap.SensitiveData, snap.PayeePersonMap(), snap.PersonNames(), *end, time.Now(),
	)
	if *cumulative {
		points = engine.Cumulate(points)
	}
	printJSON(log, points)
}

func runMirror(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)
	target := fs.String("target", string(jobs.TargetSQLite), "Mirror target: sqlite or bigquery")
	dryRun := fs.Bool("dry-run", false, "Read and count the tables without writing")
	fs.Parse(os.Args[2:])

	t := jobs.Target(*target)
	if !t.Valid() {
		log.Fatal().Str("target", *target).Msg("Error: -target must be sqlite or bigquery")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	stats, err := app.Mirror(ctx, cfg, t, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Mirror failed")
	}
	printJSON(log, stats)
}

func runSnapshot(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	end := endFlag(fs, cfg)
	bucket := fs.String("bucket", cfg.SnapshotBucket, "GCS bucket (or set SNAPSHOT_BUCKET env)")
	get := fs.String("get", "", "Print a published snapshot by gs:// URI instead of publishing")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	store, err := snapshot.NewGCSStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer store.Close()

	publisher := snapshot.NewPublisher(store, *bucket)

	if *get != "" {
		report, err := publisher.Fetch(ctx, *get)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read snapshot")
		}
		printJSON(log, report)
		return
	}

	if *bucket == "" {
		log.Fatal().Msg("Error: -bucket or SNAPSHOT_BUCKET is required")
	}
	checkMonth(log, *end)

	_, snap := load(cfg, log)
	now := time.Now()
	uri, err := publisher.Publish(ctx, dashboard.Build(snap, *end, now), now)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to publish snapshot")
	}
	fmt.Println(uri)
}

func runTotals(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("totals", flag.ExitOnError)
	project := fs.String("project", cfg.BigQueryProject, "BigQuery project (or set BIGQUERY_PROJECT env)")
	dataset := fs.String("dataset", cfg.BigQueryDataset, "BigQuery dataset (or set BIGQUERY_DATASET env)")
	fs.Parse(os.Args[2:])

	if *project == "" {
		log.Fatal().Msg("Error: -project or BIGQUERY_PROJECT is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	wh, err := infraBQ.NewWarehouse(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to BigQuery")
	}
	defer wh.Close()

	totals, err := wh.MonthlyTotals(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query monthly totals")
	}
	printJSON(log, totals)
}
