// Package mirror copies the current workspace tables into another backend.
package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/logger"
)

// Sink receives a full copy of the tables, replacing whatever it held before.
type Sink interface {
	ReplaceAll(ctx context.Context, snap *data.Snapshot) error
}

// Stats counts the rows copied by one run.
type Stats struct {
	People        int           `json:"people"`
	SensitiveData int           `json:"sensitiveData"`
	Payees        int           `json:"payees"`
	Transactions  int           `json:"transactions"`
	Vacations     int           `json:"vacations"`
	DryRun        bool          `json:"dryRun"`
	Duration      time.Duration `json:"duration"`
}

// Total is the number of rows across all tables.
func (s Stats) Total() int {
	return s.People + s.SensitiveData + s.Payees + s.Transactions + s.Vacations
}

// Run reads every table from source and writes them to sink. With dryRun the
// tables are read and counted but sink is left untouched.
func Run(ctx context.Context, source data.Source, sink Sink, dryRun bool) (Stats, error) {
	log := logger.FromContext(ctx)
	started := time.Now()

	snap, err := data.Fetch(ctx, source, started)
	if err != nil {
		return Stats{}, fmt.Errorf("Run: fetching source: %w", err)
	}

	stats := Stats{
		People:        len(snap.People),
		SensitiveData: len(snap.SensitiveData),
		Payees:        len(snap.Payees),
		Transactions:  len(snap.Transactions),
		Vacations:     len(snap.Vacations),
		DryRun:        dryRun,
	}

	log.Info().
		Int("people", stats.People).
		Int("sensitive_data", stats.SensitiveData).
		Int("payees", stats.Payees).
		Int("transactions", stats.Transactions).
		Int("vacations", stats.Vacations).
		Bool("dry_run", dryRun).
		Msg("Fetched tables for mirror")

	if dryRun {
		stats.Duration = time.Since(started)
		return stats, nil
	}

	if err := sink.ReplaceAll(ctx, snap); err != nil {
		return stats, fmt.Errorf("Run: writing sink: %w", err)
	}

	stats.Duration = time.Since(started)
	log.Info().
		Int("rows", stats.Total()).
		Dur("duration", stats.Duration).
		Msg("Mirror complete")

	return stats, nil
}
