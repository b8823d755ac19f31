package data

import (
	"context"
	"time"

	"github.com/atmagaming/finances/internal/domain"
	"github.com/atmagaming/finances/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Fetch reads the five tables of src concurrently into a Snapshot taken at now.
// The first failing table cancels the others and fails the fetch.
func Fetch(ctx context.Context, src Source, now time.Time) (*Snapshot, error) {
	log := logger.FromContext(ctx)

	snap := &Snapshot{FetchedAt: now}
	var txs []domain.Transaction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.People, err = src.People(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.SensitiveData, err = src.SensitiveData(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Payees, err = src.Payees(gctx)
		return err
	})
	g.Go(func() (err error) {
		txs, err = src.Transactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Vacations, err = src.Vacations(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.Transactions = ResolvePayeeNames(txs, snap.Payees)

	log.Debug().
		Int("people", len(snap.People)).
		Int("sensitive_data", len(snap.SensitiveData)).
		Int("payees", len(snap.Payees)).
		Int("transactions", len(snap.Transactions)).
		Int("vacations", len(snap.Vacations)).
		Msg("Fetched data snapshot")

	return snap, nil
}
