// Package bigquery exports mirrored ledger and compensation data to a BigQuery
// dataset for ad hoc analysis.
//
// Each mirror run appends a batch of rows tagged with a sync id. Readers look at
// the newest batch only; batches older than the retention window are pruned.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/logger"
	"github.com/google/uuid"
)

const (
	transactionsTable = "transactions"
	compensationTable = "compensation"
	defaultRetention  = 7 * 24 * time.Hour
	insertChunkSize   = 500
)

// Warehouse writes mirror batches to a dataset.
type Warehouse struct {
	client    *bigquery.Client
	projectID string
	datasetID string

	// Retention is how long superseded batches are kept.
	Retention time.Duration
	now       func() time.Time
}

// NewWarehouse creates a Warehouse with its own BigQuery client.
func NewWarehouse(ctx context.Context, projectID, datasetID string) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return &Warehouse{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		Retention: defaultRetention,
		now:       time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

func (w *Warehouse) table(name string) string {
	return "`" + w.projectID + "." + w.datasetID + "." + name + "`"
}

// ReplaceAll appends snap as a new batch and prunes expired batches.
// Pruning failures are logged, not returned: the new batch is already visible.
func (w *Warehouse) ReplaceAll(ctx context.Context, snap *data.Snapshot) error {
	log := logger.FromContext(ctx)
	b := batch{id: uuid.NewString(), at: w.now().UTC()}

	payeePerson := snap.PayeePersonMap()
	txRows := make([]*TransactionRow, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		txRows = append(txRows, newTransactionRow(b, tx, payeePerson))
	}

	personNames := snap.PersonNames()
	compRows := make([]*CompensationRow, 0, len(snap.SensitiveData))
	for _, sd := range snap.SensitiveData {
		compRows = append(compRows, newCompensationRow(b, sd, personNames))
	}

	if err := putChunked(ctx, w.client.DatasetInProject(w.projectID, w.datasetID).Table(transactionsTable).Inserter(), txRows); err != nil {
		return fmt.Errorf("ReplaceAll: inserting transactions: %w", err)
	}
	if err := putChunked(ctx, w.client.DatasetInProject(w.projectID, w.datasetID).Table(compensationTable).Inserter(), compRows); err != nil {
		return fmt.Errorf("ReplaceAll: inserting compensation: %w", err)
	}

	log.Info().
		Str("sync_id", b.id).
		Int("transactions", len(txRows)).
		Int("compensation", len(compRows)).
		Msg("Warehouse batch written")

	if err := w.pruneBefore(ctx, b.at.Add(-w.Retention)); err != nil {
		log.Warn().Err(err).Str("sync_id", b.id).Msg("Failed to prune old warehouse batches")
	}

	return nil
}

func putChunked[T any](ctx context.Context, inserter *bigquery.Inserter, rows []T) error {
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Warehouse) pruneBefore(ctx context.Context, cutoff time.Time) error {
	for _, name := range []string{transactionsTable, compensationTable} {
		q := w.client.Query(`
			DELETE FROM ` + w.table(name) + `
			WHERE synced_at < @cutoff
		`)
		q.Parameters = []bigquery.QueryParameter{
			{Name: "cutoff", Value: cutoff},
		}

		if err := runAndWait(ctx, q); err != nil {
			return fmt.Errorf("prune %s: %w", name, err)
		}
	}
	return nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
