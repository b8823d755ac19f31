package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"
)

// MonthlyTotals returns absolute USD totals per logical month and method from the
// newest batch, ordered by month then method.
func (w *Warehouse) MonthlyTotals(ctx context.Context) ([]MonthlyTotalRow, error) {
	q := w.client.Query(`
		WITH latest AS (
			SELECT sync_id
			FROM ` + w.table(transactionsTable) + `
			ORDER BY synced_at DESC
			LIMIT 1
		)
		SELECT
			FORMAT_DATE('%Y-%m', t.logical_date) AS month,
			t.method,
			CAST(SUM(ABS(t.usd_equivalent)) AS FLOAT64) AS total_usd,
			COUNT(*) AS tx_count
		FROM ` + w.table(transactionsTable) + ` t
		INNER JOIN latest USING (sync_id)
		WHERE t.logical_date IS NOT NULL
		GROUP BY month, t.method
		ORDER BY month, t.method
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: query read: %w", err)
	}

	var rows []MonthlyTotalRow
	for {
		var r MonthlyTotalRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("MonthlyTotals: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}
