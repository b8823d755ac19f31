package dashboard

import (
	"sort"

	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/domain"
)

// TransactionFilter narrows TransactionsView. Empty fields match everything.
type TransactionFilter struct {
	Month  string
	Method domain.Method
}

// TransactionsView returns the snapshot's transactions, newest logical date first.
// Transactions sharing a date keep their source order.
func TransactionsView(snap *data.Snapshot, filter TransactionFilter) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		if filter.Month != "" && calendar.MonthOf(tx.LogicalDate) != filter.Month {
			continue
		}
		if filter.Method != "" && tx.Method != filter.Method {
			continue
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LogicalDate > out[j].LogicalDate
	})
	return out
}
