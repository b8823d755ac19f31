package engine

import (
	"sort"
	"time"

	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/domain"
)

// AggregateExpensesByMonth sums the ledger per logical month into payment-method
// buckets, ascending by month. Amounts are absolute USD. Undated transactions are
// skipped; a transaction with an unknown method opens its month but adds nothing.
func AggregateExpensesByMonth(txs []domain.Transaction) []domain.MonthlyExpense {
	byMonth := make(map[string]*domain.MonthlyExpense)

	for _, tx := range txs {
		if tx.LogicalDate == "" {
			continue
		}
		month := calendar.MonthOf(tx.LogicalDate)
		row, ok := byMonth[month]
		if !ok {
			row = &domain.MonthlyExpense{Month: month}
			byMonth[month] = row
		}

		usd := abs(tx.USDEquivalent)
		switch tx.Method {
		case domain.MethodPaid:
			row.Paid += usd
		case domain.MethodAccrued:
			row.Accrued += usd
		case domain.MethodInvested:
			if tx.Amount > 0 {
				row.Investments += usd
			} else {
				row.Invested += usd
			}
		}
	}

	result := make([]domain.MonthlyExpense, 0, len(byMonth))
	for _, row := range byMonth {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result
}

// activeIn reports whether a compensation row overlaps month. The "-31" and "-01"
// suffixes are lexicographic bounds, not real dates.
func activeIn(row domain.SensitiveData, month string) bool {
	if !row.IsActive() {
		return false
	}
	if row.StartDate != "" && row.StartDate > month+"-31" {
		return false
	}
	if row.EndDate != "" && row.EndDate < month+"-01" {
		return false
	}
	return true
}

// ProjectExpenses forecasts paid and accrued cost from the first unconfirmed month
// through endMonth, assuming one payroll cycle per Monday.
func ProjectExpenses(rows []domain.SensitiveData, endMonth string, now time.Time) []domain.ProjectionMonth {
	start := calendar.FirstProjectedMonth(now)
	if start > endMonth {
		return []domain.ProjectionMonth{}
	}

	months := calendar.MonthRange(start, endMonth)
	projections := make([]domain.ProjectionMonth, 0, len(months))

	for _, month := range months {
		mondays := float64(calendar.CountMondaysIn(month))

		var paid, accrued float64
		for _, row := range rows {
			if !activeIn(row, month) {
				continue
			}
			paid += row.WeeklyPaid() * mondays
			accrued += row.WeeklyAccrued() * mondays
		}

		projections = append(projections, domain.ProjectionMonth{
			Month:   month,
			Paid:    Round(paid, 0),
			Accrued: Round(accrued, 0),
			Total:   Round(paid+accrued, 0),
		})
	}

	return projections
}
