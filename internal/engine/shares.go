package engine

import (
	"time"

	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/domain"
)

// RevenueShares tracks each contributor's cumulative contribution (accrued pay plus
// capital invested) and reports it as a percentage of the running total, one row
// per month from the first ledger month through endMonth.
//
// Months after the confirmation cutoff additionally accrue every active row's
// invested rate for that month's Mondays. Months with nothing contributed yet are
// omitted.
func RevenueShares(
	txs []domain.Transaction,
	rows []domain.SensitiveData,
	payeePerson map[string]string,
	personNames map[string]string,
	endMonth string,
	now time.Time,
) []domain.RevenueShare {
	if len(txs) == 0 {
		return []domain.RevenueShare{}
	}

	ledger := partitionContributions(txs, payeePerson)
	lastConfirmed := calendar.LastConfirmedMonth(now)
	cumulative := newPersonAmounts()
	result := []domain.RevenueShare{}

	for _, month := range ledgerRange(txs, endMonth) {
		cumulative.addAll(ledger.accrued[month])
		cumulative.addAll(ledger.invested[month])

		projected := month > lastConfirmed
		if projected {
			mondays := float64(calendar.CountMondaysIn(month))
			for _, row := range rows {
				if !row.IsActive() || row.HourlyInvested == 0 {
					continue
				}
				cumulative.add(row.PersonID, row.WeeklyAccrued()*mondays)
			}
		}

		total := cumulative.total()
		if total == 0 {
			continue
		}

		shares := make(map[string]float64)
		for _, personID := range cumulative.order {
			pct := cumulative.amounts[personID] / total * 100
			if pct >= MinSharePercent {
				shares[DisplayName(personNames, personID)] = Round(pct, 2)
			}
		}

		result = append(result, domain.RevenueShare{
			Month:       month,
			Shares:      shares,
			IsProjected: projected,
		})
	}

	return result
}
