package engine

import (
	"time"

	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/domain"
)

// InvestmentTimeline reports what each contributor added in every month from the
// first ledger month through endMonth. Confirmed months use the ledger as-is;
// later months ignore the ledger and forecast from active invested rates.
// Values are per-month, not cumulative; see Cumulate.
func InvestmentTimeline(
	txs []domain.Transaction,
	rows []domain.SensitiveData,
	payeePerson map[string]string,
	personNames map[string]string,
	endMonth string,
	now time.Time,
) []domain.InvestmentPoint {
	if len(txs) == 0 {
		return []domain.InvestmentPoint{}
	}

	ledger := partitionContributions(txs, payeePerson)
	lastConfirmed := calendar.LastConfirmedMonth(now)
	months := ledgerRange(txs, endMonth)
	result := make([]domain.InvestmentPoint, 0, len(months))

	for _, month := range months {
		projected := month > lastConfirmed
		values := make(map[string]float64)

		if !projected {
			for _, bucket := range []*personAmounts{ledger.accrued[month], ledger.invested[month]} {
				if bucket == nil {
					continue
				}
				for _, personID := range bucket.order {
					values[DisplayName(personNames, personID)] += bucket.amounts[personID]
				}
			}
		} else {
			mondays := float64(calendar.CountMondaysIn(month))
			for _, row := range rows {
				if !row.IsActive() || row.HourlyInvested == 0 {
					continue
				}
				values[DisplayName(personNames, row.PersonID)] += Round(row.WeeklyAccrued()*mondays, 0)
			}
		}

		result = append(result, domain.InvestmentPoint{
			Month:       month,
			Values:      values,
			IsProjected: projected,
		})
	}

	return result
}

// Cumulate turns per-month timeline values into running totals per name.
// The input is left untouched.
func Cumulate(points []domain.InvestmentPoint) []domain.InvestmentPoint {
	running := make(map[string]float64)
	result := make([]domain.InvestmentPoint, 0, len(points))

	for _, point := range points {
		for name, v := range point.Values {
			running[name] += v
		}
		values := make(map[string]float64, len(running))
		for name, v := range running {
			values[name] = v
		}
		result = append(result, domain.InvestmentPoint{
			Month:       point.Month,
			Values:      values,
			IsProjected: point.IsProjected,
		})
	}

	return result
}
