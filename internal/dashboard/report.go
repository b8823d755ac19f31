// Package dashboard assembles the engine series and the team table into the
// payload served to the dashboard front end.
package dashboard

import (
	"time"

	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/domain"
	"github.com/atmagaming/finances/internal/engine"
)

// Card labels.
const (
	CardMonthlyPaid    = "Monthly Paid"
	CardMonthlyAccrued = "Monthly Accrued"
	CardMonthlyTotal   = "Monthly Total"
)

// Card is one headline figure.
type Card struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// TeamRow summarizes one active contributor across their compensation rows.
type TeamRow struct {
	PersonID          string  `json:"personId"`
	Name              string  `json:"name"`
	HoursPerWeek      float64 `json:"hoursPerWeek"`
	PaidRate          float64 `json:"paidRate"`
	InvestedRate      float64 `json:"investedRate"`
	MonthlyPaid       float64 `json:"monthlyPaid"`
	MonthlyAccrued    float64 `json:"monthlyAccrued"`
	MonthlyTotal      float64 `json:"monthlyTotal"`
	CurrentInvestment float64 `json:"currentInvestment"`
	CurrentShare      float64 `json:"currentShare"`
	ProjectedShare    float64 `json:"projectedShare"`
}

// Report is the full dashboard payload.
type Report struct {
	Cards              []Card                   `json:"cards"`
	MonthlyExpenses    []domain.MonthlyExpense  `json:"monthlyExpenses"`
	Projections        []domain.ProjectionMonth `json:"projections"`
	RevenueShares      []domain.RevenueShare    `json:"revenueShares"`
	InvestmentTimeline []domain.InvestmentPoint `json:"investmentTimeline"`
	TeamRows           []TeamRow                `json:"teamRows"`
	TeamCount          int                      `json:"teamCount"`
	ReleaseMonth       string                   `json:"releaseMonth"`
	GeneratedAt        time.Time                `json:"generatedAt"`
}

// Build computes the report for snap. Projections and shares run through
// releaseMonth; the projected share of each team member is read at that month.
func Build(snap *data.Snapshot, releaseMonth string, now time.Time) Report {
	payeePerson := snap.PayeePersonMap()
	personNames := snap.PersonNames()

	var active []domain.SensitiveData
	for _, row := range snap.SensitiveData {
		if row.IsActive() {
			active = append(active, row)
		}
	}

	revenueShares := engine.RevenueShares(snap.Transactions, snap.SensitiveData, payeePerson, personNames, releaseMonth, now)

	report := Report{
		Cards:              cards(active),
		MonthlyExpenses:    engine.AggregateExpensesByMonth(snap.Transactions),
		Projections:        engine.ProjectExpenses(snap.SensitiveData, releaseMonth, now),
		RevenueShares:      revenueShares,
		InvestmentTimeline: engine.InvestmentTimeline(snap.Transactions, snap.SensitiveData, payeePerson, personNames, releaseMonth, now),
		TeamRows:           teamRows(snap, active, personNames, revenueShares, releaseMonth),
		ReleaseMonth:       releaseMonth,
		GeneratedAt:        now,
	}
	report.TeamCount = len(report.TeamRows)
	return report
}

func cards(active []domain.SensitiveData) []Card {
	var paid, accrued float64
	for _, row := range active {
		paid += row.MonthlyPaid
		accrued += row.MonthlyInvested
	}
	paid = engine.Round(paid, 0)
	accrued = engine.Round(accrued, 0)

	return []Card{
		{Label: CardMonthlyPaid, Value: paid},
		{Label: CardMonthlyAccrued, Value: accrued},
		{Label: CardMonthlyTotal, Value: paid + accrued},
	}
}

func teamRows(
	snap *data.Snapshot,
	active []domain.SensitiveData,
	personNames map[string]string,
	shares []domain.RevenueShare,
	releaseMonth string,
) []TeamRow {
	investment := make(map[string]float64)
	for _, p := range snap.Payees {
		if p.PersonID != "" {
			investment[p.PersonID] += p.Accrued + p.Invested
		}
	}

	var current, projected map[string]float64
	if len(shares) > 0 {
		current = shares[len(shares)-1].Shares
	}
	for _, s := range shares {
		if s.Month == releaseMonth {
			projected = s.Shares
			break
		}
	}

	var order []string
	byPerson := make(map[string][]domain.SensitiveData)
	for _, row := range active {
		if _, seen := byPerson[row.PersonID]; !seen {
			order = append(order, row.PersonID)
		}
		byPerson[row.PersonID] = append(byPerson[row.PersonID], row)
	}

	rows := make([]TeamRow, 0, len(order))
	for _, personID := range order {
		name := engine.DisplayName(personNames, personID)
		r := TeamRow{
			PersonID:          personID,
			Name:              name,
			CurrentInvestment: investment[personID],
			CurrentShare:      current[name],
			ProjectedShare:    projected[name],
		}

		var weightedPaid, weightedInvested float64
		for _, sd := range byPerson[personID] {
			r.HoursPerWeek += sd.HoursPerWeek
			weightedPaid += sd.HoursPerWeek * sd.HourlyPaid
			weightedInvested += sd.HoursPerWeek * sd.HourlyInvested
			r.MonthlyPaid += sd.MonthlyPaid
			r.MonthlyAccrued += sd.MonthlyInvested
			r.MonthlyTotal += sd.MonthlyTotal
		}
		if r.HoursPerWeek > 0 {
			r.PaidRate = weightedPaid / r.HoursPerWeek
			r.InvestedRate = weightedInvested / r.HoursPerWeek
		}

		rows = append(rows, r)
	}
	return rows
}
