// Package engine turns a transaction ledger and compensation records into the
// dashboard series: monthly expenses, forward projections, revenue shares and the
// investment timeline.
//
// Every function is pure. The confirmation boundary depends on the current time,
// which callers pass in explicitly.
package engine

import (
	"math"
	"sort"

	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/domain"
	"github.com/shopspring/decimal"
)

// MinSharePercent is the smallest share reported; smaller shares are dropped, not redistributed.
const MinSharePercent = 0.5

// nameFallbackLen is how much of a person id stands in for a missing display name.
const nameFallbackLen = 8

var half = decimal.NewFromFloat(0.5)

// Round rounds the float x*10^places to the nearest integer, halves toward +Inf,
// and scales back. The product is rounded, not x itself, so 1.005 (stored as
// 1.00499...) becomes 1 and -2.5 becomes -2.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scaled := decimal.NewFromFloat(x * math.Pow10(int(places)))
	return scaled.Add(half).Floor().Shift(-places).InexactFloat64()
}

// DisplayName resolves a person id to its display name, falling back to the id prefix.
func DisplayName(personNames map[string]string, personID string) string {
	if name, ok := personNames[personID]; ok {
		return name
	}
	if len(personID) > nameFallbackLen {
		return personID[:nameFallbackLen]
	}
	return personID
}

// ledgerRange is the month span covered by the ledger: from its earliest dated
// transaction through endMonth.
func ledgerRange(txs []domain.Transaction, endMonth string) []string {
	var dates []string
	for _, tx := range txs {
		if tx.LogicalDate != "" {
			dates = append(dates, tx.LogicalDate)
		}
	}

	first := endMonth
	if len(dates) > 0 {
		sort.Strings(dates)
		first = dates[0]
	}
	return calendar.MonthRange(calendar.MonthOf(first), endMonth)
}

// personAmounts accumulates USD per person, remembering first-seen order so sums
// over it are reproducible.
type personAmounts struct {
	order   []string
	amounts map[string]float64
}

func newPersonAmounts() *personAmounts {
	return &personAmounts{amounts: make(map[string]float64)}
}

func (p *personAmounts) add(personID string, usd float64) {
	if _, ok := p.amounts[personID]; !ok {
		p.order = append(p.order, personID)
	}
	p.amounts[personID] += usd
}

func (p *personAmounts) addAll(other *personAmounts) {
	if other == nil {
		return
	}
	for _, id := range other.order {
		p.add(id, other.amounts[id])
	}
}

func (p *personAmounts) total() float64 {
	var sum float64
	for _, id := range p.order {
		sum += p.amounts[id]
	}
	return sum
}

// contributions holds the person-attributed ledger, keyed by logical month.
type contributions struct {
	accrued  map[string]*personAmounts
	invested map[string]*personAmounts
}

// partitionContributions buckets accrued and positive invested transactions by
// month and person. Transactions whose payee is not a person are left out.
func partitionContributions(txs []domain.Transaction, payeePerson map[string]string) contributions {
	c := contributions{
		accrued:  make(map[string]*personAmounts),
		invested: make(map[string]*personAmounts),
	}

	for _, tx := range txs {
		if tx.LogicalDate == "" {
			continue
		}
		personID := payeePerson[tx.PayeeID]
		if personID == "" {
			continue
		}

		var bucket map[string]*personAmounts
		switch {
		case tx.Method == domain.MethodAccrued:
			bucket = c.accrued
		case tx.Method == domain.MethodInvested && tx.Amount > 0:
			bucket = c.invested
		default:
			continue
		}

		month := calendar.MonthOf(tx.LogicalDate)
		if bucket[month] == nil {
			bucket[month] = newPersonAmounts()
		}
		bucket[month].add(personID, abs(tx.USDEquivalent))
	}

	return c
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
