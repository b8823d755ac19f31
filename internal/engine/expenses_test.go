package engine

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/domain"
)

func TestAggregateExpensesByMonth(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "1", LogicalDate: "2024-01-05", USDEquivalent: -1000, Amount: -1000, Method: domain.MethodPaid},
		{ID: "2", LogicalDate: "2024-01-20", USDEquivalent: -200, Amount: -200, Method: domain.MethodAccrued},
	}

	got := AggregateExpensesByMonth(txs)
	want := []domain.MonthlyExpense{
		{Month: "2024-01", Paid: 1000, Accrued: 200},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateExpensesByMonth() = %+v, want %+v", got, want)
	}
}

func TestAggregateExpensesByMonth_Buckets(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "a", LogicalDate: "2024-03-01", USDEquivalent: 5000, Amount: 5000, Method: domain.MethodInvested},
		{ID: "b", LogicalDate: "2024-03-02", USDEquivalent: -700, Amount: -650, Method: domain.MethodInvested},
		{ID: "c", LogicalDate: "2024-02-10", USDEquivalent: -300, Amount: -300, Method: domain.MethodPaid},
		{ID: "d", LogicalDate: "", USDEquivalent: -999, Amount: -999, Method: domain.MethodPaid},
		{ID: "e", LogicalDate: "2024-04-01", USDEquivalent: -50, Amount: -50, Method: domain.Method("Refund")},
		{ID: "f", LogicalDate: "2024-03-15", USDEquivalent: 0, Amount: 0, Method: domain.MethodInvested},
	}

	got := AggregateExpensesByMonth(txs)
	want := []domain.MonthlyExpense{
		{Month: "2024-02", Paid: 300},
		{Month: "2024-03", Invested: 700, Investments: 5000},
		{Month: "2024-04"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateExpensesByMonth() = %+v, want %+v", got, want)
	}
}

func TestAggregateExpensesByMonth_Conservation(t *testing.T) {
	txs := []domain.Transaction{
		{LogicalDate: "2024-01-01", USDEquivalent: -10, Amount: -10, Method: domain.MethodPaid},
		{LogicalDate: "2024-01-02", USDEquivalent: -20, Amount: -20, Method: domain.MethodAccrued},
		{LogicalDate: "2024-01-03", USDEquivalent: 40, Amount: 40, Method: domain.MethodInvested},
		{LogicalDate: "2024-01-04", USDEquivalent: -80, Amount: -80, Method: domain.MethodInvested},
		{LogicalDate: "2024-02-01", USDEquivalent: -160, Amount: -160, Method: domain.MethodPaid},
	}

	var want float64
	for _, tx := range txs {
		want += math.Abs(tx.USDEquivalent)
	}

	var got float64
	for _, row := range AggregateExpensesByMonth(txs) {
		got += row.Paid + row.Accrued + row.Invested + row.Investments
	}

	if got != want {
		t.Errorf("bucket sum = %v, want %v", got, want)
	}
}

func TestAggregateExpensesByMonth_Empty(t *testing.T) {
	got := AggregateExpensesByMonth(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("AggregateExpensesByMonth(nil) = %#v, want empty slice", got)
	}
}

func TestAggregateExpensesByMonth_Idempotent(t *testing.T) {
	txs := []domain.Transaction{
		{LogicalDate: "2024-05-01", USDEquivalent: -1, Method: domain.MethodPaid},
		{LogicalDate: "2023-11-01", USDEquivalent: -2, Method: domain.MethodAccrued},
		{LogicalDate: "2024-01-01", USDEquivalent: -3, Method: domain.MethodPaid},
	}

	first := AggregateExpensesByMonth(txs)
	second := AggregateExpensesByMonth(txs)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between calls: %+v vs %+v", first, second)
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Month >= first[i].Month {
			t.Errorf("months not ascending: %q before %q", first[i-1].Month, first[i].Month)
		}
	}
}

func TestProjectExpenses_SingleContributor(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	rows := []domain.SensitiveData{
		{PersonID: "p1", HoursPerWeek: 40, HourlyPaid: 10, HourlyInvested: 5, Status: domain.StatusActive},
	}

	// June 2024 has four Mondays.
	got := ProjectExpenses(rows, "2024-06", now)
	want := []domain.ProjectionMonth{
		{Month: "2024-06", Paid: 1600, Accrued: 800, Total: 2400},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectExpenses() = %+v, want %+v", got, want)
	}
}

func TestProjectExpenses_DateBounds(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	rows := []domain.SensitiveData{
		{PersonID: "starts-july", HoursPerWeek: 10, HourlyPaid: 1, StartDate: "2024-07-15", Status: domain.StatusActive},
		{PersonID: "ends-june", HoursPerWeek: 10, HourlyPaid: 2, EndDate: "2024-06-30", Status: domain.StatusActive},
		{PersonID: "inactive", HoursPerWeek: 10, HourlyPaid: 100, Status: "Inactive"},
	}

	got := ProjectExpenses(rows, "2024-07", now)
	want := []domain.ProjectionMonth{
		{Month: "2024-06", Paid: 80, Total: 80}, // 4 Mondays * 10h * $2
		{Month: "2024-07", Paid: 50, Total: 50}, // 5 Mondays * 10h * $1
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectExpenses() = %+v, want %+v", got, want)
	}
}

func TestProjectExpenses_ShortMonthSentinel(t *testing.T) {
	now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	rows := []domain.SensitiveData{
		{PersonID: "p1", HoursPerWeek: 1, HourlyPaid: 1, StartDate: "2024-02-29", Status: domain.StatusActive},
	}

	got := ProjectExpenses(rows, "2024-02", now)
	want := []domain.ProjectionMonth{
		{Month: "2024-01"},
		{Month: "2024-02", Paid: 4, Total: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectExpenses() = %+v, want %+v", got, want)
	}
}

func TestProjectExpenses_Rounding(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	rows := []domain.SensitiveData{
		{HoursPerWeek: 1, HourlyPaid: 0.3, HourlyInvested: 0.3, Status: domain.StatusActive},
	}

	// 4 Mondays: paid 1.2, accrued 1.2, total 2.4
	got := ProjectExpenses(rows, "2024-06", now)
	want := []domain.ProjectionMonth{{Month: "2024-06", Paid: 1, Accrued: 1, Total: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProjectExpenses() = %+v, want %+v", got, want)
	}
}

func TestProjectExpenses_Boundary(t *testing.T) {
	rows := []domain.SensitiveData{
		{HoursPerWeek: 40, HourlyPaid: 10, Status: domain.StatusActive},
	}

	for _, now := range []time.Time{
		time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		lastConfirmed := calendar.LastConfirmedMonth(now)
		for _, p := range ProjectExpenses(rows, "2026-12", now) {
			if p.Month <= lastConfirmed {
				t.Errorf("now=%s: projected month %q is not after %q", now.Format("2006-01-02"), p.Month, lastConfirmed)
			}
		}
	}
}

func TestProjectExpenses_EndBeforeStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	got := ProjectExpenses(nil, "2024-05", now)
	if got == nil || len(got) != 0 {
		t.Errorf("ProjectExpenses() = %#v, want empty slice", got)
	}
}
