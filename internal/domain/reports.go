package domain

// MonthlyExpense holds absolute USD sums of one historical month.
// Invested collects negative "Invested" entries (payouts), Investments the positive
// ones (capital received).
type MonthlyExpense struct {
	Month       string  `json:"month"`
	Paid        float64 `json:"paid"`
	Accrued     float64 `json:"accrued"`
	Invested    float64 `json:"invested"`
	Investments float64 `json:"investments"`
}

// ProjectionMonth is a forecast of one future month, rounded to whole dollars.
type ProjectionMonth struct {
	Month   string  `json:"month"`
	Paid    float64 `json:"paid"`
	Accrued float64 `json:"accrued"`
	Total   float64 `json:"total"`
}

// RevenueShare maps display names to their cumulative share (percent) at Month.
type RevenueShare struct {
	Month       string             `json:"month"`
	Shares      map[string]float64 `json:"shares"`
	IsProjected bool               `json:"isProjected"`
}

// InvestmentPoint maps display names to the USD contributed during Month only.
type InvestmentPoint struct {
	Month       string             `json:"month"`
	Values      map[string]float64 `json:"values"`
	IsProjected bool               `json:"isProjected"`
}
