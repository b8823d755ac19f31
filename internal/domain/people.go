package domain

// StatusActive is the only compensation status that takes part in projections.
const StatusActive = "Active"

// Person is a contributor record.
type Person struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Status           string   `json:"status"`
	SensitiveDataIDs []string `json:"sensitiveDataIds"`
	NotionEmail      string   `json:"notionEmail"`
}

// SensitiveData is one compensation engagement of a person. A person may have
// several rows, e.g. after a rate change; calculations work per row and sum per person.
type SensitiveData struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	PersonID        string    `json:"personId"`
	HourlyPaid      float64   `json:"hourlyPaid"`
	HourlyInvested  float64   `json:"hourlyInvested"`
	Schedule        []float64 `json:"schedule"`
	HoursPerWeek    float64   `json:"hoursPerWeek"`
	MonthlyPaid     float64   `json:"monthlyPaid"`
	MonthlyInvested float64   `json:"monthlyInvested"`
	MonthlyTotal    float64   `json:"monthlyTotal"`
	StartDate       string    `json:"startDate,omitempty"`
	EndDate         string    `json:"endDate,omitempty"`
	Status          string    `json:"status"`
}

// IsActive reports whether the row participates in projections.
func (s SensitiveData) IsActive() bool {
	return s.Status == StatusActive
}

// WeeklyPaid is the cash cost of one week at this row's schedule.
func (s SensitiveData) WeeklyPaid() float64 {
	return s.HoursPerWeek * s.HourlyPaid
}

// WeeklyAccrued is the accrued (deferred) value of one week at this row's schedule.
func (s SensitiveData) WeeklyAccrued() float64 {
	return s.HoursPerWeek * s.HourlyInvested
}

// Payee is a counterparty of the ledger. PersonID is empty for non-people payees.
type Payee struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	PersonID string  `json:"personId,omitempty"`
	Type     string  `json:"type"`
	Accrued  float64 `json:"accrued"`
	Invested float64 `json:"invested"`
}

// Vacation is a period of leave.
type Vacation struct {
	ID        string `json:"id"`
	PersonID  string `json:"personId"`
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
}
