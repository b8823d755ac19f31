package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/atmagaming/finances/internal/domain"
	"github.com/shopspring/decimal"
)

// numericScale is the number of decimal places a BigQuery NUMERIC column keeps.
const numericScale = 9

type TransactionRow struct {
	SyncID   string    `bigquery:"sync_id"`   // REQUIRED
	SyncedAt time.Time `bigquery:"synced_at"` // REQUIRED

	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	LogicalDate bigquery.NullDate `bigquery:"logical_date"` // NULLABLE
	FactualDate bigquery.NullDate `bigquery:"factual_date"` // NULLABLE

	Amount        *big.Rat `bigquery:"amount"`         // REQUIRED NUMERIC, original currency
	USDEquivalent *big.Rat `bigquery:"usd_equivalent"` // REQUIRED NUMERIC
	Currency      string   `bigquery:"currency"`       // REQUIRED STRING

	Method   string              `bigquery:"method"`   // REQUIRED STRING
	Category bigquery.NullString `bigquery:"category"` // NULLABLE
	Note     bigquery.NullString `bigquery:"note"`     // NULLABLE

	PayeeID   bigquery.NullString `bigquery:"payee_id"`   // NULLABLE
	PayeeName bigquery.NullString `bigquery:"payee_name"` // NULLABLE
	PersonID  bigquery.NullString `bigquery:"person_id"`  // NULLABLE, set for team payees
}

type CompensationRow struct {
	SyncID   string    `bigquery:"sync_id"`   // REQUIRED
	SyncedAt time.Time `bigquery:"synced_at"` // REQUIRED

	SensitiveDataID string `bigquery:"sensitive_data_id"` // REQUIRED
	PersonID        string `bigquery:"person_id"`         // REQUIRED
	PersonName      string `bigquery:"person_name"`       // NULLABLE

	HourlyPaid     float64 `bigquery:"hourly_paid"`
	HourlyInvested float64 `bigquery:"hourly_invested"`
	HoursPerWeek   float64 `bigquery:"hours_per_week"`

	MonthlyPaid     float64 `bigquery:"monthly_paid"`
	MonthlyInvested float64 `bigquery:"monthly_invested"`
	MonthlyTotal    float64 `bigquery:"monthly_total"`

	StartDate bigquery.NullDate `bigquery:"start_date"` // NULLABLE
	EndDate   bigquery.NullDate `bigquery:"end_date"`   // NULLABLE
	Status    string            `bigquery:"status"`
}

// MonthlyTotalRow is one (month, method) aggregate read back from the warehouse.
type MonthlyTotalRow struct {
	Month    string  `bigquery:"month"`
	Method   string  `bigquery:"method"`
	TotalUSD float64 `bigquery:"total_usd"`
	Count    int64   `bigquery:"tx_count"`
}

// batch identifies one mirror run; every row written by the run carries it.
type batch struct {
	id string
	at time.Time
}

func nullDate(s string) bigquery.NullDate {
	if s == "" {
		return bigquery.NullDate{}
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: d, Valid: true}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func numeric(x float64) *big.Rat {
	return decimal.NewFromFloat(x).Round(numericScale).Rat()
}

func newTransactionRow(b batch, tx domain.Transaction, payeePerson map[string]string) *TransactionRow {
	return &TransactionRow{
		SyncID:        b.id,
		SyncedAt:      b.at,
		TransactionID: tx.ID,
		LogicalDate:   nullDate(tx.LogicalDate),
		FactualDate:   nullDate(tx.FactualDate),
		Amount:        numeric(tx.Amount),
		USDEquivalent: numeric(tx.USDEquivalent),
		Currency:      tx.Currency,
		Method:        string(tx.Method),
		Category:      nullString(tx.Category),
		Note:          nullString(tx.Note),
		PayeeID:       nullString(tx.PayeeID),
		PayeeName:     nullString(tx.PayeeName),
		PersonID:      nullString(payeePerson[tx.PayeeID]),
	}
}

func newCompensationRow(b batch, sd domain.SensitiveData, personNames map[string]string) *CompensationRow {
	return &CompensationRow{
		SyncID:          b.id,
		SyncedAt:        b.at,
		SensitiveDataID: sd.ID,
		PersonID:        sd.PersonID,
		PersonName:      personNames[sd.PersonID],
		HourlyPaid:      sd.HourlyPaid,
		HourlyInvested:  sd.HourlyInvested,
		HoursPerWeek:    sd.HoursPerWeek,
		MonthlyPaid:     sd.MonthlyPaid,
		MonthlyInvested: sd.MonthlyInvested,
		MonthlyTotal:    sd.MonthlyTotal,
		StartDate:       nullDate(sd.StartDate),
		EndDate:         nullDate(sd.EndDate),
		Status:          sd.Status,
	}
}
