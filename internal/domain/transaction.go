package domain

// Method is how a transaction moved value: cash, deferred claim, or capital.
type Method string

const (
	MethodPaid     Method = "Paid"
	MethodAccrued  Method = "Accrued"
	MethodInvested Method = "Invested"
)

// Transaction is one immutable ledger entry, already decoded from the source workspace.
// LogicalDate is the accounting date (YYYY-MM-DD) the entry belongs to; it may differ
// from FactualDate, the day the money actually moved.
type Transaction struct {
	ID            string  `json:"id"`
	Note          string  `json:"note"`
	Amount        float64 `json:"amount"`        // signed, original currency
	USDEquivalent float64 `json:"usdEquivalent"` // signed, USD
	Currency      string  `json:"currency"`
	Method        Method  `json:"method"`
	Category      string  `json:"category"`
	LogicalDate   string  `json:"logicalDate"`
	FactualDate   string  `json:"factualDate,omitempty"`
	PayeeID       string  `json:"payeeId"`
	PayeeName     string  `json:"payeeName"`
}
