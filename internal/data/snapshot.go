package data

import (
	"time"

	"github.com/atmagaming/finances/internal/domain"
)

// UnknownPayee is the payee name shown for transactions whose payee is missing.
const UnknownPayee = "Unknown"

// Snapshot is a consistent read of all five tables.
type Snapshot struct {
	People        []domain.Person
	SensitiveData []domain.SensitiveData
	Payees        []domain.Payee
	Transactions  []domain.Transaction
	Vacations     []domain.Vacation
	FetchedAt     time.Time
}

// PayeePersonMap maps payee ids to person ids for payees linked to a person.
func (s *Snapshot) PayeePersonMap() map[string]string {
	m := make(map[string]string, len(s.Payees))
	for _, p := range s.Payees {
		if p.PersonID != "" {
			m[p.ID] = p.PersonID
		}
	}
	return m
}

// PersonNames maps person ids to display names.
func (s *Snapshot) PersonNames() map[string]string {
	m := make(map[string]string, len(s.People))
	for _, p := range s.People {
		m[p.ID] = p.Name
	}
	return m
}

// PayeeByPerson returns the payee linked to personID, if any.
func (s *Snapshot) PayeeByPerson(personID string) (domain.Payee, bool) {
	for _, p := range s.Payees {
		if p.PersonID == personID {
			return p, true
		}
	}
	return domain.Payee{}, false
}

// ResolvePayeeNames returns a copy of txs with PayeeName filled from payees.
func ResolvePayeeNames(txs []domain.Transaction, payees []domain.Payee) []domain.Transaction {
	names := make(map[string]string, len(payees))
	for _, p := range payees {
		names[p.ID] = p.Name
	}

	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if name, ok := names[tx.PayeeID]; ok && name != "" {
			tx.PayeeName = name
		} else {
			tx.PayeeName = UnknownPayee
		}
		out[i] = tx
	}
	return out
}
