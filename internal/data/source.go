package data

import (
	"context"

	"github.com/atmagaming/finances/internal/domain"
)

// Source is a backend that can read every table the dashboard needs.
// It is implemented by the Notion workspace and by the SQLite mirror.
type Source interface {
	People(ctx context.Context) ([]domain.Person, error)
	SensitiveData(ctx context.Context) ([]domain.SensitiveData, error)
	Payees(ctx context.Context) ([]domain.Payee, error)
	Transactions(ctx context.Context) ([]domain.Transaction, error)
	Vacations(ctx context.Context) ([]domain.Vacation, error)
}
