package notion

import (
	"context"
	"fmt"

	"github.com/atmagaming/finances/internal/domain"
	"github.com/atmagaming/finances/internal/logger"
	"github.com/jomei/notionapi"
)

// Databases holds the ids of the workspace databases the dashboard reads.
type Databases struct {
	People        string
	SensitiveData string
	Payees        string
	Transactions  string
	Vacations     string
}

// Source reads and decodes the workspace tables. Pages that fail to decode are
// logged and skipped so one bad row never hides a whole table.
type Source struct {
	svc Service
	dbs Databases
}

// NewSource creates a Source over the given databases.
func NewSource(svc Service, dbs Databases) *Source {
	return &Source{svc: svc, dbs: dbs}
}

func decodeAll[T any](ctx context.Context, svc Service, databaseID, table string, decode func(notionapi.Page) (T, error)) ([]T, error) {
	log := logger.FromContext(ctx)

	if databaseID == "" {
		return nil, fmt.Errorf("decode %s: database id not configured", table)
	}

	pages, err := QueryAllPages(ctx, svc, databaseID)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}

	records := make([]T, 0, len(pages))
	skipped := 0
	for _, page := range pages {
		record, err := decode(page)
		if err != nil {
			log.Warn().
				Err(err).
				Str("table", table).
				Str("page_id", string(page.ID)).
				Msg("Skipping undecodable Notion page")
			skipped++
			continue
		}
		records = append(records, record)
	}

	log.Debug().
		Str("table", table).
		Int("pages", len(pages)).
		Int("skipped", skipped).
		Msg("Decoded Notion table")

	return records, nil
}

// People reads the People database.
func (s *Source) People(ctx context.Context) ([]domain.Person, error) {
	return decodeAll(ctx, s.svc, s.dbs.People, "people", DecodePerson)
}

// SensitiveData reads the compensation database.
func (s *Source) SensitiveData(ctx context.Context) ([]domain.SensitiveData, error) {
	return decodeAll(ctx, s.svc, s.dbs.SensitiveData, "sensitive_data", DecodeSensitiveData)
}

// Payees reads the Payees database.
func (s *Source) Payees(ctx context.Context) ([]domain.Payee, error) {
	return decodeAll(ctx, s.svc, s.dbs.Payees, "payees", DecodePayee)
}

// Transactions reads the Transactions database.
func (s *Source) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return decodeAll(ctx, s.svc, s.dbs.Transactions, "transactions", DecodeTransaction)
}

// Vacations reads the Vacations database.
func (s *Source) Vacations(ctx context.Context) ([]domain.Vacation, error) {
	return decodeAll(ctx, s.svc, s.dbs.Vacations, "vacations", DecodeVacation)
}
