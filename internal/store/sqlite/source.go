package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atmagaming/finances/internal/domain"
)

// queryAll runs query and scans every row with scan, keeping mirror order.
func queryAll[T any](ctx context.Context, db *sql.DB, table, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return items, nil
}

func (s *Store) People(ctx context.Context) ([]domain.Person, error) {
	return queryAll(ctx, s.db, "people",
		`SELECT id, name, status, notion_email, sensitive_data_ids FROM people ORDER BY position`,
		func(rows *sql.Rows) (domain.Person, error) {
			var p domain.Person
			var ids string
			if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.NotionEmail, &ids); err != nil {
				return p, err
			}
			list, err := decodeList[string](ids)
			p.SensitiveDataIDs = list
			return p, err
		})
}

func (s *Store) SensitiveData(ctx context.Context) ([]domain.SensitiveData, error) {
	return queryAll(ctx, s.db, "sensitive_data",
		`SELECT id, name, person_id, hourly_paid, hourly_invested, schedule, hours_per_week,
			monthly_paid, monthly_invested, monthly_total, start_date, end_date, status
		FROM sensitive_data ORDER BY position`,
		func(rows *sql.Rows) (domain.SensitiveData, error) {
			var r domain.SensitiveData
			var schedule string
			if err := rows.Scan(
				&r.ID, &r.Name, &r.PersonID, &r.HourlyPaid, &r.HourlyInvested, &schedule, &r.HoursPerWeek,
				&r.MonthlyPaid, &r.MonthlyInvested, &r.MonthlyTotal, &r.StartDate, &r.EndDate, &r.Status,
			); err != nil {
				return r, err
			}
			list, err := decodeList[float64](schedule)
			r.Schedule = list
			return r, err
		})
}

func (s *Store) Payees(ctx context.Context) ([]domain.Payee, error) {
	return queryAll(ctx, s.db, "payees",
		`SELECT id, name, person_id, type, accrued, invested FROM payees ORDER BY position`,
		func(rows *sql.Rows) (domain.Payee, error) {
			var p domain.Payee
			err := rows.Scan(&p.ID, &p.Name, &p.PersonID, &p.Type, &p.Accrued, &p.Invested)
			return p, err
		})
}

func (s *Store) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return queryAll(ctx, s.db, "transactions",
		`SELECT id, note, amount, usd_equivalent, currency, method, category,
			logical_date, factual_date, payee_id
		FROM transactions ORDER BY position`,
		func(rows *sql.Rows) (domain.Transaction, error) {
			var t domain.Transaction
			var method string
			err := rows.Scan(
				&t.ID, &t.Note, &t.Amount, &t.USDEquivalent, &t.Currency, &method, &t.Category,
				&t.LogicalDate, &t.FactualDate, &t.PayeeID,
			)
			t.Method = domain.Method(method)
			return t, err
		})
}

func (s *Store) Vacations(ctx context.Context) ([]domain.Vacation, error) {
	return queryAll(ctx, s.db, "vacations",
		`SELECT id, person_id, type, start_date, end_date FROM vacations ORDER BY position`,
		func(rows *sql.Rows) (domain.Vacation, error) {
			var v domain.Vacation
			err := rows.Scan(&v.ID, &v.PersonID, &v.Type, &v.StartDate, &v.EndDate)
			return v, err
		})
}
