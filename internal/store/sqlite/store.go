// Package sqlite keeps a local mirror of the workspace tables in a SQLite file.
// The mirror can serve the dashboard when the workspace API is unavailable.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/domain"
	"github.com/atmagaming/finances/internal/logger"

	_ "modernc.org/sqlite"
)

// Store is a SQLite backed data.Source and mirror sink.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ReplaceAll swaps the mirrored tables for the contents of snap in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, snap *data.Snapshot) error {
	log := logger.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceAll: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"people", "sensitive_data", "payees", "transactions", "vacations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("ReplaceAll: clear %s: %w", table, err)
		}
	}

	if err := insertPeople(ctx, tx, snap.People); err != nil {
		return fmt.Errorf("ReplaceAll: %w", err)
	}
	if err := insertSensitiveData(ctx, tx, snap.SensitiveData); err != nil {
		return fmt.Errorf("ReplaceAll: %w", err)
	}
	if err := insertPayees(ctx, tx, snap.Payees); err != nil {
		return fmt.Errorf("ReplaceAll: %w", err)
	}
	if err := insertTransactions(ctx, tx, snap.Transactions); err != nil {
		return fmt.Errorf("ReplaceAll: %w", err)
	}
	if err := insertVacations(ctx, tx, snap.Vacations); err != nil {
		return fmt.Errorf("ReplaceAll: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReplaceAll: commit: %w", err)
	}

	log.Info().
		Int("people", len(snap.People)).
		Int("sensitive_data", len(snap.SensitiveData)).
		Int("payees", len(snap.Payees)).
		Int("transactions", len(snap.Transactions)).
		Int("vacations", len(snap.Vacations)).
		Msg("SQLite mirror replaced")

	return nil
}

func insertPeople(ctx context.Context, tx *sql.Tx, people []domain.Person) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO people
		(id, name, status, notion_email, sensitive_data_ids, position)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare people: %w", err)
	}
	defer stmt.Close()

	for i, p := range people {
		ids, err := encodeList(p.SensitiveDataIDs)
		if err != nil {
			return fmt.Errorf("person %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Status, p.NotionEmail, ids, i); err != nil {
			return fmt.Errorf("insert person %s: %w", p.ID, err)
		}
	}
	return nil
}

func insertSensitiveData(ctx context.Context, tx *sql.Tx, rows []domain.SensitiveData) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sensitive_data
		(id, name, person_id, hourly_paid, hourly_invested, schedule, hours_per_week,
		 monthly_paid, monthly_invested, monthly_total, start_date, end_date, status, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sensitive_data: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		schedule, err := encodeList(r.Schedule)
		if err != nil {
			return fmt.Errorf("sensitive data %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Name, r.PersonID, r.HourlyPaid, r.HourlyInvested, schedule, r.HoursPerWeek,
			r.MonthlyPaid, r.MonthlyInvested, r.MonthlyTotal, r.StartDate, r.EndDate, r.Status, i,
		); err != nil {
			return fmt.Errorf("insert sensitive data %s: %w", r.ID, err)
		}
	}
	return nil
}

func insertPayees(ctx context.Context, tx *sql.Tx, payees []domain.Payee) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO payees
		(id, name, person_id, type, accrued, invested, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare payees: %w", err)
	}
	defer stmt.Close()

	for i, p := range payees {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.PersonID, p.Type, p.Accrued, p.Invested, i); err != nil {
			return fmt.Errorf("insert payee %s: %w", p.ID, err)
		}
	}
	return nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, txs []domain.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, note, amount, usd_equivalent, currency, method, category,
		 logical_date, factual_date, payee_id, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transactions: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Note, t.Amount, t.USDEquivalent, t.Currency, string(t.Method), t.Category,
			t.LogicalDate, t.FactualDate, t.PayeeID, i,
		); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertVacations(ctx context.Context, tx *sql.Tx, vacations []domain.Vacation) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vacations
		(id, person_id, type, start_date, end_date, position)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare vacations: %w", err)
	}
	defer stmt.Close()

	for i, v := range vacations {
		if _, err := stmt.ExecContext(ctx, v.ID, v.PersonID, v.Type, v.StartDate, v.EndDate, i); err != nil {
			return fmt.Errorf("insert vacation %s: %w", v.ID, err)
		}
	}
	return nil
}

func encodeList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList[T any](s string) ([]T, error) {
	var items []T
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return items, nil
}
