// Package sqlite persists expenses and the expense event journal in a SQLite
// database managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"moneyspider/internal/core"
	"moneyspider/internal/log"
	"moneyspider/internal/store"
)

// Repository is an ExpenseStore backed by the expenses table. Rows are
// ordered by their autoincrement id, which is insertion order.
type Repository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; keeps position-to-id mapping consistent with the mutation that follows.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Append(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, amount, category) VALUES (?, ?, ?)`,
		e.Date.String(), e.Amount.String(), int(e.Category))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	fields := log.NewFields().WithExpense(e).ToSlice()
	if id, err := res.LastInsertId(); err == nil {
		fields = append([]any{"id", id}, fields...)
	}
	r.logger.DebugContext(ctx, "Expense saved to SQLite", fields...)
	return nil
}

func (r *Repository) RemoveAt(ctx context.Context, positions []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := orderedIDs(ctx, tx)
	if err != nil {
		return err
	}

	drop := store.PositionSet(positions, len(ids))
	if len(drop) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM expenses WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for pos := range drop {
		if _, err := stmt.ExecContext(ctx, ids[pos]); err != nil {
			return fmt.Errorf("delete expense at position %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	r.logger.DebugContext(ctx, "Expenses removed from SQLite", log.FieldRecords, len(drop))
	return nil
}

func (r *Repository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	return nil
}

func (r *Repository) All(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, amount, category FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			date, amount string
			category     int
		)
		if err := rows.Scan(&date, &amount, &category); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e, err := decodeExpense(date, amount, category)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func orderedIDs(ctx context.Context, tx *sql.Tx) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expense ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decodeExpense(date, amount string, category int) (core.Expense, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode date %q: %w", date, err)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode amount %q: %w", amount, err)
	}
	c := core.Category(category)
	if !c.Valid() {
		return core.Expense{}, fmt.Errorf("decode category %d: %w", category, core.ErrUnknownCategory)
	}
	return core.Expense{Date: d, Amount: a, Category: c}, nil
}

var _ store.ExpenseStore = (*Repository)(nil)
