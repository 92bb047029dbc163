// Package storage persists expenses and budgets and serves the derived
// budget status. The SQLite repository is the durable implementation; the
// memory repository implements the same contract for tests and local runs.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"financebot/internal/core"

	_ "modernc.org/sqlite"
)

// Filter narrows an expense listing. Zero fields are ignored; From and To
// are inclusive when set.
type Filter struct {
	Category string
	From     core.Date
	To       core.Date
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddExpense validates and inserts an expense, returning the stored row with
// its assigned identifier. Validation happens before any write.
func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, description, expense_date)
		 VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Category, e.Description, e.Date.String())
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

// ListExpenses returns the user's expenses, date descending, optionally
// narrowed by category and date range.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f Filter) ([]core.Expense, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, user_id, amount_cents, category, description, expense_date
		FROM expenses WHERE user_id = ?`)
	args := []any{userID}

	if f.Category != "" {
		query.WriteString(" AND category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		query.WriteString(" AND expense_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query.WriteString(" AND expense_date <= ?")
		args = append(args, f.To.String())
	}
	query.WriteString(" ORDER BY expense_date DESC, id DESC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var (
			e       core.Expense
			dateStr string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Description, &dateStr); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("expense %d has malformed date %q", e.ID, dateStr)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	return expenses, nil
}

// SetBudget validates and inserts a budget. Always a new row: repeated calls
// for the same user/category accumulate.
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category, amount_cents, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Category, b.Amount.Cents, b.StartDate.String(), b.EndDate.String())
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	b.ID = id

	slog.InfoContext(ctx, "Budget saved",
		"id", b.ID,
		"user_id", b.UserID,
		"category", b.Category,
		"amount_cents", b.Amount.Cents,
		"start_date", b.StartDate.String(),
		"end_date", b.EndDate.String())

	return b, nil
}

// GetBudgets returns every budget set for the user, newest first by start
// date. Unknown users get an empty slice, not an error.
func (r *SQLiteRepository) GetBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, amount_cents, start_date, end_date, created_at
		 FROM budgets WHERE user_id = ?
		 ORDER BY start_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}

	return budgets, nil
}

// GetBudgetStatus reads the budget_status view for the user, optionally
// narrowed to one category. One row per budget, start date descending.
// The single SELECT gives a snapshot-consistent read across both tables.
func (r *SQLiteRepository) GetBudgetStatus(ctx context.Context, userID int64, category string) ([]core.BudgetStatus, error) {
	query := `SELECT user_id, category, budgeted_cents, spent_cents, remaining_cents, start_date, end_date
		FROM budget_status WHERE user_id = ?`
	args := []any{userID}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY start_date DESC, budget_id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get budget status: %w", err)
	}
	defer rows.Close()

	statuses := []core.BudgetStatus{}
	for rows.Next() {
		var (
			s          core.BudgetStatus
			start, end string
		)
		if err := rows.Scan(&s.UserID, &s.Category, &s.Budgeted.Cents, &s.Spent.Cents,
			&s.Remaining.Cents, &start, &end); err != nil {
			return nil, fmt.Errorf("scan budget status: %w", err)
		}
		if s.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("budget status has malformed start date %q", start)
		}
		if s.EndDate, err = core.ParseDate(end); err != nil {
			return nil, fmt.Errorf("budget status has malformed end date %q", end)
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get budget status: %w", err)
	}

	return statuses, nil
}

// ListBudgetUsers returns the distinct user ids that have at least one
// budget. Used by the report worker's periodic snapshot.
func (r *SQLiteRepository) ListBudgetUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM budgets ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list budget users: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budget users: %w", err)
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b          core.Budget
		start, end string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount.Cents, &start, &end, &b.CreatedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	if b.StartDate, err = core.ParseDate(start); err != nil {
		return core.Budget{}, fmt.Errorf("budget %d has malformed start date %q", b.ID, start)
	}
	if b.EndDate, err = core.ParseDate(end); err != nil {
		return core.Budget{}, fmt.Errorf("budget %d has malformed end date %q", b.ID, end)
	}
	return b, nil
}
