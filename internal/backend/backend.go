// Package backend selects and constructs the data store implementation.
package backend

import (
	"context"

	"financebot/internal/core"
	"financebot/internal/storage"
)

// Store is the persistence contract the HTTP layer and services depend on.
// Both the SQLite and the memory repositories satisfy it.
type Store interface {
	AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	ListExpenses(ctx context.Context, userID int64, f storage.Filter) ([]core.Expense, error)
	SetBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	GetBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	GetBudgetStatus(ctx context.Context, userID int64, category string) ([]core.BudgetStatus, error)
	ListBudgetUsers(ctx context.Context) ([]int64, error)
	Close() error
}

// Type identifies a store implementation.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
)

func (t Type) IsValid() bool {
	return t == MemoryBackend || t == SQLiteBackend
}

// Config holds what the factory needs to build a store.
type Config struct {
	Type         Type
	SQLiteDBPath string
}

// New creates the configured store. The caller owns Close.
func New(_ context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case SQLiteBackend:
		return storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	default:
		return storage.NewMemoryRepository(), nil
	}
}
