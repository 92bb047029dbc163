package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"financebot/internal/core"
)

// MemoryRepository implements the store contract without a database. It is
// the test double and the default local backend; aggregation semantics match
// the budget_status view.
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	expenses []core.Expense
	budgets  []core.Budget
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.nextID
	r.nextID++
	r.expenses = append(r.expenses, e)
	return e, nil
}

func (r *MemoryRepository) ListExpenses(_ context.Context, userID int64, f Filter) ([]core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []core.Expense{}
	for _, e := range r.expenses {
		if e.UserID != userID {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if !f.From.IsZero() && e.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.Date.After(f.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) SetBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.nextID
	r.nextID++
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	r.budgets = append(r.budgets, b)
	return b, nil
}

func (r *MemoryRepository) GetBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []core.Budget{}
	for _, b := range r.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sortBudgetsNewestFirst(out)
	return out, nil
}

func (r *MemoryRepository) GetBudgetStatus(_ context.Context, userID int64, category string) ([]core.BudgetStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matching := []core.Budget{}
	for _, b := range r.budgets {
		if b.UserID != userID {
			continue
		}
		if category != "" && b.Category != category {
			continue
		}
		matching = append(matching, b)
	}
	sortBudgetsNewestFirst(matching)

	out := []core.BudgetStatus{}
	for _, b := range matching {
		var spent int64
		for _, e := range r.expenses {
			if e.UserID == b.UserID && e.Category == b.Category && e.Date.Within(b.StartDate, b.EndDate) {
				spent += e.Amount.Cents
			}
		}
		out = append(out, b.Status(spent))
	}
	return out, nil
}

func (r *MemoryRepository) ListBudgetUsers(_ context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[int64]struct{}{}
	var users []int64
	for _, b := range r.budgets {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		users = append(users, b.UserID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func sortBudgetsNewestFirst(budgets []core.Budget) {
	sort.SliceStable(budgets, func(i, j int) bool {
		if !budgets[i].StartDate.Equal(budgets[j].StartDate.Time) {
			return budgets[i].StartDate.After(budgets[j].StartDate)
		}
		return budgets[i].ID > budgets[j].ID
	})
}
