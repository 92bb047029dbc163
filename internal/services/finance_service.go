// Package services orchestrates store operations with alert publication.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"financebot/internal/amqp"
	"financebot/internal/backend"
	"financebot/internal/core"
)

// AlertPublisher publishes budget alerts. Satisfied by *amqp.Client; nil-able
// so the service degrades to store-only when messaging is not configured.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// FinanceService wraps the store and raises budget alerts after writes.
type FinanceService struct {
	store     backend.Store
	publisher AlertPublisher
}

func NewFinanceService(store backend.Store, publisher AlertPublisher) *FinanceService {
	return &FinanceService{
		store:     store,
		publisher: publisher,
	}
}

// AddExpense stores the expense, then checks every budget covering it and
// publishes an alert for each one that is overspent or near its limit.
// Alerting is best-effort: publish failures are logged, never returned.
func (s *FinanceService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	stored, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	s.raiseAlerts(ctx, stored)
	return stored, nil
}

func (s *FinanceService) raiseAlerts(ctx context.Context, e core.Expense) {
	if s.publisher == nil {
		return
	}

	statuses, err := s.store.GetBudgetStatus(ctx, e.UserID, e.Category)
	if err != nil {
		slog.ErrorContext(ctx, "Budget status check failed after expense",
			"user_id", e.UserID, "category", e.Category, "error", err)
		return
	}

	for _, st := range statuses {
		// Only budgets whose window contains the new expense
		if !e.Date.Within(st.StartDate, st.EndDate) {
			continue
		}
		if !st.NearLimit() {
			continue
		}
		msg := amqp.NewBudgetAlertMessage(st)
		if err := s.publisher.PublishBudgetAlert(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget alert",
				"user_id", st.UserID,
				"category", st.Category,
				"reason", msg.Reason,
				"error", err)
			// Expense is saved; the worker's periodic snapshot covers the gap.
		}
	}
}

// SetBudget stores a new budget row. Append-only: existing budgets for the
// same user/category are left untouched.
func (s *FinanceService) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	stored, err := s.store.SetBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}
	return stored, nil
}
