package services

import (
	"context"
	"errors"
	"testing"

	"financebot/internal/amqp"
	"financebot/internal/core"
	"financebot/internal/storage"
)

type capturingPublisher struct {
	alerts []*amqp.BudgetAlertMessage
	err    error
}

func (p *capturingPublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, msg)
	return nil
}

func seedBudget(t *testing.T, store *storage.MemoryRepository, cents int64) {
	t.Helper()
	_, err := store.SetBudget(context.Background(), core.Budget{
		UserID:    1,
		Category:  "food",
		Amount:    core.Money{Cents: cents},
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
	})
	if err != nil {
		t.Fatalf("seed budget: %v", err)
	}
}

func newExpense(cents int64) core.Expense {
	return core.Expense{
		UserID:   1,
		Amount:   core.Money{Cents: cents},
		Category: "food",
		Date:     core.NewDate(2024, 1, 15),
	}
}

func TestAddExpensePublishesOverspendAlert(t *testing.T) {
	store := storage.NewMemoryRepository()
	pub := &capturingPublisher{}
	svc := NewFinanceService(store, pub)
	seedBudget(t, store, 10000)

	if _, err := svc.AddExpense(context.Background(), newExpense(12000)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	if len(pub.alerts) != 1 {
		t.Fatalf("published %d alerts, want 1", len(pub.alerts))
	}
	if pub.alerts[0].Reason != amqp.ReasonOverspent {
		t.Errorf("Reason = %q, want %q", pub.alerts[0].Reason, amqp.ReasonOverspent)
	}
	if pub.alerts[0].RemainingCents != -2000 {
		t.Errorf("RemainingCents = %d, want -2000", pub.alerts[0].RemainingCents)
	}
}

func TestAddExpenseNoAlertBelowThreshold(t *testing.T) {
	store := storage.NewMemoryRepository()
	pub := &capturingPublisher{}
	svc := NewFinanceService(store, pub)
	seedBudget(t, store, 10000)

	if _, err := svc.AddExpense(context.Background(), newExpense(500)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if len(pub.alerts) != 0 {
		t.Errorf("published %d alerts, want 0", len(pub.alerts))
	}
}

func TestAddExpenseOutsideBudgetWindowNoAlert(t *testing.T) {
	store := storage.NewMemoryRepository()
	pub := &capturingPublisher{}
	svc := NewFinanceService(store, pub)
	seedBudget(t, store, 100)

	e := newExpense(5000)
	e.Date = core.NewDate(2024, 6, 1)
	if _, err := svc.AddExpense(context.Background(), e); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if len(pub.alerts) != 0 {
		t.Errorf("expense outside budget window must not alert, got %d", len(pub.alerts))
	}
}

func TestAddExpensePublishFailureDoesNotFail(t *testing.T) {
	store := storage.NewMemoryRepository()
	pub := &capturingPublisher{err: errors.New("broker down")}
	svc := NewFinanceService(store, pub)
	seedBudget(t, store, 100)

	stored, err := svc.AddExpense(context.Background(), newExpense(5000))
	if err != nil {
		t.Fatalf("AddExpense must not fail on publish error: %v", err)
	}
	if stored.ID == 0 {
		t.Error("expense should still be stored")
	}
}

func TestAddExpenseNilPublisher(t *testing.T) {
	store := storage.NewMemoryRepository()
	svc := NewFinanceService(store, nil)
	seedBudget(t, store, 100)

	if _, err := svc.AddExpense(context.Background(), newExpense(5000)); err != nil {
		t.Fatalf("AddExpense with nil publisher: %v", err)
	}
}

func TestAddExpenseValidationPropagates(t *testing.T) {
	store := storage.NewMemoryRepository()
	svc := NewFinanceService(store, &capturingPublisher{})

	_, err := svc.AddExpense(context.Background(), newExpense(0))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("got %v, want ErrInvalidAmount", err)
	}
}
