package worker

import (
	"context"
	"testing"

	"financebot/internal/amqp"
	"financebot/internal/core"
	"financebot/internal/export/memory"
	"financebot/internal/storage"
)

func TestHandleAlertMessage(t *testing.T) {
	appender := memory.NewAppender()
	w := NewAlertWorker(storage.NewMemoryRepository(), appender, 10)

	b := core.Budget{
		UserID:    1,
		Category:  "food",
		Amount:    core.Money{Cents: 10000},
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
	}
	msg := amqp.NewBudgetAlertMessage(b.Status(12000))

	if err := w.HandleAlertMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleAlertMessage: %v", err)
	}

	rows := appender.Rows()
	if len(rows) != 1 {
		t.Fatalf("exported %d rows, want 1", len(rows))
	}
	if rows[0].Reason != amqp.ReasonOverspent || rows[0].RemainingCents != -2000 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestRunSnapshotExportsOnlyThresholdBudgets(t *testing.T) {
	store := storage.NewMemoryRepository()
	appender := memory.NewAppender()
	w := NewAlertWorker(store, appender, 10)
	ctx := context.Background()

	window := func(userID int64, category string, budgetCents int64) {
		t.Helper()
		_, err := store.SetBudget(ctx, core.Budget{
			UserID:    userID,
			Category:  category,
			Amount:    core.Money{Cents: budgetCents},
			StartDate: core.NewDate(2024, 1, 1),
			EndDate:   core.NewDate(2024, 1, 31),
		})
		if err != nil {
			t.Fatalf("SetBudget: %v", err)
		}
	}
	spend := func(userID int64, category string, cents int64) {
		t.Helper()
		_, err := store.AddExpense(ctx, core.Expense{
			UserID:   userID,
			Amount:   core.Money{Cents: cents},
			Category: category,
			Date:     core.NewDate(2024, 1, 10),
		})
		if err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
	}

	// User 1: food overspent, travel well under budget
	window(1, "food", 10000)
	spend(1, "food", 15000)
	window(1, "travel", 50000)
	spend(1, "travel", 1000)

	// User 2: rent exactly at the 80% threshold
	window(2, "rent", 100000)
	spend(2, "rent", 80000)

	if err := w.RunSnapshot(ctx); err != nil {
		t.Fatalf("RunSnapshot: %v", err)
	}

	rows := appender.Rows()
	if len(rows) != 2 {
		t.Fatalf("exported %d rows, want 2: %+v", len(rows), rows)
	}

	byCategory := map[string]string{}
	for _, row := range rows {
		byCategory[row.Category] = row.Reason
	}
	if byCategory["food"] != amqp.ReasonOverspent {
		t.Errorf("food reason = %q, want overspent", byCategory["food"])
	}
	if byCategory["rent"] != amqp.ReasonNearLimit {
		t.Errorf("rent reason = %q, want near_limit", byCategory["rent"])
	}
	if _, ok := byCategory["travel"]; ok {
		t.Error("travel is under threshold and must not be exported")
	}
}

func TestRunSnapshotHonorsBatchSize(t *testing.T) {
	store := storage.NewMemoryRepository()
	appender := memory.NewAppender()
	w := NewAlertWorker(store, appender, 2)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		_, err := store.SetBudget(ctx, core.Budget{
			UserID:    i,
			Category:  "food",
			Amount:    core.Money{Cents: 1000},
			StartDate: core.NewDate(2024, 1, 1),
			EndDate:   core.NewDate(2024, 1, 31),
		})
		if err != nil {
			t.Fatalf("SetBudget: %v", err)
		}
		_, err = store.AddExpense(ctx, core.Expense{
			UserID:   i,
			Amount:   core.Money{Cents: 2000},
			Category: "food",
			Date:     core.NewDate(2024, 1, 10),
		})
		if err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
	}

	if err := w.RunSnapshot(ctx); err != nil {
		t.Fatalf("RunSnapshot: %v", err)
	}
	if got := len(appender.Rows()); got != 2 {
		t.Errorf("exported %d rows, want batch limit of 2", got)
	}
}

func TestRunSnapshotEmptyStore(t *testing.T) {
	w := NewAlertWorker(storage.NewMemoryRepository(), memory.NewAppender(), 10)
	if err := w.RunSnapshot(context.Background()); err != nil {
		t.Fatalf("RunSnapshot on empty store: %v", err)
	}
}
