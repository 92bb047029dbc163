package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	ports "financebot/internal/export"
)

func TestAppendReport(t *testing.T) {
	a := NewAppender()

	ref, err := a.AppendReport(context.Background(), ports.ReportRow{
		Timestamp:      time.Now(),
		UserID:         1,
		Category:       "food",
		BudgetedCents:  10000,
		SpentCents:     12000,
		RemainingCents: -2000,
		Reason:         "overspent",
	})
	if err != nil {
		t.Fatalf("AppendReport: %v", err)
	}
	if ref != "memory:1" {
		t.Errorf("ref = %q, want memory:1", ref)
	}

	rows := a.Rows()
	if len(rows) != 1 {
		t.Fatalf("Rows() len = %d, want 1", len(rows))
	}
	if rows[0].Category != "food" || rows[0].RemainingCents != -2000 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestAppendReportConcurrent(t *testing.T) {
	a := NewAppender()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, _ = a.AppendReport(context.Background(), ports.ReportRow{UserID: userID})
		}(int64(i))
	}
	wg.Wait()

	if got := len(a.Rows()); got != 20 {
		t.Errorf("Rows() len = %d, want 20", got)
	}
}
