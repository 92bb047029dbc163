// Package worker exports budget alerts to the report sink.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"financebot/internal/amqp"
	"financebot/internal/backend"
	"financebot/internal/export"
)

// AlertWorker consumes budget-alert messages and appends report rows. Its
// periodic snapshot re-exports every budget currently over threshold, as a
// backup in case AMQP messages are lost.
type AlertWorker struct {
	store     backend.Store
	appender  export.ReportAppender
	batchSize int
}

func NewAlertWorker(store backend.Store, appender export.ReportAppender, batchSize int) *AlertWorker {
	return &AlertWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleAlertMessage processes a single alert message from AMQP.
func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	slog.InfoContext(ctx, "Processing budget alert",
		"user_id", msg.UserID,
		"category", msg.Category,
		"reason", msg.Reason)

	ref, err := w.appender.AppendReport(ctx, export.RowFromAlert(msg))
	if err != nil {
		return fmt.Errorf("append report row: %w", err)
	}

	slog.InfoContext(ctx, "Exported budget alert",
		"user_id", msg.UserID,
		"category", msg.Category,
		"reason", msg.Reason,
		"row_ref", ref)

	return nil
}

// RunSnapshot exports every budget at or over its alert threshold, up to
// batchSize rows per run.
func (w *AlertWorker) RunSnapshot(ctx context.Context) error {
	users, err := w.store.ListBudgetUsers(ctx)
	if err != nil {
		return fmt.Errorf("list budget users: %w", err)
	}

	exported := 0
	errorCount := 0
	for _, userID := range users {
		if exported >= w.batchSize {
			break
		}

		statuses, err := w.store.GetBudgetStatus(ctx, userID, "")
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get budget status for snapshot",
				"user_id", userID, "error", err)
			errorCount++
			continue
		}

		for _, st := range statuses {
			if exported >= w.batchSize {
				break
			}
			if !st.NearLimit() {
				continue
			}

			msg := amqp.NewBudgetAlertMessage(st)
			if _, err := w.appender.AppendReport(ctx, export.RowFromAlert(msg)); err != nil {
				slog.ErrorContext(ctx, "Failed to export snapshot row",
					"user_id", st.UserID,
					"category", st.Category,
					"error", err)
				errorCount++
				continue
			}
			exported++
		}
	}

	slog.InfoContext(ctx, "Budget snapshot completed",
		"users", len(users),
		"exported", exported,
		"errors", errorCount)

	return nil
}
