// Package export defines the outbound report port and its row model.
package export

import (
	"context"
	"time"

	"financebot/internal/amqp"
)

// ReportRow is one exported budget-alert line.
type ReportRow struct {
	Timestamp      time.Time
	UserID         int64
	Category       string
	BudgetedCents  int64
	SpentCents     int64
	RemainingCents int64
	StartDate      string
	EndDate        string
	Reason         string
}

// ReportAppender appends report rows to an external sink.
type ReportAppender interface {
	AppendReport(ctx context.Context, row ReportRow) (rowRef string, err error)
}

// RowFromAlert converts a consumed alert message into a report row.
func RowFromAlert(msg *amqp.BudgetAlertMessage) ReportRow {
	return ReportRow{
		Timestamp:      msg.Timestamp,
		UserID:         msg.UserID,
		Category:       msg.Category,
		BudgetedCents:  msg.BudgetedCents,
		SpentCents:     msg.SpentCents,
		RemainingCents: msg.RemainingCents,
		StartDate:      msg.StartDate,
		EndDate:        msg.EndDate,
		Reason:         msg.Reason,
	}
}
