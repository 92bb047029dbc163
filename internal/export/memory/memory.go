// Package memory is an in-process report sink used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "financebot/internal/export"
)

type Appender struct {
	mu   sync.Mutex
	rows []ports.ReportRow
}

var _ ports.ReportAppender = (*Appender)(nil)

func NewAppender() *Appender {
	return &Appender{}
}

func (a *Appender) AppendReport(_ context.Context, row ports.ReportRow) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rows = append(a.rows, row)
	return fmt.Sprintf("memory:%d", len(a.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (a *Appender) Rows() []ports.ReportRow {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ports.ReportRow, len(a.rows))
	copy(out, a.rows)
	return out
}
