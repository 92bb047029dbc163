package amqp

import (
	"encoding/json"
	"time"

	"financebot/internal/core"
)

// Alert reasons.
const (
	ReasonOverspent = "overspent"
	ReasonNearLimit = "near_limit"
)

// BudgetAlertMessage notifies the worker that a budget crossed a spending
// threshold. It carries the full status snapshot so the worker can export a
// report row without re-querying the store.
type BudgetAlertMessage struct {
	UserID         int64     `json:"user_id"`
	Category       string    `json:"category"`
	BudgetedCents  int64     `json:"budgeted_cents"`
	SpentCents     int64     `json:"spent_cents"`
	RemainingCents int64     `json:"remaining_cents"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewBudgetAlertMessage builds an alert from a derived budget status.
func NewBudgetAlertMessage(s core.BudgetStatus) *BudgetAlertMessage {
	reason := ReasonNearLimit
	if s.Overspent() {
		reason = ReasonOverspent
	}
	return &BudgetAlertMessage{
		UserID:         s.UserID,
		Category:       s.Category,
		BudgetedCents:  s.Budgeted.Cents,
		SpentCents:     s.Spent.Cents,
		RemainingCents: s.Remaining.Cents,
		StartDate:      s.StartDate.String(),
		EndDate:        s.EndDate.String(),
		Reason:         reason,
		Timestamp:      time.Now().UTC(),
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
