package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date without a time component. The zero value is
	// "no date" and is invalid for stored records.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single recorded spending event. Immutable after creation.
	Expense struct {
		ID          int64
		UserID      int64
		Amount      Money
		Category    string
		Description string
		Date        Date
	}

	// Budget is a spending allocation for a category over an inclusive date
	// range. Budgets are append-only: setting a budget never replaces an
	// existing row.
	Budget struct {
		ID        int64
		UserID    int64
		Category  string
		Amount    Money
		StartDate Date
		EndDate   Date
		CreatedAt time.Time
	}

	// BudgetStatus is the derived spend-vs-allocation view for one budget.
	// Remaining is unclamped: a negative value signals overspend.
	BudgetStatus struct {
		UserID    int64
		Category  string
		Budgeted  Money
		Spent     Money
		Remaining Money
		StartDate Date
		EndDate   Date
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDateRange   = errors.New("start date after end date")
	ErrInvalidUser        = errors.New("invalid user id")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
	ErrNotFound           = errors.New("not found")
)

// IsValidation reports whether err stems from bad caller input rather than a
// storage or upstream failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidUser) ||
		errors.Is(err, ErrEmptyCategory) ||
		errors.Is(err, ErrDescriptionTooLong)
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date in ISO-8601 form.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Within reports whether d lies in [start, end], inclusive on both ends.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if e.UserID <= 0 {
		return ErrInvalidUser
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 255 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (b Budget) Validate() error {
	if b.UserID <= 0 {
		return ErrInvalidUser
	}
	// A zero-amount budget is a legal allocation ceiling.
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if err := b.EndDate.Validate(); err != nil {
		return err
	}
	if b.StartDate.After(b.EndDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// Status derives the BudgetStatus for this budget given the total spent
// within its date range.
func (b Budget) Status(spentCents int64) BudgetStatus {
	return BudgetStatus{
		UserID:    b.UserID,
		Category:  b.Category,
		Budgeted:  b.Amount,
		Spent:     Money{Cents: spentCents},
		Remaining: Money{Cents: b.Amount.Cents - spentCents},
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
	}
}

// Overspent reports whether spending exceeded the allocation.
func (s BudgetStatus) Overspent() bool {
	return s.Remaining.Cents < 0
}

// NearLimit reports whether at least 80% of the allocation is consumed.
// A zero budget with no spending is not near its limit.
func (s BudgetStatus) NearLimit() bool {
	if s.Overspent() {
		return true
	}
	return s.Budgeted.Cents > 0 && s.Spent.Cents*5 >= s.Budgeted.Cents*4
}
