package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxRemindDaysBefore bounds the reminder lead time.
const MaxRemindDaysBefore = 60

// RecurringPayment is a user's declared bill or subscription.
// Corresponds to the 'recurring_payments' table.
type RecurringPayment struct {
	ID               int64
	UserID           int64
	CategoryID       int64
	Name             string
	Amount           decimal.Decimal
	Currency         string // ISO 4217, e.g. "USD"
	Rule             DueRule
	StartDate        time.Time
	EndDate          *time.Time
	IsActive         bool
	AutoPost         bool // create an expense entry on each due date
	RemindDaysBefore int
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Frequency is a shortcut for p.Rule.Frequency().
func (p *RecurringPayment) Frequency() Frequency {
	if p.Rule == nil {
		return ""
	}
	return p.Rule.Frequency()
}

// Validate checks the invariants that must hold before a payment is stored.
func (p *RecurringPayment) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !p.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if len(p.Currency) != 3 {
		return &ValidationError{Field: "currency", Reason: "must be a 3-letter currency code"}
	}
	if p.Rule == nil {
		return &ValidationError{Field: "frequency", Reason: "is required"}
	}
	// Rebuilding catches a zero-value or hand-assembled rule with an out-of-range day.
	if _, err := NewDueRule(p.Rule.Frequency(), p.Rule.DueDay()); err != nil {
		return err
	}
	if p.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	if p.RemindDaysBefore < 0 || p.RemindDaysBefore > MaxRemindDaysBefore {
		return &ValidationError{Field: "remind_days_before", Reason: "must be between 0 and 60"}
	}
	return nil
}
