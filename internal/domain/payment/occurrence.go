package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Occurrence is one concrete instance of a recurring payment being paid or skipped.
// Corresponds to the 'payment_occurrences' table.
type Occurrence struct {
	ID               int64
	PaymentID        int64
	UserID           int64
	ScheduledDate    time.Time
	ActualDate       *time.Time // nil until paid
	Amount           decimal.Decimal
	IsPaid           bool
	IsSkipped        bool
	IsLate           bool // ActualDate after ScheduledDate; kept in sync on write
	LinkedEntryID    *int64
	Notes            string
	ConfirmationCode string
	CreatedAt        time.Time
	PaidAt           *time.Time
}

// OnTime reports a paid occurrence that was not late.
func (o *Occurrence) OnTime() bool {
	return o.IsPaid && !o.IsLate
}

// HistoryFilter narrows a ledger history query.
type HistoryFilter struct {
	PaymentID      *int64
	From           *time.Time // inclusive, on scheduled date
	To             *time.Time // inclusive
	IncludeSkipped bool
	Limit          int // 0 means no limit
}
