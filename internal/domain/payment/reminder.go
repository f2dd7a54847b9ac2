package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reminder warns about an upcoming due date.
// At most one undismissed reminder exists per (PaymentID, DueDate).
type Reminder struct {
	ID            int64
	PaymentID     int64
	UserID        int64
	ReminderDate  time.Time // DueDate minus the payment's lead time
	DueDate       time.Time
	Amount        decimal.Decimal // snapshot at creation
	IsDismissed   bool
	IsPaid        bool
	LinkedEntryID *int64
	CreatedAt     time.Time
}
