// Package expense describes the external expense ledger and category store
// the payment engine reads from and, for auto-posting, inserts into.
package expense

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AutoPostNotePrefix starts the note of every entry the engine posts itself.
const AutoPostNotePrefix = "Auto-posted: "

func AutoPostNote(paymentName string) string {
	return AutoPostNotePrefix + paymentName
}

var (
	ErrEntryNotFound    = errors.New("expense entry not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// Entry is one expense row of the user's ledger.
type Entry struct {
	ID            int64
	UserID        int64
	CategoryID    int64
	Amount        decimal.Decimal
	Date          time.Time
	Note          string
	AutoGenerated bool
	CreatedAt     time.Time
}

// Category is a read-only lookup used for display and the category-match signal.
type Category struct {
	ID     int64
	UserID int64
	Name   string
	Icon   string
}

// EntryRepository is the engine's view of the expense ledger.
type EntryRepository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, userID, id int64) (*Entry, error)
	// ListUnlinked returns entries dated within [since, until] that no occurrence references.
	ListUnlinked(ctx context.Context, userID int64, since, until time.Time) ([]*Entry, error)
	// FindAutoPosted looks for an entry with the same user, category, amount and
	// date that carries AutoPostNote(paymentName), or, when none does, a manual
	// entry whose note mentions paymentName. Other payments' auto-posted entries
	// never match. Returns ErrEntryNotFound if none.
	FindAutoPosted(ctx context.Context, userID, categoryID int64, amount decimal.Decimal, date time.Time, paymentName string) (*Entry, error)
}

// CategoryRepository resolves category ids for a user.
type CategoryRepository interface {
	GetByID(ctx context.Context, userID, id int64) (*Category, error)
}
