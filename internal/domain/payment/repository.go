package payment

import (
	"context"
	"time"
)

// Repository persists RecurringPayment entities. Every user-facing lookup is
// scoped by userID and reports another user's row as ErrPaymentNotFound.
type Repository interface {
	Create(ctx context.Context, p *RecurringPayment) error
	GetByID(ctx context.Context, userID, id int64) (*RecurringPayment, error)
	ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]*RecurringPayment, error)
	Update(ctx context.Context, p *RecurringPayment) error
	// Delete removes the payment together with its occurrences, reminders and suggestions.
	Delete(ctx context.Context, userID, id int64) error

	// Sweep queries, not user scoped.
	ListAutoPost(ctx context.Context) ([]*RecurringPayment, error)
	ListUserIDsWithActive(ctx context.Context) ([]int64, error)
}

// OccurrenceRepository persists ledger rows. Only the ledger service writes through it.
type OccurrenceRepository interface {
	Create(ctx context.Context, o *Occurrence) error
	GetByID(ctx context.Context, userID, id int64) (*Occurrence, error)
	UpdateLinkedEntry(ctx context.Context, userID, id, entryID int64) error
	// List returns occurrences ordered by scheduled date, newest first.
	List(ctx context.Context, userID int64, filter HistoryFilter) ([]*Occurrence, error)
	Delete(ctx context.Context, userID, id int64) error
}

// ReminderRepository persists PaymentReminder rows.
type ReminderRepository interface {
	// Create returns ErrDuplicateReminder when an undismissed reminder for the
	// same payment and due date already exists.
	Create(ctx context.Context, r *Reminder) error
	// GetUndismissed returns ErrReminderNotFound when no undismissed reminder exists.
	GetUndismissed(ctx context.Context, paymentID int64, dueDate time.Time) (*Reminder, error)
	GetByID(ctx context.Context, userID, id int64) (*Reminder, error)
	ListByUser(ctx context.Context, userID int64, includeDismissed bool) ([]*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
}

// SuggestionRepository persists PaymentLinkSuggestion rows.
type SuggestionRepository interface {
	// Create returns ErrDuplicateSuggestion when the pair already has a row.
	Create(ctx context.Context, s *LinkSuggestion) error
	GetByID(ctx context.Context, userID, id int64) (*LinkSuggestion, error)
	// ExistingPairs lists every pair with a suggestion row, whatever its state.
	ExistingPairs(ctx context.Context, userID int64) (map[PairKey]struct{}, error)
	ListPending(ctx context.Context, userID int64) ([]*LinkSuggestion, error)

	// MarkAccepted flips a pending suggestion to accepted and returns
	// ErrSuggestionResolved when it is no longer pending.
	MarkAccepted(ctx context.Context, userID, id int64, at time.Time) error
	// ReleaseAcceptance undoes MarkAccepted after a failed ledger write.
	ReleaseAcceptance(ctx context.Context, userID, id int64) error
	// MarkDismissed is a no-op for a dismissed suggestion and returns
	// ErrSuggestionResolved for an accepted one.
	MarkDismissed(ctx context.Context, userID, id int64, at time.Time) error
}
