package payment

import "time"

// LinkSuggestion proposes that an unlinked expense entry is a payment of a
// recurring payment. Unique per (PaymentID, EntryID) whatever its state.
type LinkSuggestion struct {
	ID          int64
	PaymentID   int64
	EntryID     int64
	UserID      int64
	Confidence  float64  // 0.0 - 1.0
	Reasons     []string // human readable, at most three
	IsDismissed bool
	IsAccepted  bool
	DismissedAt *time.Time
	AcceptedAt  *time.Time
	CreatedAt   time.Time
}

// Pending reports a suggestion that is neither accepted nor dismissed.
func (s *LinkSuggestion) Pending() bool {
	return !s.IsAccepted && !s.IsDismissed
}

// PairKey identifies the (payment, entry) pair of a suggestion.
type PairKey struct {
	PaymentID int64
	EntryID   int64
}
