package payment

import (
	"errors"
	"fmt"
)

// Lookup errors. Repositories return these both when a row does not exist and
// when it belongs to another user.
var (
	ErrPaymentNotFound    = errors.New("recurring payment not found")
	ErrOccurrenceNotFound = errors.New("payment occurrence not found")
	ErrReminderNotFound   = errors.New("payment reminder not found")
	ErrSuggestionNotFound = errors.New("link suggestion not found")
)

// Uniqueness errors surfaced by repositories on insert.
var (
	ErrDuplicateReminder   = errors.New("an undismissed reminder already exists for this payment and due date")
	ErrDuplicateSuggestion = errors.New("a suggestion already exists for this payment and entry")
)

// ErrSuggestionResolved is returned when accepting an already accepted or
// dismissed suggestion, or dismissing an accepted one.
var ErrSuggestionResolved = errors.New("link suggestion already resolved")

// ValidationError rejects a mutation before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNotFound reports whether err is any of the lookup errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrOccurrenceNotFound) ||
		errors.Is(err, ErrReminderNotFound) ||
		errors.Is(err, ErrSuggestionNotFound)
}
