// Package memstore keeps every repository in process memory. It backs the
// service tests and STORAGE_DRIVER=memory, and mirrors the constraints the
// Postgres schema enforces (ownership scoping, cascades, unique pairs).
package memstore

import (
	"sync"
	"time"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/notification"
	"recurring_payments/internal/domain/payment"
)

// Store is the shared state behind the repositories. One mutex guards all
// tables so cross-table reads (cascades, unlinked entries) are consistent.
type Store struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time

	payments    map[int64]*payment.RecurringPayment
	occurrences map[int64]*payment.Occurrence
	reminders   map[int64]*payment.Reminder
	suggestions map[int64]*payment.LinkSuggestion
	entries     map[int64]*expense.Entry
	categories  map[int64]*expense.Category
	recipients  map[int64]*notification.Recipient
}

func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		payments:    make(map[int64]*payment.RecurringPayment),
		occurrences: make(map[int64]*payment.Occurrence),
		reminders:   make(map[int64]*payment.Reminder),
		suggestions: make(map[int64]*payment.LinkSuggestion),
		entries:     make(map[int64]*expense.Entry),
		categories:  make(map[int64]*expense.Category),
		recipients:  make(map[int64]*notification.Recipient),
	}
}

// SetClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Payments() *PaymentRepository       { return &PaymentRepository{s: s} }
func (s *Store) Occurrences() *OccurrenceRepository { return &OccurrenceRepository{s: s} }
func (s *Store) Reminders() *ReminderRepository     { return &ReminderRepository{s: s} }
func (s *Store) Suggestions() *SuggestionRepository { return &SuggestionRepository{s: s} }
func (s *Store) Entries() *EntryRepository          { return &EntryRepository{s: s} }
func (s *Store) Categories() *CategoryRepository    { return &CategoryRepository{s: s} }
func (s *Store) Recipients() *RecipientRepository   { return &RecipientRepository{s: s} }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
