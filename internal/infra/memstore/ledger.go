package memstore

import (
	"context"
	"sort"
	"time"

	"recurring_payments/internal/domain/payment"
)

type OccurrenceRepository struct {
	s *Store
}

var _ payment.OccurrenceRepository = (*OccurrenceRepository)(nil)

func cloneOccurrence(o *payment.Occurrence) *payment.Occurrence {
	c := *o
	c.ActualDate = copyTime(o.ActualDate)
	c.PaidAt = copyTime(o.PaidAt)
	c.LinkedEntryID = copyID(o.LinkedEntryID)
	return &c
}

func (r *OccurrenceRepository) Create(ctx context.Context, o *payment.Occurrence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p, ok := r.s.payments[o.PaymentID]; !ok || p.UserID != o.UserID {
		return payment.ErrPaymentNotFound
	}
	o.ID = r.s.id()
	o.CreatedAt = r.s.now()
	r.s.occurrences[o.ID] = cloneOccurrence(o)
	return nil
}

func (r *OccurrenceRepository) GetByID(ctx context.Context, userID, id int64) (*payment.Occurrence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.occurrences[id]
	if !ok || o.UserID != userID {
		return nil, payment.ErrOccurrenceNotFound
	}
	return cloneOccurrence(o), nil
}

func (r *OccurrenceRepository) UpdateLinkedEntry(ctx context.Context, userID, id, entryID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.occurrences[id]
	if !ok || o.UserID != userID {
		return payment.ErrOccurrenceNotFound
	}
	o.LinkedEntryID = &entryID
	return nil
}

func (r *OccurrenceRepository) List(ctx context.Context, userID int64, f payment.HistoryFilter) ([]*payment.Occurrence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*payment.Occurrence
	for _, o := range r.s.occurrences {
		if o.UserID != userID || !matchesFilter(o, f) {
			continue
		}
		out = append(out, cloneOccurrence(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.After(out[j].ScheduledDate)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesFilter(o *payment.Occurrence, f payment.HistoryFilter) bool {
	if f.PaymentID != nil && o.PaymentID != *f.PaymentID {
		return false
	}
	if f.From != nil && o.ScheduledDate.Before(*f.From) {
		return false
	}
	if f.To != nil && o.ScheduledDate.After(*f.To) {
		return false
	}
	if !f.IncludeSkipped && o.IsSkipped {
		return false
	}
	return true
}

func (r *OccurrenceRepository) Delete(ctx context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.occurrences[id]
	if !ok || o.UserID != userID {
		return payment.ErrOccurrenceNotFound
	}
	delete(r.s.occurrences, id)
	return nil
}

type ReminderRepository struct {
	s *Store
}

var _ payment.ReminderRepository = (*ReminderRepository)(nil)

func cloneReminder(rem *payment.Reminder) *payment.Reminder {
	c := *rem
	c.LinkedEntryID = copyID(rem.LinkedEntryID)
	return &c
}

func (r *ReminderRepository) Create(ctx context.Context, rem *payment.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.undismissed(rem.PaymentID, rem.DueDate) != nil {
		return payment.ErrDuplicateReminder
	}
	rem.ID = r.s.id()
	rem.CreatedAt = r.s.now()
	r.s.reminders[rem.ID] = cloneReminder(rem)
	return nil
}

func (r *ReminderRepository) undismissed(paymentID int64, dueDate time.Time) *payment.Reminder {
	for _, rem := range r.s.reminders {
		if rem.PaymentID == paymentID && rem.DueDate.Equal(dueDate) && !rem.IsDismissed {
			return rem
		}
	}
	return nil
}

func (r *ReminderRepository) GetUndismissed(ctx context.Context, paymentID int64, dueDate time.Time) (*payment.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rem := r.undismissed(paymentID, dueDate)
	if rem == nil {
		return nil, payment.ErrReminderNotFound
	}
	return cloneReminder(rem), nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, userID, id int64) (*payment.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rem, ok := r.s.reminders[id]
	if !ok || rem.UserID != userID {
		return nil, payment.ErrReminderNotFound
	}
	return cloneReminder(rem), nil
}

func (r *ReminderRepository) ListByUser(ctx context.Context, userID int64, includeDismissed bool) ([]*payment.Reminder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*payment.Reminder
	for _, rem := range r.s.reminders {
		if rem.UserID != userID || (!includeDismissed && rem.IsDismissed) {
			continue
		}
		out = append(out, cloneReminder(rem))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ReminderRepository) Update(ctx context.Context, rem *payment.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.reminders[rem.ID]
	if !ok || existing.UserID != rem.UserID {
		return payment.ErrReminderNotFound
	}
	if !rem.IsDismissed && existing.IsDismissed {
		if other := r.undismissed(rem.PaymentID, rem.DueDate); other != nil && other.ID != rem.ID {
			return payment.ErrDuplicateReminder
		}
	}
	rem.CreatedAt = existing.CreatedAt
	r.s.reminders[rem.ID] = cloneReminder(rem)
	return nil
}
