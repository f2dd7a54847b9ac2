package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/notification"
)

type EntryRepository struct {
	s *Store
}

var _ expense.EntryRepository = (*EntryRepository)(nil)

func (r *EntryRepository) Create(ctx context.Context, e *expense.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e.ID = r.s.id()
	e.CreatedAt = r.s.now()
	c := *e
	r.s.entries[e.ID] = &c
	return nil
}

func (r *EntryRepository) GetByID(ctx context.Context, userID, id int64) (*expense.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.entries[id]
	if !ok || e.UserID != userID {
		return nil, expense.ErrEntryNotFound
	}
	c := *e
	return &c, nil
}

func (r *EntryRepository) ListUnlinked(ctx context.Context, userID int64, since, until time.Time) ([]*expense.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	linked := make(map[int64]struct{})
	for _, o := range r.s.occurrences {
		if o.LinkedEntryID != nil {
			linked[*o.LinkedEntryID] = struct{}{}
		}
	}

	var out []*expense.Entry
	for _, e := range r.s.entries {
		if e.UserID != userID || e.Date.Before(since) || e.Date.After(until) {
			continue
		}
		if _, ok := linked[e.ID]; ok {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *EntryRepository) FindAutoPosted(ctx context.Context, userID, categoryID int64, amount decimal.Decimal, date time.Time, paymentName string) (*expense.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	name := strings.ToLower(paymentName)
	exact := strings.ToLower(expense.AutoPostNote(paymentName))
	var fallback *expense.Entry
	for _, e := range r.s.entries {
		if e.UserID != userID || e.CategoryID != categoryID || !e.Amount.Equal(amount) || !e.Date.Equal(date) {
			continue
		}
		note := strings.ToLower(e.Note)
		if note == exact {
			c := *e
			return &c, nil
		}
		if fallback == nil && !e.AutoGenerated && strings.Contains(note, name) {
			fallback = e
		}
	}
	if fallback == nil {
		return nil, expense.ErrEntryNotFound
	}
	c := *fallback
	return &c, nil
}

type CategoryRepository struct {
	s *Store
}

var _ expense.CategoryRepository = (*CategoryRepository)(nil)

// Add stores a category, assigning an id when none is set.
func (r *CategoryRepository) Add(c *expense.Category) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == 0 {
		c.ID = r.s.id()
	}
	v := *c
	r.s.categories[c.ID] = &v
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, id int64) (*expense.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.categories[id]
	if !ok || c.UserID != userID {
		return nil, expense.ErrCategoryNotFound
	}
	v := *c
	return &v, nil
}

type RecipientRepository struct {
	s *Store
}

var _ notification.RecipientRepository = (*RecipientRepository)(nil)

func (r *RecipientRepository) GetByUserID(ctx context.Context, userID int64) (*notification.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.recipients[userID]
	if !ok {
		return nil, notification.ErrRecipientNotFound
	}
	c := *rec
	return &c, nil
}

func (r *RecipientRepository) GetByChatID(ctx context.Context, chatID int64) (*notification.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.recipients {
		if rec.TelegramChatID == chatID {
			c := *rec
			return &c, nil
		}
	}
	return nil, notification.ErrRecipientNotFound
}

func (r *RecipientRepository) Upsert(ctx context.Context, rec *notification.Recipient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec.UpdatedAt = r.s.now()
	c := *rec
	r.s.recipients[rec.UserID] = &c
	return nil
}
