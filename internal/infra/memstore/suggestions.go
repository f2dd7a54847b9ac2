package memstore

import (
	"context"
	"sort"
	"time"

	"recurring_payments/internal/domain/payment"
)

type SuggestionRepository struct {
	s *Store
}

var _ payment.SuggestionRepository = (*SuggestionRepository)(nil)

func cloneSuggestion(sug *payment.LinkSuggestion) *payment.LinkSuggestion {
	c := *sug
	c.Reasons = append([]string(nil), sug.Reasons...)
	c.AcceptedAt = copyTime(sug.AcceptedAt)
	c.DismissedAt = copyTime(sug.DismissedAt)
	return &c
}

func (r *SuggestionRepository) Create(ctx context.Context, sug *payment.LinkSuggestion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.suggestions {
		if existing.PaymentID == sug.PaymentID && existing.EntryID == sug.EntryID {
			return payment.ErrDuplicateSuggestion
		}
	}
	sug.ID = r.s.id()
	sug.CreatedAt = r.s.now()
	r.s.suggestions[sug.ID] = cloneSuggestion(sug)
	return nil
}

func (r *SuggestionRepository) GetByID(ctx context.Context, userID, id int64) (*payment.LinkSuggestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sug, ok := r.s.suggestions[id]
	if !ok || sug.UserID != userID {
		return nil, payment.ErrSuggestionNotFound
	}
	return cloneSuggestion(sug), nil
}

func (r *SuggestionRepository) ExistingPairs(ctx context.Context, userID int64) (map[payment.PairKey]struct{}, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pairs := make(map[payment.PairKey]struct{})
	for _, sug := range r.s.suggestions {
		if sug.UserID == userID {
			pairs[payment.PairKey{PaymentID: sug.PaymentID, EntryID: sug.EntryID}] = struct{}{}
		}
	}
	return pairs, nil
}

func (r *SuggestionRepository) ListPending(ctx context.Context, userID int64) ([]*payment.LinkSuggestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*payment.LinkSuggestion
	for _, sug := range r.s.suggestions {
		if sug.UserID == userID && sug.Pending() {
			out = append(out, cloneSuggestion(sug))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *SuggestionRepository) MarkAccepted(ctx context.Context, userID, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sug, ok := r.s.suggestions[id]
	if !ok || sug.UserID != userID {
		return payment.ErrSuggestionNotFound
	}
	if !sug.Pending() {
		return payment.ErrSuggestionResolved
	}
	sug.IsAccepted = true
	sug.AcceptedAt = &at
	return nil
}

func (r *SuggestionRepository) ReleaseAcceptance(ctx context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sug, ok := r.s.suggestions[id]
	if !ok || sug.UserID != userID {
		return payment.ErrSuggestionNotFound
	}
	sug.IsAccepted = false
	sug.AcceptedAt = nil
	return nil
}

func (r *SuggestionRepository) MarkDismissed(ctx context.Context, userID, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sug, ok := r.s.suggestions[id]
	if !ok || sug.UserID != userID {
		return payment.ErrSuggestionNotFound
	}
	if sug.IsAccepted {
		return payment.ErrSuggestionResolved
	}
	if sug.IsDismissed {
		return nil
	}
	sug.IsDismissed = true
	sug.DismissedAt = &at
	return nil
}
