package memstore

import (
	"context"
	"sort"

	"recurring_payments/internal/domain/payment"
)

type PaymentRepository struct {
	s *Store
}

var _ payment.Repository = (*PaymentRepository)(nil)

func clonePayment(p *payment.RecurringPayment) *payment.RecurringPayment {
	c := *p
	c.EndDate = copyTime(p.EndDate)
	return &c
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.RecurringPayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	p.ID = r.s.id()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.s.payments[p.ID] = clonePayment(p)
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, userID, id int64) (*payment.RecurringPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok || p.UserID != userID {
		return nil, payment.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]*payment.RecurringPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*payment.RecurringPayment
	for _, p := range r.s.payments {
		if p.UserID != userID || (activeOnly && !p.IsActive) {
			continue
		}
		out = append(out, clonePayment(p))
	}
	sortPayments(out)
	return out, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.RecurringPayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.payments[p.ID]
	if !ok || existing.UserID != p.UserID {
		return payment.ErrPaymentNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.s.now()
	r.s.payments[p.ID] = clonePayment(p)
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok || p.UserID != userID {
		return payment.ErrPaymentNotFound
	}
	delete(r.s.payments, id)
	for oid, o := range r.s.occurrences {
		if o.PaymentID == id {
			delete(r.s.occurrences, oid)
		}
	}
	for rid, rem := range r.s.reminders {
		if rem.PaymentID == id {
			delete(r.s.reminders, rid)
		}
	}
	for sid, sug := range r.s.suggestions {
		if sug.PaymentID == id {
			delete(r.s.suggestions, sid)
		}
	}
	return nil
}

func (r *PaymentRepository) ListAutoPost(ctx context.Context) ([]*payment.RecurringPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*payment.RecurringPayment
	for _, p := range r.s.payments {
		if p.IsActive && p.AutoPost {
			out = append(out, clonePayment(p))
		}
	}
	sortPayments(out)
	return out, nil
}

func (r *PaymentRepository) ListUserIDsWithActive(ctx context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[int64]struct{})
	var ids []int64
	for _, p := range r.s.payments {
		if !p.IsActive {
			continue
		}
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func sortPayments(ps []*payment.RecurringPayment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
