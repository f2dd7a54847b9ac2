package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newPayment(userID int64) *payment.RecurringPayment {
	return &payment.RecurringPayment{
		UserID: userID, Name: "Netflix", Amount: decimal.RequireFromString("15.99"), Currency: "USD",
		Rule: payment.MonthlyDue{Day: 15}, StartDate: day(2024, 1, 15), IsActive: true,
	}
}

func TestPaymentRepository_ScopesByUserAndCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPayment(1)
	require.NoError(t, s.Payments().Create(ctx, p))

	_, err := s.Payments().GetByID(ctx, 2, p.ID)
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
	assert.ErrorIs(t, s.Payments().Delete(ctx, 2, p.ID), payment.ErrPaymentNotFound)

	o := &payment.Occurrence{PaymentID: p.ID, UserID: 1, ScheduledDate: day(2024, 2, 15), IsPaid: true}
	require.NoError(t, s.Occurrences().Create(ctx, o))
	rem := &payment.Reminder{PaymentID: p.ID, UserID: 1, DueDate: day(2024, 3, 15)}
	require.NoError(t, s.Reminders().Create(ctx, rem))
	sug := &payment.LinkSuggestion{PaymentID: p.ID, EntryID: 99, UserID: 1}
	require.NoError(t, s.Suggestions().Create(ctx, sug))

	require.NoError(t, s.Payments().Delete(ctx, 1, p.ID))
	_, err = s.Occurrences().GetByID(ctx, 1, o.ID)
	assert.ErrorIs(t, err, payment.ErrOccurrenceNotFound)
	_, err = s.Reminders().GetByID(ctx, 1, rem.ID)
	assert.ErrorIs(t, err, payment.ErrReminderNotFound)
	_, err = s.Suggestions().GetByID(ctx, 1, sug.ID)
	assert.ErrorIs(t, err, payment.ErrSuggestionNotFound)
}

func TestOccurrenceRepository_RejectsForeignPayment(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPayment(1)
	require.NoError(t, s.Payments().Create(ctx, p))

	err := s.Occurrences().Create(ctx, &payment.Occurrence{PaymentID: p.ID, UserID: 2, ScheduledDate: day(2024, 2, 15)})
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestReminderRepository_OneUndismissedPerDueDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := &payment.Reminder{PaymentID: 1, UserID: 1, DueDate: day(2024, 3, 15)}
	require.NoError(t, s.Reminders().Create(ctx, first))
	assert.ErrorIs(t, s.Reminders().Create(ctx, &payment.Reminder{PaymentID: 1, UserID: 1, DueDate: day(2024, 3, 15)}), payment.ErrDuplicateReminder)

	first.IsDismissed = true
	require.NoError(t, s.Reminders().Update(ctx, first))
	require.NoError(t, s.Reminders().Create(ctx, &payment.Reminder{PaymentID: 1, UserID: 1, DueDate: day(2024, 3, 15)}))

	first.IsDismissed = false
	assert.ErrorIs(t, s.Reminders().Update(ctx, first), payment.ErrDuplicateReminder)
}

func TestSuggestionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Suggestions()
	low := &payment.LinkSuggestion{PaymentID: 1, EntryID: 10, UserID: 1, Confidence: 0.65}
	high := &payment.LinkSuggestion{PaymentID: 1, EntryID: 11, UserID: 1, Confidence: 0.97}
	require.NoError(t, repo.Create(ctx, low))
	require.NoError(t, repo.Create(ctx, high))
	assert.ErrorIs(t, repo.Create(ctx, &payment.LinkSuggestion{PaymentID: 1, EntryID: 10, UserID: 1}), payment.ErrDuplicateSuggestion)

	pending, err := repo.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, high.ID, pending[0].ID)

	now := day(2024, 3, 12)
	require.NoError(t, repo.MarkAccepted(ctx, 1, high.ID, now))
	assert.ErrorIs(t, repo.MarkAccepted(ctx, 1, high.ID, now), payment.ErrSuggestionResolved)
	assert.ErrorIs(t, repo.MarkDismissed(ctx, 1, high.ID, now), payment.ErrSuggestionResolved)
	require.NoError(t, repo.ReleaseAcceptance(ctx, 1, high.ID))

	require.NoError(t, repo.MarkDismissed(ctx, 1, low.ID, now))
	require.NoError(t, repo.MarkDismissed(ctx, 1, low.ID, now.AddDate(0, 0, 1)))
	got, err := repo.GetByID(ctx, 1, low.ID)
	require.NoError(t, err)
	assert.Equal(t, now, *got.DismissedAt)

	pairs, err := repo.ExistingPairs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestEntryRepository_UnlinkedAndAutoPosted(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPayment(1)
	require.NoError(t, s.Payments().Create(ctx, p))

	amount := decimal.RequireFromString("15.99")
	linked := &expense.Entry{UserID: 1, CategoryID: 3, Amount: amount, Date: day(2024, 2, 15), Note: "Auto-posted: Netflix"}
	free := &expense.Entry{UserID: 1, Amount: amount, Date: day(2024, 3, 1)}
	old := &expense.Entry{UserID: 1, Amount: amount, Date: day(2023, 12, 1)}
	future := &expense.Entry{UserID: 1, Amount: amount, Date: day(2024, 4, 1)}
	for _, e := range []*expense.Entry{linked, free, old, future} {
		require.NoError(t, s.Entries().Create(ctx, e))
	}
	require.NoError(t, s.Occurrences().Create(ctx, &payment.Occurrence{PaymentID: p.ID, UserID: 1, ScheduledDate: day(2024, 2, 15), LinkedEntryID: &linked.ID}))

	got, err := s.Entries().ListUnlinked(ctx, 1, day(2024, 1, 1), day(2024, 3, 31))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, free.ID, got[0].ID)

	found, err := s.Entries().FindAutoPosted(ctx, 1, 3, amount, day(2024, 2, 15), "NETFLIX")
	require.NoError(t, err)
	assert.Equal(t, linked.ID, found.ID)

	_, err = s.Entries().FindAutoPosted(ctx, 1, 3, amount, day(2024, 2, 16), "Netflix")
	assert.ErrorIs(t, err, expense.ErrEntryNotFound)
}

func TestEntryRepository_FindAutoPostedMatching(t *testing.T) {
	amount := decimal.RequireFromString("30.00")
	tests := []struct {
		name      string
		entries   []expense.Entry
		payment   string
		wantNote  string
		wantFound bool
	}{
		{
			name:      "exact auto-posted note",
			entries:   []expense.Entry{{Note: "Auto-posted: Gym", AutoGenerated: true}},
			payment:   "gym",
			wantNote:  "Auto-posted: Gym",
			wantFound: true,
		},
		{
			name:      "another payment's auto-posted entry",
			entries:   []expense.Entry{{Note: "Auto-posted: Gym Plus", AutoGenerated: true}},
			payment:   "Gym",
			wantFound: false,
		},
		{
			name:      "manual entry mentioning the payment",
			entries:   []expense.Entry{{Note: "paid gym at the desk"}},
			payment:   "Gym",
			wantNote:  "paid gym at the desk",
			wantFound: true,
		},
		{
			name: "exact note preferred over manual mention",
			entries: []expense.Entry{
				{Note: "gym towel"},
				{Note: "Auto-posted: Gym", AutoGenerated: true},
			},
			payment:   "Gym",
			wantNote:  "Auto-posted: Gym",
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := New()
			for _, e := range tt.entries {
				e.UserID, e.CategoryID, e.Amount, e.Date = 1, 3, amount, day(2024, 3, 15)
				require.NoError(t, s.Entries().Create(ctx, &e))
			}

			found, err := s.Entries().FindAutoPosted(ctx, 1, 3, amount, day(2024, 3, 15), tt.payment)
			if !tt.wantFound {
				assert.ErrorIs(t, err, expense.ErrEntryNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNote, found.Note)
		})
	}
}
