package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
)

type suggestionSetup struct {
	*fixture
	payment *payment.RecurringPayment
	match   *expense.Entry
	noise   *expense.Entry
}

func newSuggestionSetup(t *testing.T) *suggestionSetup {
	t.Helper()
	f := newFixture(t, day(2024, 3, 20))
	subscriptions := f.addCategory(1, "Subscriptions")
	food := f.addCategory(1, "Food")

	s := &suggestionSetup{fixture: f}
	s.payment = f.addPayment(t, 1, func(in *CreatePaymentInput) { in.CategoryID = subscriptions })
	s.match = f.addEntry(t, expense.Entry{
		UserID: 1, CategoryID: subscriptions, Amount: money("15.99"), Date: day(2024, 3, 14), Note: "NETFLIX.COM",
	})
	s.noise = f.addEntry(t, expense.Entry{
		UserID: 1, CategoryID: food, Amount: money("2.00"), Date: day(2024, 2, 24), Note: "coffee",
	})
	return s
}

func TestGenerateSuggestions_ScoresAndThreshold(t *testing.T) {
	s := newSuggestionSetup(t)

	n, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := s.suggestions.List(s.ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, s.payment.ID, pending[0].PaymentID)
	assert.Equal(t, s.match.ID, pending[0].EntryID)
	assert.GreaterOrEqual(t, pending[0].Confidence, 0.9)
	assert.NotEmpty(t, pending[0].Reasons)
	assert.LessOrEqual(t, len(pending[0].Reasons), 3)
}

func TestGenerateSuggestions_NeverDuplicatesPairs(t *testing.T) {
	s := newSuggestionSetup(t)

	_, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	n, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := s.suggestions.List(s.ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.suggestions.Dismiss(s.ctx, 1, pending[0].ID))
	n, err = s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	assert.Zero(t, n, "a dismissed pair must not be suggested again")

	pairs, err := s.store.Suggestions().ExistingPairs(s.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestGenerateSuggestions_LookbackWindow(t *testing.T) {
	s := newSuggestionSetup(t)

	n, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 3, s.now)
	require.NoError(t, err)
	assert.Zero(t, n, "entry dated 6 days ago is outside a 3 day window")

	n, err = s.suggestions.GenerateSuggestions(s.ctx, 1, 7, s.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGenerateSuggestions_IgnoresFutureEntries(t *testing.T) {
	s := newSuggestionSetup(t)
	s.addEntry(t, expense.Entry{
		UserID: 1, CategoryID: s.match.CategoryID, Amount: money("15.99"), Date: day(2024, 4, 15), Note: "NETFLIX.COM",
	})

	n, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := s.suggestions.List(s.ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, s.match.ID, pending[0].EntryID)
}

func TestClampDaysBack(t *testing.T) {
	assert.Equal(t, 1, ClampDaysBack(-5))
	assert.Equal(t, 1, ClampDaysBack(0))
	assert.Equal(t, 30, ClampDaysBack(30))
	assert.Equal(t, 365, ClampDaysBack(10000))
}

func TestAcceptSuggestion(t *testing.T) {
	s := newSuggestionSetup(t)
	_, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	pending, err := s.suggestions.List(s.ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID

	_, err = s.suggestions.Accept(s.ctx, 2, id)
	assert.ErrorIs(t, err, payment.ErrSuggestionNotFound)

	occ, err := s.suggestions.Accept(s.ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, occ.IsPaid)
	assert.False(t, occ.IsLate)
	assert.Equal(t, day(2024, 3, 15), occ.ScheduledDate)
	require.NotNil(t, occ.ActualDate)
	assert.Equal(t, day(2024, 3, 14), *occ.ActualDate)
	assert.True(t, occ.Amount.Equal(money("15.99")))
	require.NotNil(t, occ.LinkedEntryID)
	assert.Equal(t, s.match.ID, *occ.LinkedEntryID)

	_, err = s.suggestions.Accept(s.ctx, 1, id)
	assert.ErrorIs(t, err, payment.ErrSuggestionResolved)
	assert.ErrorIs(t, s.suggestions.Dismiss(s.ctx, 1, id), payment.ErrSuggestionResolved)

	history, err := s.ledger.History(s.ctx, 1, payment.HistoryFilter{IncludeSkipped: true})
	require.NoError(t, err)
	assert.Len(t, history, 1, "exactly one occurrence per accepted suggestion")

	stored, err := s.store.Suggestions().GetByID(s.ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, stored.IsAccepted)
	assert.NotNil(t, stored.AcceptedAt)

	pending, err = s.suggestions.List(s.ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAcceptSuggestion_ReleasesClaimOnLedgerFailure(t *testing.T) {
	s := newSuggestionSetup(t)
	_, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	pending, err := s.suggestions.List(s.ctx, 1)
	require.NoError(t, err)
	id := pending[0].ID

	broken := NewSuggestionServiceImpl(
		s.store.Payments(), s.store.Suggestions(), s.store.Entries(),
		&failingLedger{LedgerService: s.ledger, failFor: s.payment.ID},
		func() time.Time { return s.now }, testLogger(),
	)
	_, err = broken.Accept(s.ctx, 1, id)
	require.Error(t, err)

	stored, err := s.store.Suggestions().GetByID(s.ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, stored.Pending())

	_, err = s.suggestions.Accept(s.ctx, 1, id)
	require.NoError(t, err)
}

func TestDismissSuggestion_Idempotent(t *testing.T) {
	s := newSuggestionSetup(t)
	_, err := s.suggestions.GenerateSuggestions(s.ctx, 1, 30, s.now)
	require.NoError(t, err)
	pending, err := s.suggestions.List(s.ctx, 1)
	require.NoError(t, err)
	id := pending[0].ID

	require.NoError(t, s.suggestions.Dismiss(s.ctx, 1, id))
	require.NoError(t, s.suggestions.Dismiss(s.ctx, 1, id))
	assert.ErrorIs(t, s.suggestions.Dismiss(s.ctx, 2, id), payment.ErrSuggestionNotFound)

	_, err = s.suggestions.Accept(s.ctx, 1, id)
	assert.ErrorIs(t, err, payment.ErrSuggestionResolved)
}

func TestGenerateAllSuggestions(t *testing.T) {
	s := newSuggestionSetup(t)
	s.addPayment(t, 2, func(in *CreatePaymentInput) { in.Name = "Spotify"; in.Amount = money("9.99") })
	s.addEntry(t, expense.Entry{UserID: 2, Amount: money("9.99"), Date: day(2024, 3, 15), Note: "spotify"})

	res, err := s.suggestions.GenerateAll(s.ctx, s.now, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 2, res.Created)

	again, err := s.suggestions.GenerateAll(s.ctx, s.now, 30)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, 2, again.Skipped)
}
