package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/infra/memstore"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingQueue struct {
	mu       sync.Mutex
	messages map[int64][]string
}

func (q *recordingQueue) Enqueue(userID int64, message string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.messages == nil {
		q.messages = make(map[int64][]string)
	}
	q.messages[userID] = append(q.messages[userID], message)
	return true
}

func (q *recordingQueue) count(userID int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages[userID])
}

type fixture struct {
	ctx   context.Context
	now   time.Time
	store *memstore.Store
	queue *recordingQueue

	payments    *PaymentServiceImpl
	ledger      *LedgerServiceImpl
	reminders   *ReminderServiceImpl
	autoPost    *AutoPostServiceImpl
	suggestions *SuggestionServiceImpl
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		now:   now,
		store: memstore.New(),
		queue: &recordingQueue{},
	}
	clock := Clock(func() time.Time { return f.now })
	log := testLogger()

	f.payments = NewPaymentServiceImpl(f.store.Payments(), f.store.Categories(), log)
	f.ledger = NewLedgerServiceImpl(f.store.Payments(), f.store.Occurrences(), f.store.Entries(), clock, log)
	f.reminders = NewReminderServiceImpl(f.store.Payments(), f.store.Reminders(), f.store.Entries(), f.queue, log)
	f.autoPost = NewAutoPostServiceImpl(f.store.Payments(), f.store.Entries(), f.ledger, f.queue, log)
	f.suggestions = NewSuggestionServiceImpl(f.store.Payments(), f.store.Suggestions(), f.store.Entries(), f.ledger, clock, log)
	return f
}

// addPayment creates a monthly 15.99 USD payment due on the 15th, starting
// 2024-01-15, adjusted by mutate.
func (f *fixture) addPayment(t *testing.T, userID int64, mutate func(in *CreatePaymentInput)) *payment.RecurringPayment {
	t.Helper()
	in := CreatePaymentInput{
		Name:      "Netflix",
		Amount:    money("15.99"),
		Currency:  "USD",
		Frequency: payment.FrequencyMonthly,
		DueDay:    15,
		StartDate: day(2024, 1, 15),
	}
	if mutate != nil {
		mutate(&in)
	}
	p, err := f.payments.Create(f.ctx, userID, in)
	require.NoError(t, err)
	return p
}

func (f *fixture) addCategory(userID int64, name string) int64 {
	c := &expense.Category{UserID: userID, Name: name}
	f.store.Categories().Add(c)
	return c.ID
}

func (f *fixture) addEntry(t *testing.T, e expense.Entry) *expense.Entry {
	t.Helper()
	require.NoError(t, f.store.Entries().Create(f.ctx, &e))
	return &e
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func timePtr(t time.Time) *time.Time {
	return &t
}
