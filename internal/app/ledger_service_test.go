package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
)

func TestRecordPayment_LateFlag(t *testing.T) {
	tests := []struct {
		name     string
		actual   time.Time
		wantLate bool
	}{
		{"paid early", day(2024, 2, 10), false},
		{"paid on due date", day(2024, 2, 15), false},
		{"paid one day late", day(2024, 2, 16), true},
		{"paid a month late", day(2024, 3, 15), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, day(2024, 3, 20))
			p := f.addPayment(t, 1, nil)

			o, err := f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{
				PaymentID:     p.ID,
				ScheduledDate: day(2024, 2, 15),
				ActualDate:    timePtr(tt.actual),
			})
			require.NoError(t, err)

			assert.True(t, o.IsPaid)
			assert.False(t, o.IsSkipped)
			assert.Equal(t, tt.wantLate, o.IsLate)
		})
	}
}

func TestRecordPayment_Defaults(t *testing.T) {
	f := newFixture(t, time.Date(2024, 2, 17, 15, 30, 0, 0, time.UTC))
	p := f.addPayment(t, 1, nil)

	o, err := f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{
		PaymentID:        p.ID,
		ScheduledDate:    day(2024, 2, 15),
		ConfirmationCode: "ABC123",
	})
	require.NoError(t, err)

	require.NotNil(t, o.ActualDate)
	assert.Equal(t, day(2024, 2, 17), *o.ActualDate)
	assert.True(t, o.Amount.Equal(money("15.99")))
	assert.True(t, o.IsLate)
	assert.Equal(t, "ABC123", o.ConfirmationCode)
	assert.NotNil(t, o.PaidAt)
}

func TestRecordPayment_DefaultActualDateUsesClockZone(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// 2024-03-16 03:00 UTC is still the evening of the 15th in Los Angeles.
	f := newFixture(t, time.Date(2024, 3, 16, 3, 0, 0, 0, time.UTC))
	p := f.addPayment(t, 1, nil)
	clock := Clock(func() time.Time { return f.now }).In(la)
	ledger := NewLedgerServiceImpl(f.store.Payments(), f.store.Occurrences(), f.store.Entries(), clock, testLogger())

	o, err := ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{
		PaymentID:     p.ID,
		ScheduledDate: day(2024, 3, 15),
	})
	require.NoError(t, err)

	require.NotNil(t, o.ActualDate)
	assert.Equal(t, day(2024, 3, 15), *o.ActualDate)
	assert.False(t, o.IsLate)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, time.UTC, o.PaidAt.Location())
}

func TestRecordPayment_Ownership(t *testing.T) {
	f := newFixture(t, day(2024, 2, 20))
	p := f.addPayment(t, 1, nil)
	foreignEntry := f.addEntry(t, expense.Entry{UserID: 2, Amount: money("15.99"), Date: day(2024, 2, 15)})

	_, err := f.ledger.RecordPayment(f.ctx, 2, RecordPaymentInput{PaymentID: p.ID, ScheduledDate: day(2024, 2, 15)})
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)

	_, err = f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{
		PaymentID:     p.ID,
		ScheduledDate: day(2024, 2, 15),
		LinkedEntryID: &foreignEntry.ID,
	})
	assert.ErrorIs(t, err, expense.ErrEntryNotFound)

	history, err := f.ledger.History(f.ctx, 1, payment.HistoryFilter{IncludeSkipped: true})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecordPayment_Validation(t *testing.T) {
	f := newFixture(t, day(2024, 2, 20))
	p := f.addPayment(t, 1, nil)

	_, err := f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: p.ID})
	var vErr *payment.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "scheduled_date", vErr.Field)

	negative := money("-1")
	_, err = f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: p.ID, ScheduledDate: day(2024, 2, 15), Amount: &negative})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount", vErr.Field)
}

func TestSkipPayment(t *testing.T) {
	f := newFixture(t, day(2024, 2, 20))
	p := f.addPayment(t, 1, nil)

	o, err := f.ledger.SkipPayment(f.ctx, 1, p.ID, day(2024, 2, 15), "on holiday")
	require.NoError(t, err)
	assert.True(t, o.IsSkipped)
	assert.False(t, o.IsPaid)
	assert.False(t, o.IsLate)
	assert.Nil(t, o.ActualDate)
	assert.Equal(t, "on holiday", o.Notes)

	_, err = f.ledger.SkipPayment(f.ctx, 2, p.ID, day(2024, 2, 15), "")
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestLinkToEntry(t *testing.T) {
	f := newFixture(t, day(2024, 2, 20))
	p := f.addPayment(t, 1, nil)
	own := f.addEntry(t, expense.Entry{UserID: 1, Amount: money("15.99"), Date: day(2024, 2, 15)})
	other := f.addEntry(t, expense.Entry{UserID: 2, Amount: money("15.99"), Date: day(2024, 2, 15)})

	o, err := f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: p.ID, ScheduledDate: day(2024, 2, 15)})
	require.NoError(t, err)

	_, err = f.ledger.LinkToEntry(f.ctx, 1, o.ID, other.ID)
	assert.ErrorIs(t, err, expense.ErrEntryNotFound)

	_, err = f.ledger.LinkToEntry(f.ctx, 2, o.ID, other.ID)
	assert.ErrorIs(t, err, payment.ErrOccurrenceNotFound)

	linked, err := f.ledger.LinkToEntry(f.ctx, 1, o.ID, own.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.LinkedEntryID)
	assert.Equal(t, own.ID, *linked.LinkedEntryID)

	// Unlinked entries no longer include the linked one.
	unlinked, err := f.store.Entries().ListUnlinked(f.ctx, 1, day(2024, 1, 1), day(2024, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, unlinked)
}

func TestHistory_OrderAndFilters(t *testing.T) {
	f := newFixture(t, day(2024, 6, 1))
	netflix := f.addPayment(t, 1, nil)
	gym := f.addPayment(t, 1, func(in *CreatePaymentInput) { in.Name = "Gym"; in.DueDay = 1 })

	for _, m := range []time.Month{time.January, time.March, time.February} {
		_, err := f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: netflix.ID, ScheduledDate: day(2024, m, 15)})
		require.NoError(t, err)
	}
	_, err := f.ledger.SkipPayment(f.ctx, 1, netflix.ID, day(2024, 4, 15), "")
	require.NoError(t, err)
	_, err = f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: gym.ID, ScheduledDate: day(2024, 2, 1)})
	require.NoError(t, err)

	all, err := f.ledger.History(f.ctx, 1, payment.HistoryFilter{IncludeSkipped: true})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].ScheduledDate.After(all[i-1].ScheduledDate), "history must be newest first")
	}
	assert.Equal(t, day(2024, 4, 15), all[0].ScheduledDate)

	paidOnly, err := f.ledger.History(f.ctx, 1, payment.HistoryFilter{PaymentID: &netflix.ID})
	require.NoError(t, err)
	assert.Len(t, paidOnly, 3)

	ranged, err := f.ledger.History(f.ctx, 1, payment.HistoryFilter{
		From:           timePtr(day(2024, 2, 1)),
		To:             timePtr(day(2024, 3, 1)),
		IncludeSkipped: true,
	})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	limited, err := f.ledger.History(f.ctx, 1, payment.HistoryFilter{IncludeSkipped: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = f.ledger.History(f.ctx, 1, payment.HistoryFilter{From: timePtr(day(2024, 3, 1)), To: timePtr(day(2024, 2, 1))})
	var vErr *payment.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = f.ledger.History(f.ctx, 2, payment.HistoryFilter{PaymentID: &netflix.ID})
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestDeleteOccurrence(t *testing.T) {
	f := newFixture(t, day(2024, 2, 20))
	p := f.addPayment(t, 1, nil)
	o, err := f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: p.ID, ScheduledDate: day(2024, 2, 15)})
	require.NoError(t, err)

	assert.ErrorIs(t, f.ledger.DeleteOccurrence(f.ctx, 2, o.ID), payment.ErrOccurrenceNotFound)
	require.NoError(t, f.ledger.DeleteOccurrence(f.ctx, 1, o.ID))
	assert.ErrorIs(t, f.ledger.DeleteOccurrence(f.ctx, 1, o.ID), payment.ErrOccurrenceNotFound)
}

func TestComputeStats(t *testing.T) {
	late := &payment.Occurrence{IsPaid: true, IsLate: true, Amount: money("20.00")}
	onTime := &payment.Occurrence{IsPaid: true, Amount: money("10.00")}
	onTime2 := &payment.Occurrence{IsPaid: true, Amount: money("10.01")}
	skipped := &payment.Occurrence{IsSkipped: true, Amount: money("0")}

	st := ComputeStats([]*payment.Occurrence{late, onTime, onTime2, skipped})

	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.Paid)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 1, st.Late)
	assert.Equal(t, 2, st.OnTime)
	assert.InDelta(t, 2.0/3.0, st.OnTimeRate, 0.0001)
	assert.Equal(t, "40.01", st.TotalPaid.StringFixed(2))
	assert.Equal(t, "13.34", st.AveragePaid.StringFixed(2))

	empty := ComputeStats(nil)
	assert.Zero(t, empty.OnTimeRate)
	assert.True(t, empty.AveragePaid.IsZero())
}

func TestStats(t *testing.T) {
	f := newFixture(t, day(2024, 6, 1))
	p := f.addPayment(t, 1, nil)
	_, err := f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: p.ID, ScheduledDate: day(2024, 2, 15), ActualDate: timePtr(day(2024, 2, 15))})
	require.NoError(t, err)
	_, err = f.ledger.RecordPayment(f.ctx, 1, RecordPaymentInput{PaymentID: p.ID, ScheduledDate: day(2024, 3, 15), ActualDate: timePtr(day(2024, 3, 18))})
	require.NoError(t, err)
	_, err = f.ledger.SkipPayment(f.ctx, 1, p.ID, day(2024, 4, 15), "")
	require.NoError(t, err)

	st, err := f.ledger.Stats(f.ctx, 1, &p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Paid)
	assert.Equal(t, 1, st.Late)
	assert.Equal(t, 1, st.Skipped)
	assert.InDelta(t, 0.5, st.OnTimeRate, 0.0001)

	_, err = f.ledger.Stats(f.ctx, 2, &p.ID)
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}
