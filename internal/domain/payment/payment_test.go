package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency(" biweekly ")
	require.NoError(t, err)
	assert.Equal(t, FrequencyBiweekly, f)

	_, err = ParseFrequency("daily")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "frequency", ve.Field)
}

func TestNewDueRule(t *testing.T) {
	tests := []struct {
		freq    Frequency
		dueDay  int
		want    DueRule
		wantErr bool
	}{
		{FrequencyWeekly, 0, WeeklyDue{Weekday: time.Sunday}, false},
		{FrequencyBiweekly, 5, BiweeklyDue{Weekday: time.Friday}, false},
		{FrequencyMonthly, 31, MonthlyDue{Day: 31}, false},
		{FrequencyQuarterly, 1, QuarterlyDue{Day: 1}, false},
		{FrequencyAnnually, 29, AnnualDue{Day: 29}, false},
		{FrequencyWeekly, 7, nil, true},
		{FrequencyBiweekly, -1, nil, true},
		{FrequencyMonthly, 0, nil, true},
		{FrequencyAnnually, 32, nil, true},
		{Frequency("DAILY"), 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			got, err := NewDueRule(tt.freq, tt.dueDay)
			if tt.wantErr {
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.freq, got.Frequency())
			assert.Equal(t, tt.dueDay, got.DueDay())
		})
	}
}

func TestRecurringPayment_Validate(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)
	valid := func() RecurringPayment {
		return RecurringPayment{
			Name:             "Netflix",
			Amount:           decimal.RequireFromString("15.99"),
			Currency:         "USD",
			Rule:             MonthlyDue{Day: 15},
			StartDate:        start,
			RemindDaysBefore: 3,
		}
	}

	tests := []struct {
		name      string
		mutate    func(p *RecurringPayment)
		wantField string
	}{
		{"valid", func(p *RecurringPayment) {}, ""},
		{"blank name", func(p *RecurringPayment) { p.Name = "  " }, "name"},
		{"negative amount", func(p *RecurringPayment) { p.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"currency length", func(p *RecurringPayment) { p.Currency = "US" }, "currency"},
		{"missing rule", func(p *RecurringPayment) { p.Rule = nil }, "frequency"},
		{"zero-value rule", func(p *RecurringPayment) { p.Rule = MonthlyDue{} }, "due_day"},
		{"missing start", func(p *RecurringPayment) { p.StartDate = time.Time{} }, "start_date"},
		{"end before start", func(p *RecurringPayment) { p.EndDate = &before }, "end_date"},
		{"lead time too long", func(p *RecurringPayment) { p.RemindDaysBefore = MaxRemindDaysBefore + 1 }, "remind_days_before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrPaymentNotFound))
	assert.True(t, IsNotFound(ErrSuggestionNotFound))
	assert.False(t, IsNotFound(ErrSuggestionResolved))
	assert.False(t, IsNotFound(nil))
}

func TestSuggestionPending(t *testing.T) {
	s := &LinkSuggestion{}
	assert.True(t, s.Pending())
	s.IsDismissed = true
	assert.False(t, s.Pending())
}
