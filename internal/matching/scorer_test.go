package matching

import (
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

func netflix(t *testing.T) *payment.RecurringPayment {
	t.Helper()
	rule, err := payment.NewDueRule(payment.FrequencyMonthly, 15)
	require.NoError(t, err)
	return &payment.RecurringPayment{
		ID:         1,
		UserID:     10,
		CategoryID: 7,
		Name:       "Netflix",
		Amount:     decimal.RequireFromString("15.99"),
		Currency:   "USD",
		Rule:       rule,
		StartDate:  day(2024, 1, 15),
		IsActive:   true,
	}
}

func TestScore_StrongMatchIsSuggested(t *testing.T) {
	p := netflix(t)
	e := &expense.Entry{
		ID:         100,
		UserID:     10,
		CategoryID: 7,
		Amount:     decimal.RequireFromString("15.99"),
		Date:       day(2024, 3, 14),
		Note:       "NETFLIX monthly",
	}

	res := NewScorer().Score(p, e)

	assert.GreaterOrEqual(t, res.Confidence, 0.9)
	assert.InDelta(t, 0.9714, res.Confidence, 0.0001)
	assert.True(t, res.Suggested())
	assert.Equal(t, day(2024, 3, 15), res.DueDate)
	assert.Equal(t, []string{
		"Exact amount match",
		"Same category",
		"Dated 1 day from due date 2024-03-15",
	}, res.Reasons)
}

func TestScore_WeakMatchIsNotSuggested(t *testing.T) {
	p := netflix(t)
	e := &expense.Entry{
		ID:         101,
		UserID:     10,
		CategoryID: 9,
		Amount:     decimal.RequireFromString("2.00"),
		Date:       day(2024, 4, 4),
		Note:       "coffee",
	}

	res := NewScorer().Score(p, e)

	assert.Less(t, res.Confidence, SuggestionThreshold)
	assert.False(t, res.Suggested())
	assert.True(t, res.DueDate.IsZero())
	assert.Equal(t, []string{"Amount differs by 13.99 USD"}, res.Reasons)
}

func TestScore_Signals(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		category  int64
		date      time.Time
		note      string
		want      Signals
		wantScore float64
	}{
		{
			name: "perfect", amount: "15.99", category: 7, date: day(2024, 2, 15), note: "netflix",
			want:      Signals{Amount: 1, Category: 1, Date: 1, Description: 1},
			wantScore: 1,
		},
		{
			name: "amount more than double", amount: "40.00", category: 0, date: day(2024, 2, 1), note: "",
			want:      Signals{},
			wantScore: 0,
		},
		{
			name: "three days off", amount: "15.99", category: 0, date: day(2024, 2, 18), note: "",
			want:      Signals{Amount: 1, Date: 1 - 3.0/7.0},
			wantScore: 0.4 + 0.2*(4.0/7.0),
		},
		{
			name: "four days off", amount: "15.99", category: 7, date: day(2024, 2, 19), note: "",
			want:      Signals{Amount: 1, Category: 1},
			wantScore: 0.7,
		},
		{
			name: "half the amount", amount: "7.995", category: 7, date: day(2024, 2, 15), note: "",
			want:      Signals{Amount: 0.5, Category: 1, Date: 1},
			wantScore: 0.2 + 0.3 + 0.2,
		},
		{
			name: "name inside longer note", amount: "15.99", category: 0, date: day(2024, 2, 1), note: "Paid NetFlix via card",
			want:      Signals{Amount: 1, Description: 1},
			wantScore: 0.5,
		},
	}

	p := netflix(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &expense.Entry{
				CategoryID: tt.category,
				Amount:     decimal.RequireFromString(tt.amount),
				Date:       tt.date,
				Note:       tt.note,
			}
			res := NewScorer().Score(p, e)

			assert.InDelta(t, tt.want.Amount, res.Signals.Amount, 0.0001)
			assert.Equal(t, tt.want.Category, res.Signals.Category)
			assert.InDelta(t, tt.want.Date, res.Signals.Date, 0.0001)
			assert.Equal(t, tt.want.Description, res.Signals.Description)
			assert.InDelta(t, tt.wantScore, res.Confidence, 0.0001)
			assert.LessOrEqual(t, len(res.Reasons), 3)
		})
	}
}

func TestScore_ReasonsStrongestFirst(t *testing.T) {
	p := netflix(t)
	e := &expense.Entry{
		CategoryID: 3,
		Amount:     decimal.RequireFromString("15.99"),
		Date:       day(2024, 2, 16),
		Note:       "netflix",
	}

	res := NewScorer().Score(p, e)

	require.Len(t, res.Reasons, 3)
	assert.Equal(t, "Exact amount match", res.Reasons[0])
	assert.Equal(t, "Dated 1 day from due date 2024-02-15", res.Reasons[1])
	assert.Equal(t, `Note mentions "Netflix"`, res.Reasons[2])
}
