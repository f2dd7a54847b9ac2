// Package matching scores how likely an expense entry is a payment of a
// recurring payment. The score is a weighted sum of independent signals.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/recurrence"
)

const (
	// Signal weights, summing to 1.
	AmountWeight      = 0.4
	CategoryWeight    = 0.3
	DateWeight        = 0.2
	DescriptionWeight = 0.1

	// SuggestionThreshold is the minimum confidence worth persisting.
	SuggestionThreshold = 0.60

	// Date difference tolerance (in days). Beyond it the date signal is zero.
	DateToleranceDays = 3
	// The date signal falls off linearly over this many days.
	dateFalloffDays = 7.0

	maxReasons = 3
)

// Signals holds the individual [0,1] signal values before weighting.
type Signals struct {
	Amount      float64
	Category    float64
	Date        float64
	Description float64
}

// Result is the outcome of scoring one (payment, entry) pair.
type Result struct {
	Confidence float64 // 0.00 to 1.00
	Signals    Signals
	// DueDate is the occurrence the entry was compared against; zero when no
	// due date falls within DateToleranceDays of the entry.
	DueDate time.Time
	Reasons []string
}

// Suggested reports whether the result clears SuggestionThreshold.
func (r Result) Suggested() bool {
	return r.Confidence >= SuggestionThreshold
}

type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

type contribution struct {
	value  float64
	reason string
}

// Score rates entry e against payment p.
func (s *Scorer) Score(p *payment.RecurringPayment, e *expense.Entry) Result {
	var res Result
	var parts []contribution

	res.Signals.Amount = amountSimilarity(p.Amount, e.Amount)
	if res.Signals.Amount > 0 {
		reason := "Exact amount match"
		if res.Signals.Amount < 1 {
			diff := e.Amount.Sub(p.Amount).Abs()
			reason = fmt.Sprintf("Amount differs by %s %s", diff.StringFixed(2), p.Currency)
		}
		parts = append(parts, contribution{AmountWeight * res.Signals.Amount, reason})
	}

	if p.CategoryID != 0 && e.CategoryID == p.CategoryID {
		res.Signals.Category = 1
		parts = append(parts, contribution{CategoryWeight, "Same category"})
	}

	if due, dist, ok := recurrence.DueDateNear(p, e.Date, DateToleranceDays); ok {
		res.DueDate = due
		res.Signals.Date = 1 - float64(dist)/dateFalloffDays
		reason := fmt.Sprintf("Dated on due date %s", due.Format("2006-01-02"))
		if dist > 0 {
			reason = fmt.Sprintf("Dated %d %s from due date %s", dist, plural(dist, "day", "days"), due.Format("2006-01-02"))
		}
		parts = append(parts, contribution{DateWeight * res.Signals.Date, reason})
	}

	if name := strings.TrimSpace(p.Name); name != "" &&
		strings.Contains(strings.ToLower(e.Note), strings.ToLower(name)) {
		res.Signals.Description = 1
		parts = append(parts, contribution{DescriptionWeight, fmt.Sprintf("Note mentions %q", name)})
	}

	total := 0.0
	for _, c := range parts {
		total += c.value
	}
	res.Confidence = round4(math.Min(1, math.Max(0, total)))

	sort.SliceStable(parts, func(i, j int) bool { return parts[i].value > parts[j].value })
	for i := 0; i < len(parts) && i < maxReasons; i++ {
		res.Reasons = append(res.Reasons, parts[i].reason)
	}
	return res
}

// amountSimilarity is max(0, 1 - |expected - actual| / expected).
func amountSimilarity(expected, actual decimal.Decimal) float64 {
	if !expected.IsPositive() {
		return 0
	}
	ratio := actual.Sub(expected).Abs().Div(expected).InexactFloat64()
	return math.Max(0, 1-ratio)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
