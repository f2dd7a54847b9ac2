// Package recurrence computes due dates of recurring payments. Everything here
// is pure calendar arithmetic on UTC midnights; nothing panics on odd inputs
// because a single bad payment must not stall a scheduler sweep.
package recurrence

import (
	"time"

	"recurring_payments/internal/domain/payment"
)

// maxIterations caps the loops that walk forward through occurrences.
const maxIterations = 1000

// Day truncates t to its calendar date at 00:00 UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (negative if b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// NextDueDate returns the first due date strictly after the given date.
// ok is false when the payment has no occurrence left before its end date.
//
// A date before the start date yields the first occurrence on or after the
// start date, computed by the same per-frequency rule as every later one.
func NextDueDate(p *payment.RecurringPayment, after time.Time) (next time.Time, ok bool) {
	if p == nil || p.Rule == nil || p.StartDate.IsZero() {
		return time.Time{}, false
	}
	after = Day(after)
	start := Day(p.StartDate)

	if p.EndDate != nil && after.After(Day(*p.EndDate)) {
		return time.Time{}, false
	}
	if after.Before(start) {
		after = start.AddDate(0, 0, -1)
	}

	switch r := p.Rule.(type) {
	case payment.WeeklyDue:
		next = nextWeekday(after, r.Weekday)
	case payment.BiweeklyDue:
		next = nextWeekday(after, r.Weekday)
		// Parity counts whole weeks from the start date itself.
		if (DaysBetween(start, next)/7)%2 != 0 {
			next = next.AddDate(0, 0, 7)
		}
	case payment.MonthlyDue:
		next = nextInMonthStep(after, r.Day, start, 1)
	case payment.QuarterlyDue:
		next = nextInMonthStep(after, r.Day, start, 3)
	case payment.AnnualDue:
		next = clampedDate(after.Year(), start.Month(), r.Day)
		if !next.After(after) {
			next = clampedDate(after.Year()+1, start.Month(), r.Day)
		}
	default:
		return time.Time{}, false
	}

	if p.EndDate != nil && next.After(Day(*p.EndDate)) {
		return time.Time{}, false
	}
	return next, true
}

// IsDueOn reports whether day is itself a due date of p, honouring the start
// and end bounds and the biweekly parity.
func IsDueOn(p *payment.RecurringPayment, day time.Time) bool {
	day = Day(day)
	if p == nil || day.Before(Day(p.StartDate)) {
		return false
	}
	next, ok := NextDueDate(p, day.AddDate(0, 0, -1))
	return ok && next.Equal(day)
}

// DueDateNear returns the due date closest to day within ±window days and its
// absolute distance in days. Ties go to the earlier date.
func DueDateNear(p *payment.RecurringPayment, day time.Time, window int) (due time.Time, distance int, ok bool) {
	if window < 0 {
		return time.Time{}, 0, false
	}
	day = Day(day)
	limit := day.AddDate(0, 0, window)
	cursor := day.AddDate(0, 0, -window-1)

	for i := 0; i < maxIterations; i++ {
		next, found := NextDueDate(p, cursor)
		if !found || next.After(limit) {
			break
		}
		d := abs(DaysBetween(day, next))
		if !ok || d < distance {
			due, distance, ok = next, d, true
		}
		cursor = next
	}
	return due, distance, ok
}

// Upcoming lists the due dates in (from, until], at most limit of them.
func Upcoming(p *payment.RecurringPayment, from, until time.Time, limit int) []time.Time {
	var dates []time.Time
	until = Day(until)
	cursor := from
	for i := 0; i < maxIterations && (limit <= 0 || len(dates) < limit); i++ {
		next, ok := NextDueDate(p, cursor)
		if !ok || next.After(until) {
			break
		}
		dates = append(dates, next)
		cursor = next
	}
	return dates
}

// OccurrencesPerYear is how many times a payment of frequency f falls due in a year.
func OccurrencesPerYear(f payment.Frequency) int {
	switch f {
	case payment.FrequencyWeekly:
		return 52
	case payment.FrequencyBiweekly:
		return 26
	case payment.FrequencyMonthly:
		return 12
	case payment.FrequencyQuarterly:
		return 4
	case payment.FrequencyAnnually:
		return 1
	default:
		return 0
	}
}

// MonthlyFactor is the average number of occurrences per month of a frequency.
func MonthlyFactor(f payment.Frequency) float64 {
	return float64(OccurrencesPerYear(f)) / 12
}

func nextWeekday(after time.Time, weekday time.Weekday) time.Time {
	ahead := (int(weekday) - int(after.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return after.AddDate(0, 0, ahead)
}

// nextInMonthStep finds the first clamped day-of-month strictly after 'after'
// in a month whose distance from the start month is a multiple of step.
func nextInMonthStep(after time.Time, day int, start time.Time, step int) time.Time {
	idx := monthIndex(after)
	if offset := mod(idx-monthIndex(start), step); offset != 0 {
		idx += step - offset
	}
	next := clampedDate(idx/12, time.Month(idx%12+1), day)
	if !next.After(after) {
		idx += step
		next = clampedDate(idx/12, time.Month(idx%12+1), day)
	}
	return next
}

// clampedDate builds the date, pulling an out-of-range day back to the last
// day of that month (31 April becomes 30 April).
func clampedDate(year int, month time.Month, day int) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
