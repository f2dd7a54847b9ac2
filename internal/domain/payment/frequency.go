package payment

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is how often a recurring payment falls due.
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiweekly  Frequency = "BIWEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnually  Frequency = "ANNUALLY"
)

// ParseFrequency accepts any casing of the five known frequencies.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return f, nil
	}
	return "", &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s)}
}

// DueRule says on which day a payment falls due. The concrete types below are
// the only implementations; each one can only hold a day valid for its kind.
type DueRule interface {
	Frequency() Frequency
	// DueDay is the persisted integer: weekday 0-6 (Sunday=0) or day of month 1-31.
	DueDay() int
	dueRule()
}

// WeeklyDue falls due every week on Weekday.
type WeeklyDue struct{ Weekday time.Weekday }

// BiweeklyDue falls due every other week on Weekday, counted from the start date.
type BiweeklyDue struct{ Weekday time.Weekday }

// MonthlyDue falls due on Day of every month, clamped to the month's length.
type MonthlyDue struct{ Day int }

// QuarterlyDue falls due on Day every third month, in phase with the start month.
type QuarterlyDue struct{ Day int }

// AnnualDue falls due on Day of the start date's month every year.
type AnnualDue struct{ Day int }

func (WeeklyDue) Frequency() Frequency    { return FrequencyWeekly }
func (BiweeklyDue) Frequency() Frequency  { return FrequencyBiweekly }
func (MonthlyDue) Frequency() Frequency   { return FrequencyMonthly }
func (QuarterlyDue) Frequency() Frequency { return FrequencyQuarterly }
func (AnnualDue) Frequency() Frequency    { return FrequencyAnnually }

func (r WeeklyDue) DueDay() int    { return int(r.Weekday) }
func (r BiweeklyDue) DueDay() int  { return int(r.Weekday) }
func (r MonthlyDue) DueDay() int   { return r.Day }
func (r QuarterlyDue) DueDay() int { return r.Day }
func (r AnnualDue) DueDay() int    { return r.Day }

func (WeeklyDue) dueRule()    {}
func (BiweeklyDue) dueRule()  {}
func (MonthlyDue) dueRule()   {}
func (QuarterlyDue) dueRule() {}
func (AnnualDue) dueRule()    {}

// NewDueRule builds the rule for a frequency from its stored due_day.
func NewDueRule(freq Frequency, dueDay int) (DueRule, error) {
	switch freq {
	case FrequencyWeekly, FrequencyBiweekly:
		if dueDay < 0 || dueDay > 6 {
			return nil, &ValidationError{Field: "due_day", Reason: fmt.Sprintf("weekday must be 0-6 for %s, got %d", freq, dueDay)}
		}
		if freq == FrequencyWeekly {
			return WeeklyDue{Weekday: time.Weekday(dueDay)}, nil
		}
		return BiweeklyDue{Weekday: time.Weekday(dueDay)}, nil
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		if dueDay < 1 || dueDay > 31 {
			return nil, &ValidationError{Field: "due_day", Reason: fmt.Sprintf("day of month must be 1-31 for %s, got %d", freq, dueDay)}
		}
		switch freq {
		case FrequencyMonthly:
			return MonthlyDue{Day: dueDay}, nil
		case FrequencyQuarterly:
			return QuarterlyDue{Day: dueDay}, nil
		default:
			return AnnualDue{Day: dueDay}, nil
		}
	}
	return nil, &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", freq)}
}
