package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/recurrence"
)

// LedgerService is the only writer of payment occurrences.
type LedgerService interface {
	RecordPayment(ctx context.Context, userID int64, in RecordPaymentInput) (*payment.Occurrence, error)
	SkipPayment(ctx context.Context, userID, paymentID int64, scheduledDate time.Time, note string) (*payment.Occurrence, error)
	LinkToEntry(ctx context.Context, userID, occurrenceID, entryID int64) (*payment.Occurrence, error)
	History(ctx context.Context, userID int64, filter payment.HistoryFilter) ([]*payment.Occurrence, error)
	DeleteOccurrence(ctx context.Context, userID, occurrenceID int64) error
	Stats(ctx context.Context, userID int64, paymentID *int64) (Stats, error)
}

// RecordPaymentInput describes a payment that was made. Nil fields default
// to the payment's amount and today's date.
type RecordPaymentInput struct {
	PaymentID        int64
	ScheduledDate    time.Time
	ActualDate       *time.Time
	Amount           *decimal.Decimal
	LinkedEntryID    *int64
	Notes            string
	ConfirmationCode string
}

type LedgerServiceImpl struct {
	payments    payment.Repository
	occurrences payment.OccurrenceRepository
	entries     expense.EntryRepository
	clock       Clock
	logger      *logrus.Entry
}

func NewLedgerServiceImpl(
	payments payment.Repository,
	occurrences payment.OccurrenceRepository,
	entries expense.EntryRepository,
	clock Clock,
	logger *logrus.Entry,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		payments:    payments,
		occurrences: occurrences,
		entries:     entries,
		clock:       clock,
		logger:      logger.WithField("component", "ledger"),
	}
}

func (s *LedgerServiceImpl) RecordPayment(ctx context.Context, userID int64, in RecordPaymentInput) (*payment.Occurrence, error) {
	if in.ScheduledDate.IsZero() {
		return nil, &payment.ValidationError{Field: "scheduled_date", Reason: "is required"}
	}
	p, err := s.payments.GetByID(ctx, userID, in.PaymentID)
	if err != nil {
		return nil, err
	}

	amount := p.Amount
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, &payment.ValidationError{Field: "amount", Reason: "must be greater than zero"}
		}
		amount = *in.Amount
	}

	scheduled := recurrence.Day(in.ScheduledDate)
	actual := s.clock.today()
	if in.ActualDate != nil {
		actual = recurrence.Day(*in.ActualDate)
	}

	if in.LinkedEntryID != nil {
		if _, err := s.entries.GetByID(ctx, userID, *in.LinkedEntryID); err != nil {
			return nil, err
		}
	}

	paidAt := s.clock.now()
	o := &payment.Occurrence{
		PaymentID:        p.ID,
		UserID:           userID,
		ScheduledDate:    scheduled,
		ActualDate:       &actual,
		Amount:           amount,
		IsPaid:           true,
		IsLate:           actual.After(scheduled),
		LinkedEntryID:    in.LinkedEntryID,
		Notes:            in.Notes,
		ConfirmationCode: in.ConfirmationCode,
		PaidAt:           &paidAt,
	}
	if err := s.occurrences.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"payment_id":     p.ID,
		"occurrence_id":  o.ID,
		"scheduled_date": dateString(scheduled),
		"is_late":        o.IsLate,
	}).Info("Payment recorded")
	return o, nil
}

func (s *LedgerServiceImpl) SkipPayment(ctx context.Context, userID, paymentID int64, scheduledDate time.Time, note string) (*payment.Occurrence, error) {
	if scheduledDate.IsZero() {
		return nil, &payment.ValidationError{Field: "scheduled_date", Reason: "is required"}
	}
	p, err := s.payments.GetByID(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}

	o := &payment.Occurrence{
		PaymentID:     p.ID,
		UserID:        userID,
		ScheduledDate: recurrence.Day(scheduledDate),
		Amount:        decimal.Zero,
		IsSkipped:     true,
		Notes:         note,
	}
	if err := s.occurrences.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to record skipped payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"payment_id":     p.ID,
		"occurrence_id":  o.ID,
		"scheduled_date": dateString(o.ScheduledDate),
	}).Info("Payment skipped")
	return o, nil
}

func (s *LedgerServiceImpl) LinkToEntry(ctx context.Context, userID, occurrenceID, entryID int64) (*payment.Occurrence, error) {
	o, err := s.occurrences.GetByID(ctx, userID, occurrenceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.entries.GetByID(ctx, userID, entryID); err != nil {
		return nil, err
	}
	if err := s.occurrences.UpdateLinkedEntry(ctx, userID, occurrenceID, entryID); err != nil {
		return nil, fmt.Errorf("failed to link occurrence %d: %w", occurrenceID, err)
	}
	o.LinkedEntryID = &entryID

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"occurrence_id": occurrenceID,
		"entry_id":      entryID,
	}).Info("Occurrence linked to entry")
	return o, nil
}

func (s *LedgerServiceImpl) History(ctx context.Context, userID int64, filter payment.HistoryFilter) ([]*payment.Occurrence, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, &payment.ValidationError{Field: "to", Reason: "must not be before from"}
	}
	if filter.Limit < 0 {
		return nil, &payment.ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	if filter.PaymentID != nil {
		if _, err := s.payments.GetByID(ctx, userID, *filter.PaymentID); err != nil {
			return nil, err
		}
	}
	return s.occurrences.List(ctx, userID, filter)
}

func (s *LedgerServiceImpl) DeleteOccurrence(ctx context.Context, userID, occurrenceID int64) error {
	if err := s.occurrences.Delete(ctx, userID, occurrenceID); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "occurrence_id": occurrenceID}).Info("Occurrence deleted")
	return nil
}

// Stats aggregates the ledger of one payment, or of every payment when
// paymentID is nil.
func (s *LedgerServiceImpl) Stats(ctx context.Context, userID int64, paymentID *int64) (Stats, error) {
	occ, err := s.History(ctx, userID, payment.HistoryFilter{PaymentID: paymentID, IncludeSkipped: true})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(occ), nil
}

// Stats are derived figures over a set of occurrences.
type Stats struct {
	Total       int             `json:"total"`
	Paid        int             `json:"paid"`
	Skipped     int             `json:"skipped"`
	Late        int             `json:"late"`
	OnTime      int             `json:"on_time"`
	OnTimeRate  float64         `json:"on_time_rate"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	AveragePaid decimal.Decimal `json:"average_paid"`
}

// ComputeStats counts a paid occurrence as on time when it is not late.
func ComputeStats(occ []*payment.Occurrence) Stats {
	st := Stats{Total: len(occ), TotalPaid: decimal.Zero, AveragePaid: decimal.Zero}
	for _, o := range occ {
		switch {
		case o.IsPaid:
			st.Paid++
			st.TotalPaid = st.TotalPaid.Add(o.Amount)
			if o.OnTime() {
				st.OnTime++
			} else {
				st.Late++
			}
		case o.IsSkipped:
			st.Skipped++
		}
	}
	if st.Paid > 0 {
		st.OnTimeRate = float64(st.OnTime) / float64(st.Paid)
		st.AveragePaid = st.TotalPaid.Div(decimal.NewFromInt(int64(st.Paid))).Round(2)
	}
	return st
}
