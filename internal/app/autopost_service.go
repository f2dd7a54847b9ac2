package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/recurrence"
)


// AutoPostService creates an expense entry for every auto-post payment due
// on the given day. Re-running it for the same day posts nothing new.
type AutoPostService interface {
	Run(ctx context.Context, today time.Time) (BatchResult, error)
}

type AutoPostServiceImpl struct {
	payments payment.Repository
	entries  expense.EntryRepository
	ledger   LedgerService
	notifier NotificationQueue
	logger   *logrus.Entry
}

func NewAutoPostServiceImpl(
	payments payment.Repository,
	entries expense.EntryRepository,
	ledger LedgerService,
	notifier NotificationQueue,
	logger *logrus.Entry,
) *AutoPostServiceImpl {
	if notifier == nil {
		notifier = discardQueue{}
	}
	return &AutoPostServiceImpl{
		payments: payments,
		entries:  entries,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger.WithField("component", "auto_post"),
	}
}

func (s *AutoPostServiceImpl) Run(ctx context.Context, today time.Time) (BatchResult, error) {
	var res BatchResult
	today = recurrence.Day(today)
	logCtx := s.logger.WithField("today", dateString(today))

	candidates, err := s.payments.ListAutoPost(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list auto-post payments: %w", err)
	}

	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		if !recurrence.IsDueOn(p, today) {
			continue
		}

		item := BatchItem{UserID: p.UserID, PaymentID: p.ID, Date: dateString(today)}
		err := isolate(func() error {
			var err error
			item.Status, item.Detail, err = s.postOne(ctx, p, today)
			return err
		})
		if err != nil {
			logCtx.WithError(err).WithFields(logrus.Fields{"user_id": p.UserID, "payment_id": p.ID}).Error("Auto-post failed")
			item.Status = ItemErrored
			item.Detail = err.Error()
		}
		res.add(item)
	}

	logCtx.WithFields(logrus.Fields{
		"checked": res.Checked,
		"created": res.Created,
		"skipped": res.Skipped,
		"errored": res.Errored,
	}).Info("Auto-post sweep finished")
	return res, nil
}

func (s *AutoPostServiceImpl) postOne(ctx context.Context, p *payment.RecurringPayment, today time.Time) (ItemStatus, string, error) {
	existing, err := s.entries.FindAutoPosted(ctx, p.UserID, p.CategoryID, p.Amount, today, p.Name)
	switch {
	case err == nil:
		return ItemSkipped, fmt.Sprintf("entry %d already posted", existing.ID), nil
	case !errors.Is(err, expense.ErrEntryNotFound):
		return "", "", fmt.Errorf("failed to check for posted entry: %w", err)
	}

	entry := &expense.Entry{
		UserID:        p.UserID,
		CategoryID:    p.CategoryID,
		Amount:        p.Amount,
		Date:          today,
		Note:          expense.AutoPostNote(p.Name),
		AutoGenerated: true,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return "", "", fmt.Errorf("failed to create expense entry: %w", err)
	}

	occ, err := s.ledger.RecordPayment(ctx, p.UserID, RecordPaymentInput{
		PaymentID:     p.ID,
		ScheduledDate: today,
		ActualDate:    &today,
		LinkedEntryID: &entry.ID,
		Notes:         "Auto-posted",
	})
	if err != nil {
		// The entry stays; the next run sees it and skips the day.
		return "", "", fmt.Errorf("entry %d created but recording the occurrence failed: %w", entry.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":       p.UserID,
		"payment_id":    p.ID,
		"entry_id":      entry.ID,
		"occurrence_id": occ.ID,
	}).Info("Payment auto-posted")
	s.notifier.Enqueue(p.UserID, fmt.Sprintf("%s (%s %s) was added to your expenses.",
		p.Name, p.Amount.StringFixed(2), p.Currency))

	return ItemCreated, fmt.Sprintf("entry %d", entry.ID), nil
}
