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

// ReminderService materialises reminders ahead of due dates. Generation may
// run any number of times a day; it creates at most one undismissed reminder
// per (payment, due date).
type ReminderService interface {
	GenerateReminders(ctx context.Context, userID int64, today time.Time) (BatchResult, error)
	GenerateAll(ctx context.Context, today time.Time) (BatchResult, error)
	List(ctx context.Context, userID int64, includeDismissed bool) ([]*payment.Reminder, error)
	Dismiss(ctx context.Context, userID, reminderID int64) (*payment.Reminder, error)
	MarkPaid(ctx context.Context, userID, reminderID int64, entryID *int64) (*payment.Reminder, error)
}

type ReminderServiceImpl struct {
	payments  payment.Repository
	reminders payment.ReminderRepository
	entries   expense.EntryRepository
	notifier  NotificationQueue
	logger    *logrus.Entry
}

func NewReminderServiceImpl(
	payments payment.Repository,
	reminders payment.ReminderRepository,
	entries expense.EntryRepository,
	notifier NotificationQueue,
	logger *logrus.Entry,
) *ReminderServiceImpl {
	if notifier == nil {
		notifier = discardQueue{}
	}
	return &ReminderServiceImpl{
		payments:  payments,
		reminders: reminders,
		entries:   entries,
		notifier:  notifier,
		logger:    logger.WithField("component", "reminders"),
	}
}

func (s *ReminderServiceImpl) GenerateReminders(ctx context.Context, userID int64, today time.Time) (BatchResult, error) {
	var res BatchResult
	today = recurrence.Day(today)
	logCtx := s.logger.WithFields(logrus.Fields{"user_id": userID, "today": dateString(today)})

	active, err := s.payments.ListByUser(ctx, userID, true)
	if err != nil {
		return res, fmt.Errorf("failed to list active payments for user %d: %w", userID, err)
	}

	for _, p := range active {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		var item *BatchItem
		err := isolate(func() error {
			var err error
			item, err = s.remindOne(ctx, p, today)
			return err
		})
		if err != nil {
			logCtx.WithError(err).WithField("payment_id", p.ID).Error("Failed to generate reminder")
			res.add(BatchItem{UserID: userID, PaymentID: p.ID, Status: ItemErrored, Detail: err.Error()})
			continue
		}
		if item != nil {
			res.add(*item)
		}
	}

	logCtx.WithFields(logrus.Fields{
		"created": res.Created,
		"skipped": res.Skipped,
		"errored": res.Errored,
	}).Info("Reminder generation finished")
	return res, nil
}

// remindOne returns a nil item when the payment has nothing to remind about yet.
func (s *ReminderServiceImpl) remindOne(ctx context.Context, p *payment.RecurringPayment, today time.Time) (*BatchItem, error) {
	// A payment due today still gets its reminder.
	due, ok := recurrence.NextDueDate(p, today.AddDate(0, 0, -1))
	if !ok {
		return nil, nil
	}
	reminderDate := due.AddDate(0, 0, -p.RemindDaysBefore)
	if reminderDate.After(today) {
		return nil, nil
	}

	item := &BatchItem{UserID: p.UserID, PaymentID: p.ID, Date: dateString(due)}

	existing, err := s.reminders.GetUndismissed(ctx, p.ID, due)
	switch {
	case err == nil:
		item.Status = ItemSkipped
		item.Detail = fmt.Sprintf("reminder %d already exists", existing.ID)
		return item, nil
	case !errors.Is(err, payment.ErrReminderNotFound):
		return nil, fmt.Errorf("failed to check existing reminder: %w", err)
	}

	r := &payment.Reminder{
		PaymentID:    p.ID,
		UserID:       p.UserID,
		ReminderDate: reminderDate,
		DueDate:      due,
		Amount:       p.Amount,
	}
	if err := s.reminders.Create(ctx, r); err != nil {
		if errors.Is(err, payment.ErrDuplicateReminder) {
			item.Status = ItemSkipped
			item.Detail = "reminder created concurrently"
			return item, nil
		}
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     p.UserID,
		"payment_id":  p.ID,
		"reminder_id": r.ID,
		"due_date":    dateString(due),
	}).Info("Reminder created")
	s.notifier.Enqueue(p.UserID, reminderMessage(p, due, today))

	item.Status = ItemCreated
	return item, nil
}

func reminderMessage(p *payment.RecurringPayment, due, today time.Time) string {
	amount := p.Amount.StringFixed(2) + " " + p.Currency
	switch days := recurrence.DaysBetween(today, due); {
	case days <= 0:
		return fmt.Sprintf("%s (%s) is due today.", p.Name, amount)
	case days == 1:
		return fmt.Sprintf("%s (%s) is due tomorrow, %s.", p.Name, amount, dateString(due))
	default:
		return fmt.Sprintf("%s (%s) is due in %d days, on %s.", p.Name, amount, days, dateString(due))
	}
}

func (s *ReminderServiceImpl) GenerateAll(ctx context.Context, today time.Time) (BatchResult, error) {
	var total BatchResult

	userIDs, err := s.payments.ListUserIDsWithActive(ctx)
	if err != nil {
		return total, fmt.Errorf("failed to list users with active payments: %w", err)
	}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := s.GenerateReminders(ctx, userID, today)
		total.Merge(res)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Reminder generation failed for user")
			total.add(BatchItem{UserID: userID, Status: ItemErrored, Detail: err.Error()})
		}
	}
	return total, nil
}

func (s *ReminderServiceImpl) List(ctx context.Context, userID int64, includeDismissed bool) ([]*payment.Reminder, error) {
	return s.reminders.ListByUser(ctx, userID, includeDismissed)
}

func (s *ReminderServiceImpl) Dismiss(ctx context.Context, userID, reminderID int64) (*payment.Reminder, error) {
	r, err := s.reminders.GetByID(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}
	if r.IsDismissed {
		return r, nil
	}
	r.IsDismissed = true
	if err := s.reminders.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to dismiss reminder %d: %w", reminderID, err)
	}
	return r, nil
}

func (s *ReminderServiceImpl) MarkPaid(ctx context.Context, userID, reminderID int64, entryID *int64) (*payment.Reminder, error) {
	r, err := s.reminders.GetByID(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}
	if entryID != nil {
		if _, err := s.entries.GetByID(ctx, userID, *entryID); err != nil {
			return nil, err
		}
		r.LinkedEntryID = entryID
	}
	r.IsPaid = true
	if err := s.reminders.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to mark reminder %d paid: %w", reminderID, err)
	}
	return r, nil
}
