package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"recurring_payments/internal/domain/payment"
)

type PostgresOccurrenceRepository struct {
	db *sql.DB
}

var _ payment.OccurrenceRepository = (*PostgresOccurrenceRepository)(nil)

func NewPostgresOccurrenceRepository(db *sql.DB) *PostgresOccurrenceRepository {
	return &PostgresOccurrenceRepository{db: db}
}

const occurrenceColumns = `id, payment_id, user_id, scheduled_date, actual_date, amount, is_paid, is_skipped,
       is_late, linked_entry_id, notes, confirmation_code, created_at, paid_at`

func scanOccurrence(row rowScanner) (*payment.Occurrence, error) {
	var (
		o          payment.Occurrence
		actualDate sql.NullTime
		linked     sql.NullInt64
		paidAt     sql.NullTime
	)
	err := row.Scan(&o.ID, &o.PaymentID, &o.UserID, &o.ScheduledDate, &actualDate, &o.Amount, &o.IsPaid, &o.IsSkipped,
		&o.IsLate, &linked, &o.Notes, &o.ConfirmationCode, &o.CreatedAt, &paidAt)
	if err != nil {
		return nil, err
	}
	o.ScheduledDate = asDay(o.ScheduledDate)
	o.ActualDate = nullDay(actualDate)
	o.LinkedEntryID = nullID(linked)
	o.PaidAt = nullTime(paidAt)
	return &o, nil
}

// Create inserts only when the payment belongs to the occurrence's user.
func (r *PostgresOccurrenceRepository) Create(ctx context.Context, o *payment.Occurrence) error {
	query := `INSERT INTO payment_occurrences (payment_id, user_id, scheduled_date, actual_date, amount, is_paid,
                  is_skipped, is_late, linked_entry_id, notes, confirmation_code, paid_at)
              SELECT p.id, p.user_id, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
              FROM recurring_payments p WHERE p.id = $1 AND p.user_id = $2
              RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		o.PaymentID, o.UserID, dateArg(o.ScheduledDate), ptrDate(o.ActualDate), o.Amount, o.IsPaid,
		o.IsSkipped, o.IsLate, ptrID(o.LinkedEntryID), o.Notes, o.ConfirmationCode, ptrTime(o.PaidAt),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return payment.ErrPaymentNotFound
		}
		return fmt.Errorf("error creating payment occurrence: %w", err)
	}
	return nil
}

func (r *PostgresOccurrenceRepository) GetByID(ctx context.Context, userID, id int64) (*payment.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM payment_occurrences WHERE id = $1 AND user_id = $2`
	o, err := scanOccurrence(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payment.ErrOccurrenceNotFound
		}
		return nil, fmt.Errorf("error getting payment occurrence by ID: %w", err)
	}
	return o, nil
}

func (r *PostgresOccurrenceRepository) UpdateLinkedEntry(ctx context.Context, userID, id, entryID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_occurrences SET linked_entry_id = $1 WHERE id = $2 AND user_id = $3`, entryID, id, userID)
	if err != nil {
		return fmt.Errorf("error linking payment occurrence: %w", err)
	}
	return expectOneRow(res, payment.ErrOccurrenceNotFound)
}

// List builds the WHERE clause from the filter; scheduled date descending.
func (r *PostgresOccurrenceRepository) List(ctx context.Context, userID int64, f payment.HistoryFilter) ([]*payment.Occurrence, error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.PaymentID != nil {
		add("payment_id = $%d", *f.PaymentID)
	}
	if f.From != nil {
		add("scheduled_date >= $%d", dateArg(*f.From))
	}
	if f.To != nil {
		add("scheduled_date <= $%d", dateArg(*f.To))
	}
	if !f.IncludeSkipped {
		conds = append(conds, "NOT is_skipped")
	}

	query := `SELECT ` + occurrenceColumns + ` FROM payment_occurrences
              WHERE ` + strings.Join(conds, " AND ") + `
              ORDER BY scheduled_date DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing payment occurrences: %w", err)
	}
	defer rows.Close()

	var out []*payment.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment occurrence: %w", err)
		}
		out = append(out, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment occurrence rows: %w", err)
	}
	return out, nil
}

func (r *PostgresOccurrenceRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payment_occurrences WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting payment occurrence: %w", err)
	}
	return expectOneRow(res, payment.ErrOccurrenceNotFound)
}

type PostgresReminderRepository struct {
	db *sql.DB
}

var _ payment.ReminderRepository = (*PostgresReminderRepository)(nil)

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

const reminderColumns = `id, payment_id, user_id, reminder_date, due_date, amount, is_dismissed, is_paid,
       linked_entry_id, created_at`

// openReminderIndex enforces one undismissed reminder per payment and due date.
const openReminderIndex = "uq_payment_reminders_open"

func scanReminder(row rowScanner) (*payment.Reminder, error) {
	var (
		rem    payment.Reminder
		linked sql.NullInt64
	)
	err := row.Scan(&rem.ID, &rem.PaymentID, &rem.UserID, &rem.ReminderDate, &rem.DueDate, &rem.Amount,
		&rem.IsDismissed, &rem.IsPaid, &linked, &rem.CreatedAt)
	if err != nil {
		return nil, err
	}
	rem.ReminderDate = asDay(rem.ReminderDate)
	rem.DueDate = asDay(rem.DueDate)
	rem.LinkedEntryID = nullID(linked)
	return &rem, nil
}

func (r *PostgresReminderRepository) Create(ctx context.Context, rem *payment.Reminder) error {
	query := `INSERT INTO payment_reminders (payment_id, user_id, reminder_date, due_date, amount, is_dismissed,
                  is_paid, linked_entry_id)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		rem.PaymentID, rem.UserID, dateArg(rem.ReminderDate), dateArg(rem.DueDate), rem.Amount, rem.IsDismissed,
		rem.IsPaid, ptrID(rem.LinkedEntryID),
	).Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, openReminderIndex) {
			return payment.ErrDuplicateReminder
		}
		return fmt.Errorf("error creating payment reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) GetUndismissed(ctx context.Context, paymentID int64, dueDate time.Time) (*payment.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM payment_reminders
              WHERE payment_id = $1 AND due_date = $2 AND NOT is_dismissed`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, paymentID, dateArg(dueDate)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payment.ErrReminderNotFound
		}
		return nil, fmt.Errorf("error getting undismissed reminder: %w", err)
	}
	return rem, nil
}

func (r *PostgresReminderRepository) GetByID(ctx context.Context, userID, id int64) (*payment.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM payment_reminders WHERE id = $1 AND user_id = $2`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payment.ErrReminderNotFound
		}
		return nil, fmt.Errorf("error getting payment reminder by ID: %w", err)
	}
	return rem, nil
}

func (r *PostgresReminderRepository) ListByUser(ctx context.Context, userID int64, includeDismissed bool) ([]*payment.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM payment_reminders
              WHERE user_id = $1 AND (NOT is_dismissed OR $2)
              ORDER BY due_date, id`
	rows, err := r.db.QueryContext(ctx, query, userID, includeDismissed)
	if err != nil {
		return nil, fmt.Errorf("error listing payment reminders: %w", err)
	}
	defer rows.Close()

	var out []*payment.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment reminder: %w", err)
		}
		out = append(out, rem)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment reminder rows: %w", err)
	}
	return out, nil
}

func (r *PostgresReminderRepository) Update(ctx context.Context, rem *payment.Reminder) error {
	query := `UPDATE payment_reminders
              SET reminder_date = $1, due_date = $2, amount = $3, is_dismissed = $4, is_paid = $5, linked_entry_id = $6
              WHERE id = $7 AND user_id = $8`

	res, err := r.db.ExecContext(ctx, query,
		dateArg(rem.ReminderDate), dateArg(rem.DueDate), rem.Amount, rem.IsDismissed, rem.IsPaid,
		ptrID(rem.LinkedEntryID), rem.ID, rem.UserID)
	if err != nil {
		if isUniqueViolation(err, openReminderIndex) {
			return payment.ErrDuplicateReminder
		}
		return fmt.Errorf("error updating payment reminder: %w", err)
	}
	return expectOneRow(res, payment.ErrReminderNotFound)
}
