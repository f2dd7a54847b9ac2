package database

import (
	"context"
	"database/sql"
	"fmt"

	"recurring_payments/internal/domain/payment"
)

type PostgresPaymentRepository struct {
	db *sql.DB
}

var _ payment.Repository = (*PostgresPaymentRepository)(nil)

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

const paymentColumns = `id, user_id, category_id, name, amount, currency, frequency, due_day,
       start_date, end_date, is_active, auto_post, remind_days_before, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*payment.RecurringPayment, error) {
	var (
		p          payment.RecurringPayment
		categoryID sql.NullInt64
		frequency  string
		dueDay     int
		endDate    sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &categoryID, &p.Name, &p.Amount, &p.Currency, &frequency, &dueDay,
		&p.StartDate, &endDate, &p.IsActive, &p.AutoPost, &p.RemindDaysBefore, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rule, err := payment.NewDueRule(payment.Frequency(frequency), dueDay)
	if err != nil {
		return nil, fmt.Errorf("payment %d has an invalid stored rule: %w", p.ID, err)
	}
	p.Rule = rule
	p.CategoryID = categoryID.Int64
	p.StartDate = asDay(p.StartDate)
	p.EndDate = nullDay(endDate)
	return &p, nil
}

func (r *PostgresPaymentRepository) Create(ctx context.Context, p *payment.RecurringPayment) error {
	query := `INSERT INTO recurring_payments (user_id, category_id, name, amount, currency, frequency, due_day,
                  start_date, end_date, is_active, auto_post, remind_days_before, notes)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
              RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, optionalID(p.CategoryID), p.Name, p.Amount, p.Currency, string(p.Frequency()), p.Rule.DueDay(),
		dateArg(p.StartDate), ptrDate(p.EndDate), p.IsActive, p.AutoPost, p.RemindDaysBefore, p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating recurring payment: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepository) GetByID(ctx context.Context, userID, id int64) (*payment.RecurringPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM recurring_payments WHERE id = $1 AND user_id = $2`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error getting recurring payment by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPaymentRepository) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]*payment.RecurringPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM recurring_payments
              WHERE user_id = $1 AND (is_active OR NOT $2)
              ORDER BY id`
	return r.list(ctx, query, userID, activeOnly)
}

func (r *PostgresPaymentRepository) ListAutoPost(ctx context.Context) ([]*payment.RecurringPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM recurring_payments
              WHERE is_active AND auto_post
              ORDER BY id`
	return r.list(ctx, query)
}

func (r *PostgresPaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*payment.RecurringPayment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing recurring payments: %w", err)
	}
	defer rows.Close()

	var payments []*payment.RecurringPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning recurring payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring payment rows: %w", err)
	}
	return payments, nil
}

func (r *PostgresPaymentRepository) ListUserIDsWithActive(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM recurring_payments WHERE is_active ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing users with active payments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user id rows: %w", err)
	}
	return ids, nil
}

func (r *PostgresPaymentRepository) Update(ctx context.Context, p *payment.RecurringPayment) error {
	query := `UPDATE recurring_payments
              SET category_id = $1, name = $2, amount = $3, currency = $4, frequency = $5, due_day = $6,
                  start_date = $7, end_date = $8, is_active = $9, auto_post = $10, remind_days_before = $11,
                  notes = $12, updated_at = NOW()
              WHERE id = $13 AND user_id = $14
              RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		optionalID(p.CategoryID), p.Name, p.Amount, p.Currency, string(p.Frequency()), p.Rule.DueDay(),
		dateArg(p.StartDate), ptrDate(p.EndDate), p.IsActive, p.AutoPost, p.RemindDaysBefore, p.Notes,
		p.ID, p.UserID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return payment.ErrPaymentNotFound
		}
		return fmt.Errorf("error updating recurring payment: %w", err)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for occurrences, reminders and suggestions.
func (r *PostgresPaymentRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_payments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting recurring payment: %w", err)
	}
	return expectOneRow(res, payment.ErrPaymentNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
