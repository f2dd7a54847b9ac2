package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/notification"
)

type PostgresEntryRepository struct {
	db *sql.DB
}

var _ expense.EntryRepository = (*PostgresEntryRepository)(nil)

func NewPostgresEntryRepository(db *sql.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{db: db}
}

const entryColumns = `id, user_id, category_id, amount, entry_date, note, auto_generated, created_at`

func scanEntry(row rowScanner) (*expense.Entry, error) {
	var (
		e          expense.Entry
		categoryID sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.UserID, &categoryID, &e.Amount, &e.Date, &e.Note, &e.AutoGenerated, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.CategoryID = categoryID.Int64
	e.Date = asDay(e.Date)
	return &e, nil
}

func (r *PostgresEntryRepository) Create(ctx context.Context, e *expense.Entry) error {
	query := `INSERT INTO expense_entries (user_id, category_id, amount, entry_date, note, auto_generated)
              VALUES ($1, $2, $3, $4, $5, $6)
              RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		e.UserID, optionalID(e.CategoryID), e.Amount, dateArg(e.Date), e.Note, e.AutoGenerated,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating expense entry: %w", err)
	}
	return nil
}

func (r *PostgresEntryRepository) GetByID(ctx context.Context, userID, id int64) (*expense.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM expense_entries WHERE id = $1 AND user_id = $2`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, expense.ErrEntryNotFound
		}
		return nil, fmt.Errorf("error getting expense entry by ID: %w", err)
	}
	return e, nil
}

func (r *PostgresEntryRepository) ListUnlinked(ctx context.Context, userID int64, since, until time.Time) ([]*expense.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM expense_entries e
              WHERE e.user_id = $1 AND e.entry_date BETWEEN $2 AND $3
                AND NOT EXISTS (SELECT 1 FROM payment_occurrences o WHERE o.linked_entry_id = e.id)
              ORDER BY e.entry_date DESC, e.id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, dateArg(since), dateArg(until))
	if err != nil {
		return nil, fmt.Errorf("error listing unlinked expense entries: %w", err)
	}
	defer rows.Close()

	var out []*expense.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning expense entry: %w", err)
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense entry rows: %w", err)
	}
	return out, nil
}

func (r *PostgresEntryRepository) FindAutoPosted(ctx context.Context, userID, categoryID int64, amount decimal.Decimal, date time.Time, paymentName string) (*expense.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM expense_entries
              WHERE user_id = $1 AND category_id IS NOT DISTINCT FROM $2 AND amount = $3 AND entry_date = $4
                AND (lower(note) = lower($6) OR (NOT auto_generated AND strpos(lower(note), lower($5)) > 0))
              ORDER BY (lower(note) = lower($6)) DESC, id
              LIMIT 1`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query,
		userID, optionalID(categoryID), amount, dateArg(date), paymentName, expense.AutoPostNote(paymentName)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, expense.ErrEntryNotFound
		}
		return nil, fmt.Errorf("error looking up auto-posted entry: %w", err)
	}
	return e, nil
}

type PostgresCategoryRepository struct {
	db *sql.DB
}

var _ expense.CategoryRepository = (*PostgresCategoryRepository)(nil)

func NewPostgresCategoryRepository(db *sql.DB) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{db: db}
}

func (r *PostgresCategoryRepository) GetByID(ctx context.Context, userID, id int64) (*expense.Category, error) {
	c := &expense.Category{}
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, name, icon FROM categories WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Icon)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, expense.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("error getting category by ID: %w", err)
	}
	return c, nil
}

type PostgresRecipientRepository struct {
	db *sql.DB
}

var _ notification.RecipientRepository = (*PostgresRecipientRepository)(nil)

func NewPostgresRecipientRepository(db *sql.DB) *PostgresRecipientRepository {
	return &PostgresRecipientRepository{db: db}
}

func (r *PostgresRecipientRepository) GetByUserID(ctx context.Context, userID int64) (*notification.Recipient, error) {
	return r.get(ctx, `SELECT user_id, telegram_chat_id, enabled, updated_at FROM notification_recipients WHERE user_id = $1`, userID)
}

func (r *PostgresRecipientRepository) GetByChatID(ctx context.Context, chatID int64) (*notification.Recipient, error) {
	return r.get(ctx, `SELECT user_id, telegram_chat_id, enabled, updated_at FROM notification_recipients WHERE telegram_chat_id = $1`, chatID)
}

func (r *PostgresRecipientRepository) get(ctx context.Context, query string, arg int64) (*notification.Recipient, error) {
	rec := &notification.Recipient{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&rec.UserID, &rec.TelegramChatID, &rec.Enabled, &rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notification.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("error getting notification recipient: %w", err)
	}
	return rec, nil
}

func (r *PostgresRecipientRepository) Upsert(ctx context.Context, rec *notification.Recipient) error {
	query := `INSERT INTO notification_recipients (user_id, telegram_chat_id, enabled)
              VALUES ($1, $2, $3)
              ON CONFLICT (user_id) DO UPDATE
              SET telegram_chat_id = EXCLUDED.telegram_chat_id, enabled = EXCLUDED.enabled, updated_at = NOW()
              RETURNING updated_at`
	if err := r.db.QueryRowContext(ctx, query, rec.UserID, rec.TelegramChatID, rec.Enabled).Scan(&rec.UpdatedAt); err != nil {
		return fmt.Errorf("error upserting notification recipient: %w", err)
	}
	return nil
}
