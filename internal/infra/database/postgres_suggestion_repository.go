package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"recurring_payments/internal/domain/payment"
)

type PostgresSuggestionRepository struct {
	db *sql.DB
}

var _ payment.SuggestionRepository = (*PostgresSuggestionRepository)(nil)

func NewPostgresSuggestionRepository(db *sql.DB) *PostgresSuggestionRepository {
	return &PostgresSuggestionRepository{db: db}
}

const suggestionColumns = `id, payment_id, entry_id, user_id, confidence, reasons, is_dismissed, is_accepted,
       dismissed_at, accepted_at, created_at`

const suggestionPairConstraint = "uq_payment_link_suggestions_pair"

func scanSuggestion(row rowScanner) (*payment.LinkSuggestion, error) {
	var (
		s           payment.LinkSuggestion
		reasons     pq.StringArray
		dismissedAt sql.NullTime
		acceptedAt  sql.NullTime
	)
	err := row.Scan(&s.ID, &s.PaymentID, &s.EntryID, &s.UserID, &s.Confidence, &reasons, &s.IsDismissed,
		&s.IsAccepted, &dismissedAt, &acceptedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Reasons = []string(reasons)
	s.DismissedAt = nullTime(dismissedAt)
	s.AcceptedAt = nullTime(acceptedAt)
	return &s, nil
}

func (r *PostgresSuggestionRepository) Create(ctx context.Context, s *payment.LinkSuggestion) error {
	query := `INSERT INTO payment_link_suggestions (payment_id, entry_id, user_id, confidence, reasons)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		s.PaymentID, s.EntryID, s.UserID, s.Confidence, pq.StringArray(s.Reasons),
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, suggestionPairConstraint) {
			return payment.ErrDuplicateSuggestion
		}
		return fmt.Errorf("error creating link suggestion: %w", err)
	}
	return nil
}

func (r *PostgresSuggestionRepository) GetByID(ctx context.Context, userID, id int64) (*payment.LinkSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM payment_link_suggestions WHERE id = $1 AND user_id = $2`
	s, err := scanSuggestion(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, payment.ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("error getting link suggestion by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSuggestionRepository) ExistingPairs(ctx context.Context, userID int64) (map[payment.PairKey]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payment_id, entry_id FROM payment_link_suggestions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing suggestion pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(map[payment.PairKey]struct{})
	for rows.Next() {
		var k payment.PairKey
		if err := rows.Scan(&k.PaymentID, &k.EntryID); err != nil {
			return nil, fmt.Errorf("error scanning suggestion pair: %w", err)
		}
		pairs[k] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestion pair rows: %w", err)
	}
	return pairs, nil
}

func (r *PostgresSuggestionRepository) ListPending(ctx context.Context, userID int64) ([]*payment.LinkSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM payment_link_suggestions
              WHERE user_id = $1 AND NOT is_dismissed AND NOT is_accepted
              ORDER BY confidence DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing pending link suggestions: %w", err)
	}
	defer rows.Close()

	var out []*payment.LinkSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning link suggestion: %w", err)
		}
		out = append(out, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link suggestion rows: %w", err)
	}
	return out, nil
}

// MarkAccepted is a conditional update, so two concurrent accepts cannot both win.
func (r *PostgresSuggestionRepository) MarkAccepted(ctx context.Context, userID, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_link_suggestions SET is_accepted = TRUE, accepted_at = $1
         WHERE id = $2 AND user_id = $3 AND NOT is_accepted AND NOT is_dismissed`, at, id, userID)
	if err != nil {
		return fmt.Errorf("error accepting link suggestion: %w", err)
	}
	return r.resolveMiss(ctx, res, userID, id)
}

func (r *PostgresSuggestionRepository) ReleaseAcceptance(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_link_suggestions SET is_accepted = FALSE, accepted_at = NULL WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return fmt.Errorf("error releasing link suggestion: %w", err)
	}
	return expectOneRow(res, payment.ErrSuggestionNotFound)
}

func (r *PostgresSuggestionRepository) MarkDismissed(ctx context.Context, userID, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_link_suggestions SET is_dismissed = TRUE, dismissed_at = COALESCE(dismissed_at, $1)
         WHERE id = $2 AND user_id = $3 AND NOT is_accepted`, at, id, userID)
	if err != nil {
		return fmt.Errorf("error dismissing link suggestion: %w", err)
	}
	return r.resolveMiss(ctx, res, userID, id)
}

// resolveMiss tells a missing row apart from one in the wrong state.
func (r *PostgresSuggestionRepository) resolveMiss(ctx context.Context, res sql.Result, userID, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_link_suggestions WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking link suggestion: %w", err)
	}
	if !exists {
		return payment.ErrSuggestionNotFound
	}
	return payment.ErrSuggestionResolved
}
