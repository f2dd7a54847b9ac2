package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/matching"
	"recurring_payments/internal/recurrence"
)

// Lookback bounds for suggestion generation.
const (
	DefaultSuggestionDaysBack = 30
	MinSuggestionDaysBack     = 1
	MaxSuggestionDaysBack     = 365
)

// SuggestionService proposes links between unlinked expense entries and
// recurring payments and resolves them.
type SuggestionService interface {
	GenerateSuggestions(ctx context.Context, userID int64, daysBack int, today time.Time) (int, error)
	GenerateAll(ctx context.Context, today time.Time, daysBack int) (BatchResult, error)
	List(ctx context.Context, userID int64) ([]*payment.LinkSuggestion, error)
	Accept(ctx context.Context, userID, suggestionID int64) (*payment.Occurrence, error)
	Dismiss(ctx context.Context, userID, suggestionID int64) error
}

type SuggestionServiceImpl struct {
	payments    payment.Repository
	suggestions payment.SuggestionRepository
	entries     expense.EntryRepository
	ledger      LedgerService
	scorer      *matching.Scorer
	clock       Clock
	logger      *logrus.Entry
}

func NewSuggestionServiceImpl(
	payments payment.Repository,
	suggestions payment.SuggestionRepository,
	entries expense.EntryRepository,
	ledger LedgerService,
	clock Clock,
	logger *logrus.Entry,
) *SuggestionServiceImpl {
	return &SuggestionServiceImpl{
		payments:    payments,
		suggestions: suggestions,
		entries:     entries,
		ledger:      ledger,
		scorer:      matching.NewScorer(),
		clock:       clock,
		logger:      logger.WithField("component", "suggestions"),
	}
}

// ClampDaysBack keeps the lookback window within [MinSuggestionDaysBack, MaxSuggestionDaysBack].
func ClampDaysBack(daysBack int) int {
	if daysBack < MinSuggestionDaysBack {
		return MinSuggestionDaysBack
	}
	if daysBack > MaxSuggestionDaysBack {
		return MaxSuggestionDaysBack
	}
	return daysBack
}

// GenerateSuggestions scores every active payment against the user's unlinked
// entries of the last daysBack days and stores the pairs that clear the
// threshold. A pair that already has a suggestion, in any state, is never
// scored again.
func (s *SuggestionServiceImpl) GenerateSuggestions(ctx context.Context, userID int64, daysBack int, today time.Time) (int, error) {
	daysBack = ClampDaysBack(daysBack)
	today = recurrence.Day(today)
	since := today.AddDate(0, 0, -daysBack)
	logCtx := s.logger.WithFields(logrus.Fields{"user_id": userID, "days_back": daysBack})

	active, err := s.payments.ListByUser(ctx, userID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to list active payments: %w", err)
	}
	if len(active) == 0 {
		return 0, nil
	}
	entries, err := s.entries.ListUnlinked(ctx, userID, since, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list unlinked entries: %w", err)
	}
	existing, err := s.suggestions.ExistingPairs(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load existing suggestions: %w", err)
	}

	created := 0
	for _, p := range active {
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			key := payment.PairKey{PaymentID: p.ID, EntryID: e.ID}
			if _, ok := existing[key]; ok {
				continue
			}

			res := s.scorer.Score(p, e)
			if !res.Suggested() {
				continue
			}
			sug := &payment.LinkSuggestion{
				PaymentID:  p.ID,
				EntryID:    e.ID,
				UserID:     userID,
				Confidence: res.Confidence,
				Reasons:    res.Reasons,
			}
			if err := s.suggestions.Create(ctx, sug); err != nil {
				if errors.Is(err, payment.ErrDuplicateSuggestion) {
					continue
				}
				logCtx.WithError(err).WithFields(logrus.Fields{"payment_id": p.ID, "entry_id": e.ID}).Error("Failed to store suggestion")
				continue
			}
			existing[key] = struct{}{}
			created++
		}
	}

	logCtx.WithFields(logrus.Fields{
		"payments": len(active),
		"entries":  len(entries),
		"created":  created,
	}).Info("Suggestion generation finished")
	return created, nil
}

func (s *SuggestionServiceImpl) GenerateAll(ctx context.Context, today time.Time, daysBack int) (BatchResult, error) {
	var res BatchResult

	userIDs, err := s.payments.ListUserIDsWithActive(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list users with active payments: %w", err)
	}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		var n int
		err := isolate(func() error {
			var err error
			n, err = s.GenerateSuggestions(ctx, userID, daysBack, today)
			return err
		})
		switch {
		case err != nil:
			s.logger.WithError(err).WithField("user_id", userID).Error("Suggestion generation failed for user")
			res.add(BatchItem{UserID: userID, Status: ItemErrored, Detail: err.Error()})
		case n > 0:
			// Created counts suggestions, not users.
			res.Created += n
			res.Items = append(res.Items, BatchItem{UserID: userID, Status: ItemCreated, Detail: fmt.Sprintf("%d suggestions", n)})
		default:
			res.add(BatchItem{UserID: userID, Status: ItemSkipped, Detail: "no new suggestions"})
		}
	}
	return res, nil
}

func (s *SuggestionServiceImpl) List(ctx context.Context, userID int64) ([]*payment.LinkSuggestion, error) {
	return s.suggestions.ListPending(ctx, userID)
}

// Accept claims the suggestion and records the entry as a paid occurrence.
// A suggestion can be accepted once; later calls get ErrSuggestionResolved.
func (s *SuggestionServiceImpl) Accept(ctx context.Context, userID, suggestionID int64) (*payment.Occurrence, error) {
	sug, err := s.suggestions.GetByID(ctx, userID, suggestionID)
	if err != nil {
		return nil, err
	}
	if !sug.Pending() {
		return nil, payment.ErrSuggestionResolved
	}
	p, err := s.payments.GetByID(ctx, userID, sug.PaymentID)
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.GetByID(ctx, userID, sug.EntryID)
	if err != nil {
		return nil, err
	}

	if err := s.suggestions.MarkAccepted(ctx, userID, suggestionID, s.clock.now()); err != nil {
		return nil, err
	}

	scheduled := recurrence.Day(entry.Date)
	if due, _, ok := recurrence.DueDateNear(p, entry.Date, matching.DateToleranceDays); ok {
		scheduled = due
	}
	amount := entry.Amount
	occ, err := s.ledger.RecordPayment(ctx, userID, RecordPaymentInput{
		PaymentID:     p.ID,
		ScheduledDate: scheduled,
		ActualDate:    &entry.Date,
		Amount:        &amount,
		LinkedEntryID: &entry.ID,
		Notes:         "Linked from suggestion",
	})
	if err != nil {
		if releaseErr := s.suggestions.ReleaseAcceptance(ctx, userID, suggestionID); releaseErr != nil {
			s.logger.WithError(releaseErr).WithField("suggestion_id", suggestionID).Error("Failed to release suggestion after ledger error")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"suggestion_id": suggestionID,
		"occurrence_id": occ.ID,
	}).Info("Suggestion accepted")
	return occ, nil
}

// Dismiss is idempotent and permanently excludes the pair from generation.
func (s *SuggestionServiceImpl) Dismiss(ctx context.Context, userID, suggestionID int64) error {
	if err := s.suggestions.MarkDismissed(ctx, userID, suggestionID, s.clock.now()); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "suggestion_id": suggestionID}).Info("Suggestion dismissed")
	return nil
}
