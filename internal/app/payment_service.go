package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/recurrence"
)

const (
	DefaultRemindDaysBefore = 3
	DefaultUpcomingDays     = 30
	MaxUpcomingDays         = 366
	summaryNextDueLimit     = 5
)

// PaymentService is the CRUD surface for recurring payments.
type PaymentService interface {
	Create(ctx context.Context, userID int64, in CreatePaymentInput) (*payment.RecurringPayment, error)
	Get(ctx context.Context, userID, id int64) (*payment.RecurringPayment, error)
	List(ctx context.Context, userID int64, activeOnly bool) ([]*payment.RecurringPayment, error)
	Update(ctx context.Context, userID, id int64, in UpdatePaymentInput) (*payment.RecurringPayment, error)
	Delete(ctx context.Context, userID, id int64) error
	Summary(ctx context.Context, userID int64, today time.Time) (*Summary, error)
	Upcoming(ctx context.Context, userID int64, today time.Time, days int) ([]DuePayment, error)
}

type CreatePaymentInput struct {
	Name             string
	Amount           decimal.Decimal
	Currency         string
	Frequency        payment.Frequency
	DueDay           int
	CategoryID       int64
	StartDate        time.Time
	EndDate          *time.Time
	IsActive         *bool // defaults to true
	AutoPost         bool
	RemindDaysBefore *int // defaults to DefaultRemindDaysBefore
	Notes            string
}

// UpdatePaymentInput carries a partial update; nil fields are left unchanged.
type UpdatePaymentInput struct {
	Name             *string
	Amount           *decimal.Decimal
	Currency         *string
	Frequency        *payment.Frequency
	DueDay           *int
	CategoryID       *int64
	StartDate        *time.Time
	EndDate          *time.Time
	ClearEndDate     bool
	IsActive         *bool
	AutoPost         *bool
	RemindDaysBefore *int
	Notes            *string
}

type PaymentServiceImpl struct {
	payments   payment.Repository
	categories expense.CategoryRepository
	logger     *logrus.Entry
}

func NewPaymentServiceImpl(payments payment.Repository, categories expense.CategoryRepository, logger *logrus.Entry) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		payments:   payments,
		categories: categories,
		logger:     logger.WithField("component", "payments"),
	}
}

func (s *PaymentServiceImpl) Create(ctx context.Context, userID int64, in CreatePaymentInput) (*payment.RecurringPayment, error) {
	rule, err := payment.NewDueRule(in.Frequency, in.DueDay)
	if err != nil {
		return nil, err
	}
	p := &payment.RecurringPayment{
		UserID:           userID,
		CategoryID:       in.CategoryID,
		Name:             strings.TrimSpace(in.Name),
		Amount:           in.Amount,
		Currency:         strings.ToUpper(strings.TrimSpace(in.Currency)),
		Rule:             rule,
		StartDate:        recurrence.Day(in.StartDate),
		EndDate:          dayPtr(in.EndDate),
		IsActive:         true,
		AutoPost:         in.AutoPost,
		RemindDaysBefore: DefaultRemindDaysBefore,
		Notes:            in.Notes,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.RemindDaysBefore != nil {
		p.RemindDaysBefore = *in.RemindDaysBefore
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, userID, p.CategoryID); err != nil {
		return nil, err
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"payment_id": p.ID,
		"frequency":  p.Frequency(),
	}).Info("Recurring payment created")
	return p, nil
}

func (s *PaymentServiceImpl) Get(ctx context.Context, userID, id int64) (*payment.RecurringPayment, error) {
	return s.payments.GetByID(ctx, userID, id)
}

func (s *PaymentServiceImpl) List(ctx context.Context, userID int64, activeOnly bool) ([]*payment.RecurringPayment, error) {
	return s.payments.ListByUser(ctx, userID, activeOnly)
}

// Update applies in to a copy of the stored payment and saves it only when
// the result validates as a whole.
func (s *PaymentServiceImpl) Update(ctx context.Context, userID, id int64, in UpdatePaymentInput) (*payment.RecurringPayment, error) {
	p, err := s.payments.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Amount != nil {
		p.Amount = *in.Amount
	}
	if in.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Frequency != nil || in.DueDay != nil {
		freq, dueDay := p.Frequency(), p.Rule.DueDay()
		if in.Frequency != nil {
			freq = *in.Frequency
		}
		if in.DueDay != nil {
			dueDay = *in.DueDay
		}
		rule, err := payment.NewDueRule(freq, dueDay)
		if err != nil {
			return nil, err
		}
		p.Rule = rule
	}
	categoryChanged := in.CategoryID != nil && *in.CategoryID != p.CategoryID
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.StartDate != nil {
		p.StartDate = recurrence.Day(*in.StartDate)
	}
	if in.ClearEndDate {
		p.EndDate = nil
	} else if in.EndDate != nil {
		p.EndDate = dayPtr(in.EndDate)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.AutoPost != nil {
		p.AutoPost = *in.AutoPost
	}
	if in.RemindDaysBefore != nil {
		p.RemindDaysBefore = *in.RemindDaysBefore
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if categoryChanged {
		if err := s.checkCategory(ctx, userID, p.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "payment_id": id}).Info("Recurring payment updated")
	return p, nil
}

// Delete removes the payment and, through the store, its occurrences,
// reminders and suggestions.
func (s *PaymentServiceImpl) Delete(ctx context.Context, userID, id int64) error {
	if err := s.payments.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "payment_id": id}).Info("Recurring payment deleted")
	return nil
}

func (s *PaymentServiceImpl) checkCategory(ctx context.Context, userID, categoryID int64) error {
	if categoryID == 0 {
		return nil
	}
	if _, err := s.categories.GetByID(ctx, userID, categoryID); err != nil {
		return err
	}
	return nil
}

// CostProjection is the projected spend of active payments in one currency.
type CostProjection struct {
	Currency string          `json:"currency"`
	Monthly  decimal.Decimal `json:"monthly"`
	Annual   decimal.Decimal `json:"annual"`
}

// DuePayment is one upcoming due date of a payment.
type DuePayment struct {
	PaymentID int64           `json:"payment_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	DueDate   string          `json:"due_date"`
	DaysUntil int             `json:"days_until"`
	AutoPost  bool            `json:"auto_post"`
}

type Summary struct {
	Total    int              `json:"total"`
	Active   int              `json:"active"`
	Paused   int              `json:"paused"`
	AutoPost int              `json:"auto_post"`
	Costs    []CostProjection `json:"costs"`
	NextDue  []DuePayment     `json:"next_due"`
}

// Summary counts the user's payments and projects the monthly and annual
// cost of the active ones that still have occurrences ahead.
func (s *PaymentServiceImpl) Summary(ctx context.Context, userID int64, today time.Time) (*Summary, error) {
	today = recurrence.Day(today)
	all, err := s.payments.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Total: len(all), Costs: []CostProjection{}, NextDue: []DuePayment{}}
	annual := make(map[string]decimal.Decimal)
	for _, p := range all {
		if !p.IsActive {
			sum.Paused++
			continue
		}
		sum.Active++
		if p.AutoPost {
			sum.AutoPost++
		}

		next, ok := recurrence.NextDueDate(p, today.AddDate(0, 0, -1))
		if !ok {
			continue
		}
		perYear := decimal.NewFromInt(int64(recurrence.OccurrencesPerYear(p.Frequency())))
		annual[p.Currency] = annual[p.Currency].Add(p.Amount.Mul(perYear))
		sum.NextDue = append(sum.NextDue, duePayment(p, next, today))
	}

	for currency, total := range annual {
		sum.Costs = append(sum.Costs, CostProjection{
			Currency: currency,
			Monthly:  total.Div(decimal.NewFromInt(12)).Round(2),
			Annual:   total.Round(2),
		})
	}
	sort.Slice(sum.Costs, func(i, j int) bool { return sum.Costs[i].Currency < sum.Costs[j].Currency })

	sortDue(sum.NextDue)
	if len(sum.NextDue) > summaryNextDueLimit {
		sum.NextDue = sum.NextDue[:summaryNextDueLimit]
	}
	return sum, nil
}

// Upcoming lists every due date of the user's active payments from today
// through today+days.
func (s *PaymentServiceImpl) Upcoming(ctx context.Context, userID int64, today time.Time, days int) ([]DuePayment, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	if days > MaxUpcomingDays {
		days = MaxUpcomingDays
	}
	today = recurrence.Day(today)
	until := today.AddDate(0, 0, days)

	active, err := s.payments.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	due := []DuePayment{}
	for _, p := range active {
		for _, d := range recurrence.Upcoming(p, today.AddDate(0, 0, -1), until, 0) {
			due = append(due, duePayment(p, d, today))
		}
	}
	sortDue(due)
	return due, nil
}

func duePayment(p *payment.RecurringPayment, due, today time.Time) DuePayment {
	return DuePayment{
		PaymentID: p.ID,
		Name:      p.Name,
		Amount:    p.Amount,
		Currency:  p.Currency,
		DueDate:   dateString(due),
		DaysUntil: recurrence.DaysBetween(today, due),
		AutoPost:  p.AutoPost,
	}
}

func sortDue(due []DuePayment) {
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].DaysUntil != due[j].DaysUntil {
			return due[i].DaysUntil < due[j].DaysUntil
		}
		return due[i].Name < due[j].Name
	})
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := recurrence.Day(*t)
	return &d
}
