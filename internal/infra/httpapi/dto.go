package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"recurring_payments/internal/app"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/recurrence"
)

type paymentResponse struct {
	ID               int64           `json:"id"`
	CategoryID       *int64          `json:"category_id,omitempty"`
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Frequency        string          `json:"frequency"`
	DueDay           int             `json:"due_day"`
	StartDate        string          `json:"start_date"`
	EndDate          *string         `json:"end_date,omitempty"`
	IsActive         bool            `json:"is_active"`
	AutoPost         bool            `json:"auto_post"`
	RemindDaysBefore int             `json:"remind_days_before"`
	Notes            string          `json:"notes"`
	NextDueDate      *string         `json:"next_due_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// newPaymentResponse includes the next due date on or after today for active payments.
func newPaymentResponse(p *payment.RecurringPayment, today time.Time) paymentResponse {
	resp := paymentResponse{
		ID:               p.ID,
		Name:             p.Name,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Frequency:        string(p.Frequency()),
		DueDay:           p.Rule.DueDay(),
		StartDate:        p.StartDate.Format(app.DateLayout),
		EndDate:          datePtr(p.EndDate),
		IsActive:         p.IsActive,
		AutoPost:         p.AutoPost,
		RemindDaysBefore: p.RemindDaysBefore,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.CategoryID != 0 {
		id := p.CategoryID
		resp.CategoryID = &id
	}
	if p.IsActive {
		if next, ok := recurrence.NextDueDate(p, recurrence.Day(today).AddDate(0, 0, -1)); ok {
			resp.NextDueDate = datePtr(&next)
		}
	}
	return resp
}

type createPaymentRequest struct {
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Frequency        string          `json:"frequency"`
	DueDay           int             `json:"due_day"`
	CategoryID       int64           `json:"category_id"`
	StartDate        string          `json:"start_date"`
	EndDate          *string         `json:"end_date"`
	IsActive         *bool           `json:"is_active"`
	AutoPost         bool            `json:"auto_post"`
	RemindDaysBefore *int            `json:"remind_days_before"`
	Notes            string          `json:"notes"`
}

func (req createPaymentRequest) toInput() (app.CreatePaymentInput, error) {
	freq, err := payment.ParseFrequency(req.Frequency)
	if err != nil {
		return app.CreatePaymentInput{}, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return app.CreatePaymentInput{}, err
	}
	end, err := parseDatePtr("end_date", req.EndDate)
	if err != nil {
		return app.CreatePaymentInput{}, err
	}
	return app.CreatePaymentInput{
		Name:             req.Name,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Frequency:        freq,
		DueDay:           req.DueDay,
		CategoryID:       req.CategoryID,
		StartDate:        start,
		EndDate:          end,
		IsActive:         req.IsActive,
		AutoPost:         req.AutoPost,
		RemindDaysBefore: req.RemindDaysBefore,
		Notes:            req.Notes,
	}, nil
}

type updatePaymentRequest struct {
	Name             *string          `json:"name"`
	Amount           *decimal.Decimal `json:"amount"`
	Currency         *string          `json:"currency"`
	Frequency        *string          `json:"frequency"`
	DueDay           *int             `json:"due_day"`
	CategoryID       *int64           `json:"category_id"`
	StartDate        *string          `json:"start_date"`
	EndDate          *string          `json:"end_date"`
	ClearEndDate     bool             `json:"clear_end_date"`
	IsActive         *bool            `json:"is_active"`
	AutoPost         *bool            `json:"auto_post"`
	RemindDaysBefore *int             `json:"remind_days_before"`
	Notes            *string          `json:"notes"`
}

func (req updatePaymentRequest) toInput() (app.UpdatePaymentInput, error) {
	in := app.UpdatePaymentInput{
		Name:             req.Name,
		Amount:           req.Amount,
		Currency:         req.Currency,
		DueDay:           req.DueDay,
		CategoryID:       req.CategoryID,
		ClearEndDate:     req.ClearEndDate,
		IsActive:         req.IsActive,
		AutoPost:         req.AutoPost,
		RemindDaysBefore: req.RemindDaysBefore,
		Notes:            req.Notes,
	}
	if req.Frequency != nil {
		freq, err := payment.ParseFrequency(*req.Frequency)
		if err != nil {
			return in, err
		}
		in.Frequency = &freq
	}
	var err error
	if in.StartDate, err = parseDatePtr("start_date", req.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = parseDatePtr("end_date", req.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

type occurrenceResponse struct {
	ID               int64           `json:"id"`
	PaymentID        int64           `json:"payment_id"`
	ScheduledDate    string          `json:"scheduled_date"`
	ActualDate       *string         `json:"actual_date,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	IsPaid           bool            `json:"is_paid"`
	IsSkipped        bool            `json:"is_skipped"`
	IsLate           bool            `json:"is_late"`
	LinkedEntryID    *int64          `json:"linked_entry_id,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	ConfirmationCode string          `json:"confirmation_code,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}

func newOccurrenceResponse(o *payment.Occurrence) occurrenceResponse {
	return occurrenceResponse{
		ID:               o.ID,
		PaymentID:        o.PaymentID,
		ScheduledDate:    o.ScheduledDate.Format(app.DateLayout),
		ActualDate:       datePtr(o.ActualDate),
		Amount:           o.Amount,
		IsPaid:           o.IsPaid,
		IsSkipped:        o.IsSkipped,
		IsLate:           o.IsLate,
		LinkedEntryID:    o.LinkedEntryID,
		Notes:            o.Notes,
		ConfirmationCode: o.ConfirmationCode,
		CreatedAt:        o.CreatedAt,
		PaidAt:           o.PaidAt,
	}
}

type recordPaymentRequest struct {
	ScheduledDate    string           `json:"scheduled_date"`
	ActualDate       *string          `json:"actual_date"`
	Amount           *decimal.Decimal `json:"amount"`
	EntryID          *int64           `json:"entry_id"`
	Notes            string           `json:"notes"`
	ConfirmationCode string           `json:"confirmation_code"`
}

type skipPaymentRequest struct {
	ScheduledDate string `json:"scheduled_date"`
	Notes         string `json:"notes"`
}

type linkEntryRequest struct {
	EntryID *int64 `json:"entry_id"`
}

type reminderResponse struct {
	ID            int64           `json:"id"`
	PaymentID     int64           `json:"payment_id"`
	ReminderDate  string          `json:"reminder_date"`
	DueDate       string          `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	IsDismissed   bool            `json:"is_dismissed"`
	IsPaid        bool            `json:"is_paid"`
	LinkedEntryID *int64          `json:"linked_entry_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newReminderResponse(r *payment.Reminder) reminderResponse {
	return reminderResponse{
		ID:            r.ID,
		PaymentID:     r.PaymentID,
		ReminderDate:  r.ReminderDate.Format(app.DateLayout),
		DueDate:       r.DueDate.Format(app.DateLayout),
		Amount:        r.Amount,
		IsDismissed:   r.IsDismissed,
		IsPaid:        r.IsPaid,
		LinkedEntryID: r.LinkedEntryID,
		CreatedAt:     r.CreatedAt,
	}
}

type suggestionResponse struct {
	ID         int64     `json:"id"`
	PaymentID  int64     `json:"payment_id"`
	EntryID    int64     `json:"entry_id"`
	Confidence float64   `json:"confidence"`
	Reasons    []string  `json:"reasons"`
	CreatedAt  time.Time `json:"created_at"`
}

func newSuggestionResponse(s *payment.LinkSuggestion) suggestionResponse {
	reasons := s.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return suggestionResponse{
		ID:         s.ID,
		PaymentID:  s.PaymentID,
		EntryID:    s.EntryID,
		Confidence: s.Confidence,
		Reasons:    reasons,
		CreatedAt:  s.CreatedAt,
	}
}

type telegramLinkRequest struct {
	ChatID  int64 `json:"chat_id"`
	Enabled *bool `json:"enabled"`
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(app.DateLayout)
	return &s
}
