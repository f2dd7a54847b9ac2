package httpapi

import (
	"net/http"

	"recurring_payments/internal/app"
	"recurring_payments/internal/domain/payment"
)

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active", false)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	payments, err := h.deps.Payments.List(r.Context(), userID(r), activeOnly)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	today := h.today()
	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, newPaymentResponse(p, today))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	p, err := h.deps.Payments.Create(r.Context(), userID(r), in)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newPaymentResponse(p, h.today()))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Payments.Get(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newPaymentResponse(p, h.today()))
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	p, err := h.deps.Payments.Update(r.Context(), userID(r), pathID(r), in)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newPaymentResponse(p, h.today()))
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Payments.Delete(r.Context(), userID(r), pathID(r)); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.Payments.Summary(r.Context(), userID(r), h.today())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sum)
}

func (h *Handler) UpcomingPayments(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", app.DefaultUpcomingDays)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	if days < 1 || days > app.MaxUpcomingDays {
		h.respondWithServiceError(w, r, &payment.ValidationError{Field: "days", Reason: "must be between 1 and 366"})
		return
	}
	due, err := h.deps.Payments.Upcoming(r.Context(), userID(r), h.today(), days)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, due)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	scheduled, err := parseDate("scheduled_date", req.ScheduledDate)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	actual, err := parseDatePtr("actual_date", req.ActualDate)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	o, err := h.deps.Ledger.RecordPayment(r.Context(), userID(r), app.RecordPaymentInput{
		PaymentID:        pathID(r),
		ScheduledDate:    scheduled,
		ActualDate:       actual,
		Amount:           req.Amount,
		LinkedEntryID:    req.EntryID,
		Notes:            req.Notes,
		ConfirmationCode: req.ConfirmationCode,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newOccurrenceResponse(o))
}

func (h *Handler) SkipPayment(w http.ResponseWriter, r *http.Request) {
	var req skipPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	scheduled, err := parseDate("scheduled_date", req.ScheduledDate)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	o, err := h.deps.Ledger.SkipPayment(r.Context(), userID(r), pathID(r), scheduled, req.Notes)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newOccurrenceResponse(o))
}
