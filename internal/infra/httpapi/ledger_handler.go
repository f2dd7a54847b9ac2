package httpapi

import (
	"net/http"

	"recurring_payments/internal/domain/payment"
)

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	occ, err := h.deps.Ledger.History(r.Context(), userID(r), filter)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	resp := make([]occurrenceResponse, 0, len(occ))
	for _, o := range occ {
		resp = append(resp, newOccurrenceResponse(o))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func historyFilter(r *http.Request) (payment.HistoryFilter, error) {
	var (
		f   payment.HistoryFilter
		err error
	)
	q := r.URL.Query()
	if f.PaymentID, err = queryID(r, "payment_id"); err != nil {
		return f, err
	}
	from, to := q.Get("from"), q.Get("to")
	if f.From, err = parseDatePtr("from", &from); err != nil {
		return f, err
	}
	if f.To, err = parseDatePtr("to", &to); err != nil {
		return f, err
	}
	if f.IncludeSkipped, err = queryBool(r, "include_skipped", false); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	paymentID, err := queryID(r, "payment_id")
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	st, err := h.deps.Ledger.Stats(r.Context(), userID(r), paymentID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

func (h *Handler) LinkOccurrence(w http.ResponseWriter, r *http.Request) {
	var req linkEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	if req.EntryID == nil {
		h.respondWithServiceError(w, r, &payment.ValidationError{Field: "entry_id", Reason: "is required"})
		return
	}
	o, err := h.deps.Ledger.LinkToEntry(r.Context(), userID(r), pathID(r), *req.EntryID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newOccurrenceResponse(o))
}

func (h *Handler) DeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Ledger.DeleteOccurrence(r.Context(), userID(r), pathID(r)); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
