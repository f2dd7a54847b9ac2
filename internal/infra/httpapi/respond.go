package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"recurring_payments/internal/app"
	"recurring_payments/internal/domain/expense"
	"recurring_payments/internal/domain/payment"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithServiceError maps domain errors to status codes. Missing rows
// and rows owned by someone else both read as a plain 404.
func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *payment.ValidationError
	switch {
	case errors.As(err, &ve):
		respondWithError(w, http.StatusBadRequest, ve.Error())
	case payment.IsNotFound(err), errors.Is(err, expense.ErrEntryNotFound), errors.Is(err, expense.ErrCategoryNotFound):
		respondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, payment.ErrSuggestionResolved):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrDuplicateReminder), errors.Is(err, payment.ErrDuplicateSuggestion):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"user_id": userID(r),
		}).Error("Request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &payment.ValidationError{Field: "body", Reason: "invalid JSON payload"}
	}
	return nil
}

func pathID(r *http.Request) int64 {
	// The route pattern only admits digits.
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(app.DateLayout, s)
	if err != nil {
		return time.Time{}, &payment.ValidationError{Field: field, Reason: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

func parseDatePtr(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &payment.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

func queryID(r *http.Request, name string) (*int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return nil, &payment.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return &n, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &payment.ValidationError{Field: name, Reason: "must be true or false"}
	}
	return b, nil
}
