package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"recurring_payments/internal/app"
	"recurring_payments/internal/domain/notification"
	"recurring_payments/internal/infra/scheduler"
)

// UserHeader carries the acting user's id. Authentication happens upstream.
const UserHeader = "X-User-ID"

// JobRunner re-triggers a scheduled job on demand.
type JobRunner interface {
	RunNow(ctx context.Context, job scheduler.Job) (app.BatchResult, error)
}

// Deps are the services behind the API.
type Deps struct {
	Payments           app.PaymentService
	Ledger             app.LedgerService
	Reminders          app.ReminderService
	Suggestions        app.SuggestionService
	Recipients         notification.RecipientRepository
	Jobs               JobRunner
	Today              func() time.Time
	SuggestionDaysBack int
}

type Handler struct {
	deps   Deps
	logger *logrus.Entry
}

// NewRouter builds the /api/v1 routes plus /health.
func NewRouter(deps Deps, logger *logrus.Entry) *mux.Router {
	h := &Handler{deps: deps, logger: logger.WithField("component", "http")}
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.loggingMiddleware)
	api.Use(userMiddleware)

	api.HandleFunc("/payments", h.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/payments", h.CreatePayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/summary", h.PaymentSummary).Methods(http.MethodGet)
	api.HandleFunc("/payments/upcoming", h.UpcomingPayments).Methods(http.MethodGet)
	api.HandleFunc("/payments/{id:[0-9]+}", h.GetPayment).Methods(http.MethodGet)
	api.HandleFunc("/payments/{id:[0-9]+}", h.UpdatePayment).Methods(http.MethodPatch)
	api.HandleFunc("/payments/{id:[0-9]+}", h.DeletePayment).Methods(http.MethodDelete)
	api.HandleFunc("/payments/{id:[0-9]+}/occurrences", h.RecordPayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/{id:[0-9]+}/skip", h.SkipPayment).Methods(http.MethodPost)

	api.HandleFunc("/occurrences", h.History).Methods(http.MethodGet)
	api.HandleFunc("/occurrences/stats", h.Stats).Methods(http.MethodGet)
	api.HandleFunc("/occurrences/{id:[0-9]+}/entry", h.LinkOccurrence).Methods(http.MethodPut)
	api.HandleFunc("/occurrences/{id:[0-9]+}", h.DeleteOccurrence).Methods(http.MethodDelete)

	api.HandleFunc("/reminders", h.ListReminders).Methods(http.MethodGet)
	api.HandleFunc("/reminders/generate", h.GenerateReminders).Methods(http.MethodPost)
	api.HandleFunc("/reminders/{id:[0-9]+}/dismiss", h.DismissReminder).Methods(http.MethodPost)
	api.HandleFunc("/reminders/{id:[0-9]+}/paid", h.MarkReminderPaid).Methods(http.MethodPost)

	api.HandleFunc("/suggestions", h.ListSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/suggestions/generate", h.GenerateSuggestions).Methods(http.MethodPost)
	api.HandleFunc("/suggestions/{id:[0-9]+}/accept", h.AcceptSuggestion).Methods(http.MethodPost)
	api.HandleFunc("/suggestions/{id:[0-9]+}/dismiss", h.DismissSuggestion).Methods(http.MethodPost)

	api.HandleFunc("/jobs/{job}", h.RunJob).Methods(http.MethodPost)
	api.HandleFunc("/notifications/telegram", h.LinkTelegram).Methods(http.MethodPut)

	return router
}

func (h *Handler) today() time.Time {
	if h.deps.Today == nil {
		return app.SystemClock()
	}
	return h.deps.Today()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(started).String(),
		}).Debug("HTTP request")
	})
}

type ctxKey int

const userIDKey ctxKey = iota

func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(UserHeader), 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusUnauthorized, "missing or invalid "+UserHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
