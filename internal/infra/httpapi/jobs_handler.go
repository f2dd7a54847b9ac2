package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"recurring_payments/internal/domain/notification"
	"recurring_payments/internal/domain/payment"
	"recurring_payments/internal/infra/scheduler"
)

// RunJob re-triggers a daily sweep for every user; accepts "auto-post" and "auto_post".
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.deps.Jobs == nil {
		respondWithError(w, http.StatusServiceUnavailable, "job runner not configured")
		return
	}
	job, err := scheduler.ParseJob(strings.ReplaceAll(mux.Vars(r)["job"], "-", "_"))
	if err != nil {
		respondWithError(w, http.StatusNotFound, "not found")
		return
	}
	h.logger.WithField("job", job).WithField("user_id", userID(r)).Info("Manual job run requested")
	res, err := h.deps.Jobs.RunNow(r.Context(), job)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// LinkTelegram stores the chat that receives the acting user's notifications.
func (h *Handler) LinkTelegram(w http.ResponseWriter, r *http.Request) {
	var req telegramLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	if req.ChatID == 0 {
		h.respondWithServiceError(w, r, &payment.ValidationError{Field: "chat_id", Reason: "is required"})
		return
	}
	rec := &notification.Recipient{UserID: userID(r), TelegramChatID: req.ChatID, Enabled: true}
	if req.Enabled != nil {
		rec.Enabled = *req.Enabled
	}
	if err := h.deps.Recipients.Upsert(r.Context(), rec); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": rec.UserID,
		"chat_id": rec.TelegramChatID,
		"enabled": rec.Enabled,
	})
}
