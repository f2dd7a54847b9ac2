package httpapi

import (
	"net/http"

	"recurring_payments/internal/app"
)

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	includeDismissed, err := queryBool(r, "include_dismissed", false)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	reminders, err := h.deps.Reminders.List(r.Context(), userID(r), includeDismissed)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	resp := make([]reminderResponse, 0, len(reminders))
	for _, rem := range reminders {
		resp = append(resp, newReminderResponse(rem))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) GenerateReminders(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Reminders.GenerateReminders(r.Context(), userID(r), h.today())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *Handler) DismissReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := h.deps.Reminders.Dismiss(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newReminderResponse(rem))
}

func (h *Handler) MarkReminderPaid(w http.ResponseWriter, r *http.Request) {
	var req linkEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	rem, err := h.deps.Reminders.MarkPaid(r.Context(), userID(r), pathID(r), req.EntryID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newReminderResponse(rem))
}

func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.deps.Suggestions.List(r.Context(), userID(r))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	resp := make([]suggestionResponse, 0, len(suggestions))
	for _, s := range suggestions {
		resp = append(resp, newSuggestionResponse(s))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// GenerateSuggestions clamps days_back into range instead of rejecting it.
func (h *Handler) GenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	def := h.deps.SuggestionDaysBack
	if def == 0 {
		def = app.DefaultSuggestionDaysBack
	}
	daysBack, err := queryInt(r, "days_back", def)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	n, err := h.deps.Suggestions.GenerateSuggestions(r.Context(), userID(r), app.ClampDaysBack(daysBack), h.today())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"created": n})
}

func (h *Handler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	o, err := h.deps.Suggestions.Accept(r.Context(), userID(r), pathID(r))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newOccurrenceResponse(o))
}

func (h *Handler) DismissSuggestion(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Suggestions.Dismiss(r.Context(), userID(r), pathID(r)); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
