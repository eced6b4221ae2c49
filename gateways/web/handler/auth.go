package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/briefly/backend/pkg/json"
)

type LoginURLResponse struct {
	URL string `json:"url"`
}

type AuthCallbackResponse struct {
	Authenticated bool `json:"authenticated"`
}

func (h *Handler) LoginURL(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, LoginURLResponse{URL: h.usecase.LoginURL()})
}

// AuthCallback receives the one-time redirect code and exchanges it for
// a bearer token bound to the calling session. The code never lands in
// the session itself, so it cannot be replayed from a snapshot.
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("code is required"))
		return
	}

	if _, err := h.usecase.Authenticate(r.Context(), id, code); err != nil {
		h.writeFailure(w, "auth callback", err)
		return
	}

	h.log.Info("session authenticated", slog.String("session_id", id))
	json.WriteJSON(w, http.StatusOK, AuthCallbackResponse{Authenticated: true})
}
