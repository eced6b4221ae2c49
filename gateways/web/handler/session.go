package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/briefly/backend/pkg/json"
	"github.com/briefly/backend/pkg/jwt"
	"github.com/briefly/backend/services/session/entity"
)

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type SessionResponse struct {
	SessionID           string   `json:"session_id"`
	Stage               string   `json:"stage"`
	Authenticated       bool     `json:"authenticated"`
	SourceName          string   `json:"source_name,omitempty"`
	Transcript          string   `json:"transcript,omitempty"`
	Summary             string   `json:"summary,omitempty"`
	Sentiment           string   `json:"sentiment,omitempty"`
	SentimentConfidence float64  `json:"sentiment_confidence,omitempty"`
	Suggestions         string   `json:"suggestions,omitempty"`
	AvailableActions    []string `json:"available_actions"`
}

func sessionResponse(s *entity.Session) SessionResponse {
	return SessionResponse{
		SessionID:           s.ID,
		Stage:               s.Stage.String(),
		Authenticated:       s.Authenticated(),
		SourceName:          s.SourceName,
		Transcript:          s.Transcript,
		Summary:             s.Summary,
		Sentiment:           string(s.Sentiment),
		SentimentConfidence: s.SentimentConfidence,
		Suggestions:         s.Suggestions,
		AvailableActions:    s.AvailableActions(),
	}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.usecase.CreateSession(r.Context())
	if err != nil {
		h.writeFailure(w, "create session", err)
		return
	}

	token, err := jwt.Generate(r.Context(), session.ID, h.jwtSecret)
	if err != nil {
		h.writeFailure(w, "create session", err)
		return
	}

	h.log.Info("session created", slog.String("session_id", session.ID))
	json.WriteJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID,
		Token:     token,
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	session, err := h.usecase.GetSession(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "get session", err)
		return
	}

	json.WriteJSON(w, http.StatusOK, sessionResponse(session))
}

// EndSession tears the session down along with its on-disk artifacts.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	if err := h.usecase.EndSession(r.Context(), id); err != nil {
		h.writeFailure(w, "end session", err)
		return
	}

	h.log.Info("session ended", slog.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}
