package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/briefly/backend/pkg/json"
	"github.com/briefly/backend/pkg/jwt"
	"github.com/briefly/backend/services/session/entity"
	"github.com/briefly/backend/services/session/storage"
	"github.com/briefly/backend/services/session/usecase"
)

type Handler struct {
	usecase   usecase.Usecase
	jwtSecret string
	log       *slog.Logger
}

func New(usecase usecase.Usecase, jwtSecret string, log *slog.Logger) *Handler {
	return &Handler{
		usecase:   usecase,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", h.HealthCheck)

		api.Post("/sessions", h.CreateSession)
		api.Get("/sessions/current", h.GetSession)
		api.Delete("/sessions/current", h.EndSession)

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/login-url", h.LoginURL)
			auth.Get("/callback", h.AuthCallback)
		})

		api.Get("/recordings", h.ListRecordings)
		api.Post("/uploads", h.Upload)

		api.Route("/pipeline", func(pipeline chi.Router) {
			pipeline.Post("/transcribe", h.Transcribe)
			pipeline.Post("/summarize", h.Summarize)
			pipeline.Post("/sentiment", h.ScoreSentiment)
			pipeline.Post("/suggestions", h.GenerateSuggestions)
			pipeline.Get("/transcript/download", h.DownloadTranscript)
		})
	})
	h.log.Info("all routes registered")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, map[string]bool{"status": true})
}

// sessionID resolves the calling session from the bearer token.
func (h *Handler) sessionID(r *http.Request) (string, error) {
	token, err := jwt.ParseTokenFromHeader(r)
	if err != nil {
		return "", err
	}
	return jwt.ParseSessionID(r.Context(), token, h.jwtSecret)
}

func statusForError(err error) int {
	if errors.Is(err, storage.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	switch entity.KindOf(err) {
	case entity.ErrKindValidation:
		return http.StatusBadRequest
	case entity.ErrKindAuth:
		return http.StatusUnauthorized
	case entity.ErrKindNetwork, entity.ErrKindUpstream:
		return http.StatusBadGateway
	case entity.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, op string, err error) {
	h.log.Error(op+" failed",
		slog.String("error", err.Error()),
		slog.String("kind", entity.KindOf(err).String()))
	json.WriteError(w, statusForError(err), err)
}
