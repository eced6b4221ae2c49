package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/briefly/backend/pkg/json"
	"github.com/briefly/backend/services/session/entity"
)

const maxUploadMemory = 32 << 20

// TranscribeResponse reports the chained summarization outcome next to
// the session so a kept transcript with a failed summary is
// distinguishable from a fully summarized one.
type TranscribeResponse struct {
	SessionResponse
	SummaryError string `json:"summary_error,omitempty"`
}

type ListRecordingsResponse struct {
	Recordings []RecordingResponse `json:"recordings"`
	Partial    bool                `json:"partial"`
	Error      string              `json:"error,omitempty"`
}

type RecordingResponse struct {
	Topic       string `json:"topic"`
	DownloadURL string `json:"download_url"`
	StartTime   string `json:"start_time"`
	Duration    string `json:"duration"`
}

func recordingResponses(recordings []entity.Recording) []RecordingResponse {
	out := make([]RecordingResponse, 0, len(recordings))
	for _, rec := range recordings {
		out = append(out, RecordingResponse{
			Topic:       rec.Topic,
			DownloadURL: rec.DownloadURL,
			StartTime:   rec.StartTime.Format("January 2006"),
			Duration:    rec.DurationString(),
		})
	}
	return out
}

func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	recordings, err := h.usecase.ListRecordings(r.Context(), id)
	if err != nil {
		// Pages fetched before the failure are still delivered, marked
		// partial so the client can tell them from a complete listing.
		if len(recordings) > 0 {
			h.log.Warn("partial recordings listing",
				slog.Int("fetched", len(recordings)),
				slog.String("error", err.Error()))
			json.WriteJSON(w, http.StatusOK, ListRecordingsResponse{
				Recordings: recordingResponses(recordings),
				Partial:    true,
				Error:      err.Error(),
			})
			return
		}
		h.writeFailure(w, "list recordings", err)
		return
	}

	json.WriteJSON(w, http.StatusOK, ListRecordingsResponse{
		Recordings: recordingResponses(recordings),
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		json.WriteError(w, http.StatusBadRequest, fmt.Errorf("no file selected"))
		return
	}
	defer file.Close()

	session, err := h.usecase.Upload(r.Context(), id, header.Filename, file)
	if err != nil {
		h.writeFailure(w, "upload", err)
		return
	}

	h.log.Info("file uploaded",
		slog.String("session_id", id),
		slog.String("filename", session.SourceName))
	json.WriteJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	h.log.Info("transcription requested", slog.String("session_id", id))
	session, err := h.usecase.Transcribe(r.Context(), id)
	if err != nil {
		// The transcript survives a failed chained summarization; the
		// failure rides along so the client does not mistake it for a
		// complete run.
		if session != nil && session.Transcript != "" {
			h.log.Warn("transcribed but summarization failed",
				slog.String("session_id", id),
				slog.String("error", err.Error()))
			json.WriteJSON(w, http.StatusOK, TranscribeResponse{
				SessionResponse: sessionResponse(session),
				SummaryError:    err.Error(),
			})
			return
		}
		h.writeFailure(w, "transcribe", err)
		return
	}

	h.log.Info("transcription complete",
		slog.String("session_id", id),
		slog.Int("transcript_length", len(session.Transcript)))
	json.WriteJSON(w, http.StatusOK, TranscribeResponse{SessionResponse: sessionResponse(session)})
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	session, err := h.usecase.Summarize(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "summarize", err)
		return
	}

	h.log.Info("summary generated", slog.String("session_id", id))
	json.WriteJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *Handler) ScoreSentiment(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	session, err := h.usecase.ScoreSentiment(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "score sentiment", err)
		return
	}

	h.log.Info("sentiment scored",
		slog.String("session_id", id),
		slog.String("label", string(session.Sentiment)),
		slog.Float64("confidence", session.SentimentConfidence))
	json.WriteJSON(w, http.StatusOK, entity.SentimentResult{
		Label:      session.Sentiment,
		Confidence: session.SentimentConfidence,
	})
}

func (h *Handler) GenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	session, err := h.usecase.GenerateSuggestions(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "generate suggestions", err)
		return
	}

	h.log.Info("suggestions generated", slog.String("session_id", id))
	json.WriteJSON(w, http.StatusOK, map[string]string{"suggestions": session.Suggestions})
}

func (h *Handler) DownloadTranscript(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessionID(r)
	if err != nil {
		json.WriteError(w, http.StatusForbidden, fmt.Errorf("access denied"))
		return
	}

	path, err := h.usecase.TranscriptPath(r.Context(), id)
	if err != nil {
		h.writeFailure(w, "download transcript", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
