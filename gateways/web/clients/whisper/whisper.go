package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	config "github.com/briefly/backend/config/web"
	"github.com/briefly/backend/services/session/entity"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	model          = "whisper-1"
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func New(cfg *config.OpenAIConfig) *Client {
	return newClient(cfg, defaultBaseURL)
}

func newClient(cfg *config.OpenAIConfig, baseURL string) *Client {
	log := slog.Default()
	log.Debug("creating whisper client",
		slog.String("base_url", baseURL),
		slog.Bool("api_key_set", cfg.APIKey != ""))
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe submits the audio file whole, no chunking, and returns the
// recognized text verbatim.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	const op = "whisper.transcribe"

	c.log.Info("transcribing audio", slog.String("path", audioPath))

	file, err := os.Open(audioPath)
	if err != nil {
		return "", entity.NewValidationError(op, fmt.Errorf("opening audio file: %w", err))
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy audio into request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("transcription request failed", slog.String("error", err.Error()))
		return "", entity.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.log.Error("transcription rejected",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", string(respBody)))
		if resp.StatusCode == http.StatusUnauthorized {
			return "", entity.NewAuthError(op, fmt.Errorf("transcription rejected with status %d", resp.StatusCode))
		}
		return "", entity.NewUpstreamError(op, resp.StatusCode, string(respBody))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	c.log.Info("transcription complete", slog.Int("text_length", len(result.Text)))
	return result.Text, nil
}
