package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	config "github.com/briefly/backend/config/web"
	"github.com/briefly/backend/services/session/entity"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	model          = "gpt-4o"

	// Summaries should restate the transcript, not embellish it;
	// suggestions get a little more headroom.
	summarizeTemperature = 0.3
	suggestTemperature   = 0.5
)

const summarizePrompt = `You are an expert office meeting assistant. Given the transcript of a meeting, extract:
1. A short meeting summary.
2. A list of action items.

Transcript:
"""
%s
"""
Return both the summary and the action items clearly formatted.`

const suggestPrompt = `You are an expert HR assistant. Given the following meeting transcript and its detected sentiment, generate:

- A **one-line summary** describing the overall situation and emotional tone of the conversation.
- Then provide **2-3 short, practical suggestions** that the team manager can implement quickly. Each suggestion should be about 1-2 lines and clearly actionable.

Focus on clarity, helpfulness, and brevity.

Transcript:
"""
%s
"""

Detected Sentiment:
"""
%s
"""

Return the output in this format:
Summary: <your one-line summary here>

Suggestions:
- <suggestion 1>
- <suggestion 2>
- <suggestion 3>`

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
	log.Debug("creating llm client",
		slog.String("base_url", baseURL),
		slog.Bool("api_key_set", cfg.APIKey != ""))
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize asks for a short meeting summary plus action items.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	c.log.Info("generating summary and action items", slog.Int("transcript_length", len(transcript)))
	return c.complete(ctx, "llm.summarize",
		"You are an efficient and clear AI work assistant.",
		fmt.Sprintf(summarizePrompt, transcript),
		summarizeTemperature)
}

// Suggest asks for a one-line tone summary and 2-3 manager suggestions
// shaped by the detected sentiment.
func (c *Client) Suggest(ctx context.Context, transcript string, sentiment entity.SentimentLabel) (string, error) {
	c.log.Info("generating manager suggestions",
		slog.Int("transcript_length", len(transcript)),
		slog.String("sentiment", string(sentiment)))
	return c.complete(ctx, "llm.suggest",
		"You are an efficient and clear work assistant.",
		fmt.Sprintf(suggestPrompt, transcript, sentiment),
		suggestTemperature)
}

func (c *Client) complete(ctx context.Context, op, system, user string, temperature float64) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("chat request failed", slog.String("error", err.Error()))
		return "", entity.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.log.Error("chat request rejected",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", string(body)))
		if resp.StatusCode == http.StatusUnauthorized {
			return "", entity.NewAuthError(op, fmt.Errorf("chat request rejected with status %d", resp.StatusCode))
		}
		return "", entity.NewUpstreamError(op, resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", entity.NewUpstreamError(op, resp.StatusCode, "chat response has no choices")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	c.log.Info("completion received", slog.Int("content_length", len(content)))
	return content, nil
}
