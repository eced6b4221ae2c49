package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"

	config "github.com/briefly/backend/config/web"
	"github.com/briefly/backend/services/session/entity"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"

	// 3-class model trained on short social-media text; transcripts are
	// cleaned of emoji and URLs before inference because the model is
	// not robust to either.
	modelID = "cardiffnlp/twitter-roberta-base-sentiment"

	// Model input cap; longer text is truncated service-side.
	maxTokens = 512
)

var urlPattern = regexp.MustCompile(`http\S+`)

// Preprocess strips emoji glyphs and http(s)-prefixed substrings and
// trims the result. Pure function; classification of equal cleaned text
// is identical.
func Preprocess(text string) string {
	text = gomoji.RemoveEmojis(text)
	text = urlPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func New(cfg *config.HFConfig) *Client {
	return newClient(cfg, defaultBaseURL)
}

func newClient(cfg *config.HFConfig, baseURL string) *Client {
	log := slog.Default()
	log.Debug("creating sentiment client",
		slog.String("model", modelID),
		slog.Bool("api_token_set", cfg.APIToken != ""))
	return &Client{
		apiToken:   cfg.APIToken,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type inferenceRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		Truncation bool `json:"truncation"`
		MaxLength  int  `json:"max_length"`
	} `json:"parameters"`
	Options struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type classScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze classifies the text into one of the three fixed labels and
// reports the chosen class together with its probability rounded to
// three decimals.
func (c *Client) Analyze(ctx context.Context, text string) (entity.SentimentResult, error) {
	const op = "sentiment.analyze"

	cleaned := Preprocess(text)
	c.log.Info("analyzing sentiment",
		slog.Int("raw_length", len(text)),
		slog.Int("cleaned_length", len(cleaned)))

	reqBody := inferenceRequest{Inputs: cleaned}
	reqBody.Parameters.Truncation = true
	reqBody.Parameters.MaxLength = maxTokens
	reqBody.Options.WaitForModel = true

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return entity.SentimentResult{}, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	endpoint := c.baseURL + "/models/" + modelID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return entity.SentimentResult{}, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("inference request failed", slog.String("error", err.Error()))
		return entity.SentimentResult{}, entity.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.log.Error("inference rejected",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", string(body)))
		if resp.StatusCode == http.StatusUnauthorized {
			return entity.SentimentResult{}, entity.NewAuthError(op, fmt.Errorf("inference rejected with status %d", resp.StatusCode))
		}
		return entity.SentimentResult{}, entity.NewUpstreamError(op, resp.StatusCode, string(body))
	}

	var result [][]classScore
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return entity.SentimentResult{}, fmt.Errorf("failed to decode inference response: %w", err)
	}
	if len(result) == 0 || len(result[0]) != len(entity.SentimentLabels) {
		return entity.SentimentResult{}, entity.NewUpstreamError(op, resp.StatusCode, "inference response has unexpected shape")
	}

	scores := make([]float64, len(entity.SentimentLabels))
	for _, cs := range result[0] {
		idx, err := classIndex(cs.Label)
		if err != nil {
			return entity.SentimentResult{}, entity.NewUpstreamError(op, resp.StatusCode, err.Error())
		}
		scores[idx] = cs.Score
	}

	probs := softmaxIfLogits(scores)
	best := argmax(probs)
	label, err := entity.SentimentByIndex(best)
	if err != nil {
		return entity.SentimentResult{}, err
	}

	confidence := math.Round(probs[best]*1000) / 1000

	c.log.Info("sentiment analyzed",
		slog.String("label", string(label)),
		slog.Float64("confidence", confidence))
	return entity.SentimentResult{Label: label, Confidence: confidence}, nil
}

// classIndex maps the model's class names (LABEL_0/1/2) onto the fixed
// label order: 0 negative, 1 neutral, 2 positive.
func classIndex(label string) (int, error) {
	switch strings.ToUpper(label) {
	case "LABEL_0", "NEGATIVE":
		return 0, nil
	case "LABEL_1", "NEUTRAL":
		return 1, nil
	case "LABEL_2", "POSITIVE":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown class label %q", label)
	}
}

// softmaxIfLogits normalizes raw logits into probabilities; when the
// service already returns a probability distribution it is passed
// through unchanged.
func softmaxIfLogits(scores []float64) []float64 {
	sum := 0.0
	probabilities := true
	for _, s := range scores {
		if s < 0 || s > 1 {
			probabilities = false
		}
		sum += s
	}
	if probabilities && math.Abs(sum-1) < 0.01 {
		return scores
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]float64, len(scores))
	var total float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
