package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/briefly/backend/config/web"
	"github.com/briefly/backend/services/session/entity"
)

func testConfig() *config.OpenAIConfig {
	return &config.OpenAIConfig{APIKey: "sk-test", Timeout: 5 * time.Second}
}

func chatServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(capture))

		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
}

func TestSummarize(t *testing.T) {
	var captured chatRequest
	srv := chatServer(t, "  Summary: shipped.\n\nAction Items:\n- Announce  ", &captured)
	defer srv.Close()

	c := newClient(testConfig(), srv.URL)
	summary, err := c.Summarize(context.Background(), "We shipped the feature.")
	require.NoError(t, err)

	// Content comes back trimmed.
	assert.Equal(t, "Summary: shipped.\n\nAction Items:\n- Announce", summary)

	assert.Equal(t, "gpt-4o", captured.Model)
	assert.Equal(t, 0.3, captured.Temperature)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Contains(t, captured.Messages[1].Content, "We shipped the feature.")
	assert.Contains(t, captured.Messages[1].Content, "action items")
}

func TestSuggest(t *testing.T) {
	var captured chatRequest
	srv := chatServer(t, "Summary: upbeat.\n\nSuggestions:\n- Celebrate", &captured)
	defer srv.Close()

	c := newClient(testConfig(), srv.URL)
	suggestions, err := c.Suggest(context.Background(), "We shipped the feature.", entity.SentimentPositive)
	require.NoError(t, err)

	assert.Contains(t, suggestions, "Summary:")
	assert.Contains(t, suggestions, "- Celebrate")

	assert.Equal(t, 0.5, captured.Temperature)
	require.Len(t, captured.Messages, 2)
	assert.Contains(t, captured.Messages[1].Content, "Positive")
	assert.Contains(t, captured.Messages[1].Content, "We shipped the feature.")
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := newClient(testConfig(), srv.URL)
	_, err := c.Summarize(context.Background(), "transcript")
	require.Error(t, err)
	assert.Equal(t, entity.ErrKindUpstream, entity.KindOf(err))
}

func TestCompleteUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newClient(testConfig(), srv.URL)
	_, err := c.Summarize(context.Background(), "transcript")
	require.Error(t, err)
	assert.Equal(t, entity.ErrKindUpstream, entity.KindOf(err))
	assert.Contains(t, err.Error(), "rate limited")
}
