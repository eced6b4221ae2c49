package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefly/backend/pkg/gen"
	"github.com/briefly/backend/pkg/logger"
	"github.com/briefly/backend/services/session/entity"
	"github.com/briefly/backend/services/session/storage"
	"github.com/briefly/backend/services/session/usecase"
)

const testSecret = "test-secret"

type stubCloud struct {
	recordings []entity.Recording
	listErr    error
}

func (s *stubCloud) LoginURL() string { return "https://zoom.us/oauth/authorize?client_id=test" }
func (s *stubCloud) ExchangeCode(ctx context.Context, code string) (string, error) {
	return "zoom-token", nil
}
func (s *stubCloud) ListRecordings(ctx context.Context, accessToken string) ([]entity.Recording, error) {
	return s.recordings, s.listErr
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return "We shipped the feature.", nil
}

type stubGenerator struct {
	summarizeErr error
}

func (g stubGenerator) Summarize(ctx context.Context, transcript string) (string, error) {
	if g.summarizeErr != nil {
		return "", g.summarizeErr
	}
	return "Summary: shipped.\n\nAction Items:\n- Announce the launch", nil
}

func (stubGenerator) Suggest(ctx context.Context, transcript string, sentiment entity.SentimentLabel) (string, error) {
	return "Summary: upbeat conversation.\n\nSuggestions:\n- Celebrate with the team", nil
}

type stubSentiment struct{}

func (stubSentiment) Analyze(ctx context.Context, text string) (entity.SentimentResult, error) {
	return entity.SentimentResult{Label: entity.SentimentPositive, Confidence: 0.953}, nil
}

func newTestServer(t *testing.T, cloud *stubCloud) *httptest.Server {
	t.Helper()
	return newTestServerWithGenerator(t, cloud, stubGenerator{})
}

func newTestServerWithGenerator(t *testing.T, cloud *stubCloud, generator stubGenerator) *httptest.Server {
	t.Helper()

	usc := usecase.New(
		storage.New(gen.UUID()),
		cloud,
		stubTranscriber{},
		generator,
		stubSentiment{},
		t.TempDir(),
		t.TempDir(),
	)

	h := New(usc, testSecret, logger.Default())
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created CreateSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.Token)
	return created.Token
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func uploadFile(t *testing.T, srv *httptest.Server, token, filename, content string) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return doRequest(t, srv, http.MethodPost, "/api/v1/uploads", token, body, writer.FormDataContentType())
}

func decodeSession(t *testing.T, resp *http.Response) SessionResponse {
	t.Helper()
	defer resp.Body.Close()

	var session SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionRequiresToken(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})

	resp, err := http.Get(srv.URL + "/api/v1/sessions/current")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateAndGetSession(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})
	token := createSession(t, srv)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/current", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	session := decodeSession(t, resp)
	assert.Equal(t, "new", session.Stage)
	assert.False(t, session.Authenticated)
	assert.Equal(t, []string{"upload"}, session.AvailableActions)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})
	token := createSession(t, srv)

	resp := uploadFile(t, srv, token, "notes.pdf", "%PDF")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "unsupported file type")
}

func TestPipelineHappyPath(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})
	token := createSession(t, srv)

	resp := uploadFile(t, srv, token, "meeting.mp3", "audio-bytes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeSession(t, resp)
	assert.Equal(t, "source_acquired", session.Stage)

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/pipeline/transcribe", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session = decodeSession(t, resp)
	assert.Equal(t, "We shipped the feature.", session.Transcript)
	assert.Contains(t, session.Summary, "Action Items")

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/pipeline/sentiment", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sentiment entity.SentimentResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sentiment))
	resp.Body.Close()
	assert.Equal(t, entity.SentimentPositive, sentiment.Label)
	assert.GreaterOrEqual(t, sentiment.Confidence, 0.0)
	assert.LessOrEqual(t, sentiment.Confidence, 1.0)

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/pipeline/suggestions", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var suggestions map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&suggestions))
	resp.Body.Close()
	assert.Contains(t, suggestions["suggestions"], "Summary:")
	assert.Contains(t, suggestions["suggestions"], "- ")

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/pipeline/transcript/download", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "We shipped the feature.", string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "meeting.mp3_transcript.txt")
}

func TestTranscribeReportsFailedChainedSummary(t *testing.T) {
	srv := newTestServerWithGenerator(t, &stubCloud{}, stubGenerator{
		summarizeErr: entity.NewUpstreamError("llm.summarize", 500, "model overloaded"),
	})
	token := createSession(t, srv)

	resp := uploadFile(t, srv, token, "meeting.mp3", "audio-bytes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/pipeline/transcribe", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var transcribed TranscribeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&transcribed))
	resp.Body.Close()
	assert.Equal(t, "We shipped the feature.", transcribed.Transcript)
	assert.Empty(t, transcribed.Summary)
	assert.Contains(t, transcribed.SummaryError, "model overloaded")
}

func TestEndSession(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})
	token := createSession(t, srv)

	resp := uploadFile(t, srv, token, "meeting.mp3", "audio-bytes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodDelete, "/api/v1/sessions/current", token, nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/sessions/current", token, nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTranscribeWithoutSource(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})
	token := createSession(t, srv)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/pipeline/transcribe", token, nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListRecordings(t *testing.T) {
	cloud := &stubCloud{recordings: []entity.Recording{
		{Topic: "Standup", DownloadURL: "https://dl/1", DurationMinutes: 15},
	}}
	srv := newTestServer(t, cloud)
	token := createSession(t, srv)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/auth/callback?code=one-time", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/recordings", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing ListRecordingsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	require.Len(t, listing.Recordings, 1)
	assert.False(t, listing.Partial)
	assert.Equal(t, "Standup", listing.Recordings[0].Topic)
	assert.Equal(t, "15 minutes", listing.Recordings[0].Duration)
}

func TestListRecordingsPartial(t *testing.T) {
	cloud := &stubCloud{
		recordings: []entity.Recording{{Topic: "Standup"}},
		listErr:    entity.NewUpstreamError("zoom.list_recordings", 500, "page 2 failed"),
	}
	srv := newTestServer(t, cloud)
	token := createSession(t, srv)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/auth/callback?code=one-time", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodGet, "/api/v1/recordings", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing ListRecordingsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	assert.True(t, listing.Partial)
	assert.NotEmpty(t, listing.Error)
	require.Len(t, listing.Recordings, 1)
}

func TestListRecordingsWithoutLogin(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})
	token := createSession(t, srv)

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/recordings", token, nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginURL(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})

	resp, err := http.Get(srv.URL + "/api/v1/auth/login-url")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login LoginURLResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.Contains(t, login.URL, "oauth/authorize")
}

func TestUploadInvalidatesPriorPipeline(t *testing.T) {
	srv := newTestServer(t, &stubCloud{})
	token := createSession(t, srv)

	resp := uploadFile(t, srv, token, "first.mp3", "one")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodPost, "/api/v1/pipeline/transcribe", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = uploadFile(t, srv, token, "second.txt", "two")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeSession(t, resp)

	assert.Empty(t, session.Transcript)
	assert.Empty(t, session.Summary)
	assert.Equal(t, "source_acquired", session.Stage)
}
