package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briefly/backend/services/session/consts"
	"github.com/briefly/backend/services/session/entity"
	"github.com/briefly/backend/services/session/storage"
)

// CloudProvider is the recording source behind the OAuth login flow.
type CloudProvider interface {
	LoginURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
	ListRecordings(ctx context.Context, accessToken string) ([]entity.Recording, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Generator interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	Suggest(ctx context.Context, transcript string, sentiment entity.SentimentLabel) (string, error)
}

type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (entity.SentimentResult, error)
}

type Usecase interface {
	CreateSession(ctx context.Context) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	EndSession(ctx context.Context, id string) error

	LoginURL() string
	Authenticate(ctx context.Context, id, code string) (*entity.Session, error)

	ListRecordings(ctx context.Context, id string) ([]entity.Recording, error)
	Upload(ctx context.Context, id, filename string, file io.Reader) (*entity.Session, error)

	Transcribe(ctx context.Context, id string) (*entity.Session, error)
	Summarize(ctx context.Context, id string) (*entity.Session, error)
	ScoreSentiment(ctx context.Context, id string) (*entity.Session, error)
	GenerateSuggestions(ctx context.Context, id string) (*entity.Session, error)

	TranscriptPath(ctx context.Context, id string) (string, error)
}

type usecase struct {
	storage     storage.Storage
	cloud       CloudProvider
	transcriber Transcriber
	generator   Generator
	sentiment   SentimentAnalyzer

	uploadDir string
	outputDir string

	now func() time.Time
}

func New(stg storage.Storage, cloud CloudProvider, transcriber Transcriber, generator Generator, sentiment SentimentAnalyzer, uploadDir, outputDir string) Usecase {
	if uploadDir == "" {
		uploadDir = consts.DefaultUploadDir
	}
	if outputDir == "" {
		outputDir = consts.DefaultOutputDir
	}
	return &usecase{
		storage:     stg,
		cloud:       cloud,
		transcriber: transcriber,
		generator:   generator,
		sentiment:   sentiment,
		uploadDir:   uploadDir,
		outputDir:   outputDir,
		now:         time.Now,
	}
}

func (u *usecase) CreateSession(ctx context.Context) (*entity.Session, error) {
	return u.storage.CreateSession(ctx)
}

func (u *usecase) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	return u.storage.GetSession(ctx, id)
}

// EndSession destroys the session record together with the artifacts it
// left on disk. File removal is best effort; the record always goes.
func (u *usecase) EndSession(ctx context.Context, id string) error {
	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return err
	}

	if session.SourcePath != "" {
		os.Remove(session.SourcePath)
		os.Remove(filepath.Join(u.outputDir, session.SourceName+consts.TranscriptSuffix))
	}

	return u.storage.DeleteSession(ctx, id)
}

func (u *usecase) LoginURL() string {
	return u.cloud.LoginURL()
}

// Authenticate exchanges the one-time redirect code for a bearer token
// and records the issuance time for the local one-hour validity window.
func (u *usecase) Authenticate(ctx context.Context, id, code string) (*entity.Session, error) {
	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, entity.NewValidationError("session.authenticate", fmt.Errorf("authorization code is required"))
	}

	token, err := u.cloud.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	session.AccessToken = token
	session.TokenIssuedAt = u.now()

	if err := u.storage.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListRecordings checks the token's local validity window lazily, right
// before the listing call. An expired window clears the token and forces
// a fresh login; there is no refresh-token exchange.
func (u *usecase) ListRecordings(ctx context.Context, id string) ([]entity.Recording, error) {
	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		return nil, entity.NewAuthError("session.list_recordings", fmt.Errorf("not logged in"))
	}
	if session.TokenExpired(u.now()) {
		session.AccessToken = ""
		session.TokenIssuedAt = time.Time{}
		if err := u.storage.UpdateSession(ctx, session); err != nil {
			return nil, err
		}
		return nil, entity.NewAuthError("session.list_recordings", fmt.Errorf("session expired, please log in again"))
	}

	// Partial results travel with the error so the caller can tell a
	// failed fetch from an empty account.
	return u.cloud.ListRecordings(ctx, session.AccessToken)
}

// Upload validates the extension before any IO, persists the file under
// the upload directory and makes it the session's source artifact. Every
// artifact derived from the previous source is dropped.
func (u *usecase) Upload(ctx context.Context, id, filename string, file io.Reader) (*entity.Session, error) {
	const op = "session.upload"

	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, entity.NewValidationError(op, fmt.Errorf("no file selected"))
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !consts.ExtensionAllowed(ext) {
		return nil, entity.NewValidationError(op, fmt.Errorf("unsupported file type %q: allowed are .mp3, .m4a, .vtt, .txt", ext))
	}

	if err := os.MkdirAll(u.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(u.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		return nil, fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("failed to close upload file: %w", err)
	}

	session.SetSource(path, name)

	if err := u.storage.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Transcribe runs speech-to-text on the session's source artifact,
// persists the transcript next to the outputs directory and then chains
// straight into summarization. A transcript that was produced before the
// chained summarization failed is kept; the error is still reported.
func (u *usecase) Transcribe(ctx context.Context, id string) (*entity.Session, error) {
	const op = "session.transcribe"

	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.SourcePath == "" {
		return nil, entity.NewValidationError(op, fmt.Errorf("no source artifact acquired"))
	}
	if _, err := os.Stat(session.SourcePath); err != nil {
		return nil, entity.NewValidationError(op, fmt.Errorf("invalid file path, please re-upload: %w", err))
	}

	text, err := u.transcriber.Transcribe(ctx, session.SourcePath)
	if err != nil {
		return nil, err
	}

	session.Transcript = text
	if session.Stage < entity.StageTranscribed {
		session.Stage = entity.StageTranscribed
	}

	if err := u.writeTranscript(session); err != nil {
		return nil, err
	}
	if err := u.storage.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	if _, err := u.Summarize(ctx, id); err != nil {
		return session, err
	}
	return session, nil
}

func (u *usecase) writeTranscript(session *entity.Session) error {
	if err := os.MkdirAll(u.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(u.outputDir, session.SourceName+consts.TranscriptSuffix)
	if err := os.WriteFile(path, []byte(session.Transcript), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}
	return nil
}

func (u *usecase) Summarize(ctx context.Context, id string) (*entity.Session, error) {
	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Transcript == "" {
		return nil, entity.NewValidationError("session.summarize", fmt.Errorf("no transcript available"))
	}

	summary, err := u.generator.Summarize(ctx, session.Transcript)
	if err != nil {
		return nil, err
	}

	session.Summary = summary
	if session.Stage < entity.StageSummarized {
		session.Stage = entity.StageSummarized
	}

	if err := u.storage.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (u *usecase) ScoreSentiment(ctx context.Context, id string) (*entity.Session, error) {
	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Transcript == "" || session.Summary == "" {
		return nil, entity.NewValidationError("session.sentiment", fmt.Errorf("transcript and summary are required"))
	}

	result, err := u.sentiment.Analyze(ctx, session.Transcript)
	if err != nil {
		return nil, err
	}

	session.Sentiment = result.Label
	session.SentimentConfidence = result.Confidence
	if session.Stage < entity.StageSentimentScored {
		session.Stage = entity.StageSentimentScored
	}

	if err := u.storage.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (u *usecase) GenerateSuggestions(ctx context.Context, id string) (*entity.Session, error) {
	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Transcript == "" || session.Sentiment == "" {
		return nil, entity.NewValidationError("session.suggestions", fmt.Errorf("transcript and sentiment are required"))
	}

	suggestions, err := u.generator.Suggest(ctx, session.Transcript, session.Sentiment)
	if err != nil {
		return nil, err
	}

	session.Suggestions = suggestions
	if session.Stage < entity.StageSuggested {
		session.Stage = entity.StageSuggested
	}

	if err := u.storage.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (u *usecase) TranscriptPath(ctx context.Context, id string) (string, error) {
	session, err := u.storage.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	if session.Transcript == "" || session.SourceName == "" {
		return "", entity.NewValidationError("session.transcript_path", fmt.Errorf("no transcript available"))
	}

	path := filepath.Join(u.outputDir, session.SourceName+consts.TranscriptSuffix)
	if _, err := os.Stat(path); err != nil {
		return "", entity.NewValidationError("session.transcript_path", fmt.Errorf("transcript file missing: %w", err))
	}
	return path, nil
}
