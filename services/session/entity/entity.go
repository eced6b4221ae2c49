package entity

import (
	"fmt"
	"time"
)

// Stage is how far a session has progressed through the pipeline.
// Stages are only ever entered in order; re-running a step overwrites
// its artifact without moving the session backwards.
type Stage int

const (
	StageNew Stage = iota
	StageSourceAcquired
	StageTranscribed
	StageSummarized
	StageSentimentScored
	StageSuggested
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageSourceAcquired:
		return "source_acquired"
	case StageTranscribed:
		return "transcribed"
	case StageSummarized:
		return "summarized"
	case StageSentimentScored:
		return "sentiment_scored"
	case StageSuggested:
		return "suggestions_generated"
	default:
		return "unknown"
	}
}

type SentimentLabel string

const (
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
	SentimentPositive SentimentLabel = "Positive"
)

// SentimentLabels is index-ordered to match the classifier's class order.
var SentimentLabels = []SentimentLabel{SentimentNegative, SentimentNeutral, SentimentPositive}

func SentimentByIndex(i int) (SentimentLabel, error) {
	if i < 0 || i >= len(SentimentLabels) {
		return "", fmt.Errorf("sentiment class index out of range: %d", i)
	}
	return SentimentLabels[i], nil
}

type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	AccessToken   string
	TokenIssuedAt time.Time

	SourcePath string
	SourceName string

	Transcript          string
	Summary             string
	Sentiment           SentimentLabel
	SentimentConfidence float64
	Suggestions         string

	Stage Stage
}

// TokenTTL is the locally enforced validity window for a cloud access
// token. The upstream expiry is not consulted.
const TokenTTL = time.Hour

func (s *Session) Authenticated() bool {
	return s.AccessToken != ""
}

// TokenExpired reports whether the access token's local validity window
// has passed. A token exactly TokenTTL old is still valid.
func (s *Session) TokenExpired(now time.Time) bool {
	if s.AccessToken == "" {
		return true
	}
	return now.Sub(s.TokenIssuedAt) > TokenTTL
}

// SetSource records a newly acquired source artifact and drops every
// artifact derived from the previous one.
func (s *Session) SetSource(path, name string) {
	s.SourcePath = path
	s.SourceName = name
	s.Transcript = ""
	s.Summary = ""
	s.Sentiment = ""
	s.SentimentConfidence = 0
	s.Suggestions = ""
	s.Stage = StageSourceAcquired
}

// AvailableActions lists the pipeline transitions the session can take
// next, derived from which artifacts are present.
func (s *Session) AvailableActions() []string {
	actions := []string{"upload"}
	if s.Authenticated() {
		actions = append(actions, "list_recordings")
	}
	if s.SourcePath != "" {
		actions = append(actions, "transcribe")
	}
	if s.Transcript != "" {
		actions = append(actions, "summarize")
	}
	if s.Transcript != "" && s.Summary != "" {
		actions = append(actions, "sentiment")
	}
	if s.Transcript != "" && s.Sentiment != "" {
		actions = append(actions, "suggestions")
	}
	return actions
}

// Recording is one entry of a cloud recordings listing. Listing results
// are transient and never stored on the session.
type Recording struct {
	Topic           string    `json:"topic"`
	DownloadURL     string    `json:"download_url"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (r Recording) DurationString() string {
	hours := r.DurationMinutes / 60
	minutes := r.DurationMinutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%d minutes", minutes)
}

type SentimentResult struct {
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
}
