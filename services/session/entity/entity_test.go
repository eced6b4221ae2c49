package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenExpired(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		now     time.Time
		expired bool
	}{
		{"no token", "", issued, true},
		{"fresh token", "tok", issued.Add(10 * time.Minute), false},
		{"exactly one hour is still valid", "tok", issued.Add(time.Hour), false},
		{"one second past the window", "tok", issued.Add(time.Hour + time.Second), true},
		{"well past the window", "tok", issued.Add(3 * time.Hour), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &Session{AccessToken: tc.token, TokenIssuedAt: issued}
			assert.Equal(t, tc.expired, s.TokenExpired(tc.now))
		})
	}
}

func TestSetSourceInvalidatesDerivedFields(t *testing.T) {
	s := &Session{
		SourcePath:          "recordings/old.mp3",
		SourceName:          "old.mp3",
		Transcript:          "old transcript",
		Summary:             "old summary",
		Sentiment:           SentimentPositive,
		SentimentConfidence: 0.81,
		Suggestions:         "old suggestions",
		Stage:               StageSuggested,
	}

	s.SetSource("recordings/new.mp3", "new.mp3")

	assert.Equal(t, "recordings/new.mp3", s.SourcePath)
	assert.Equal(t, "new.mp3", s.SourceName)
	assert.Empty(t, s.Transcript)
	assert.Empty(t, s.Summary)
	assert.Empty(t, s.Sentiment)
	assert.Zero(t, s.SentimentConfidence)
	assert.Empty(t, s.Suggestions)
	assert.Equal(t, StageSourceAcquired, s.Stage)
}

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    []string
	}{
		{
			"fresh session",
			Session{},
			[]string{"upload"},
		},
		{
			"authenticated only",
			Session{AccessToken: "tok"},
			[]string{"upload", "list_recordings"},
		},
		{
			"source acquired",
			Session{SourcePath: "recordings/a.mp3"},
			[]string{"upload", "transcribe"},
		},
		{
			"transcribed",
			Session{SourcePath: "recordings/a.mp3", Transcript: "text"},
			[]string{"upload", "transcribe", "summarize"},
		},
		{
			"summarized",
			Session{SourcePath: "recordings/a.mp3", Transcript: "text", Summary: "sum"},
			[]string{"upload", "transcribe", "summarize", "sentiment"},
		},
		{
			"sentiment scored",
			Session{SourcePath: "recordings/a.mp3", Transcript: "text", Summary: "sum", Sentiment: SentimentNeutral},
			[]string{"upload", "transcribe", "summarize", "sentiment", "suggestions"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.session.AvailableActions())
		})
	}
}

func TestSentimentByIndex(t *testing.T) {
	for i, want := range []SentimentLabel{SentimentNegative, SentimentNeutral, SentimentPositive} {
		got, err := SentimentByIndex(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := SentimentByIndex(3)
	assert.Error(t, err)
	_, err = SentimentByIndex(-1)
	assert.Error(t, err)
}

func TestRecordingDurationString(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{30, "30 minutes"},
		{0, "0 minutes"},
		{60, "1h 0m"},
		{95, "1h 35m"},
	}

	for _, tc := range tests {
		r := Recording{DurationMinutes: tc.minutes}
		assert.Equal(t, tc.want, r.DurationString())
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "new", StageNew.String())
	assert.Equal(t, "source_acquired", StageSourceAcquired.String())
	assert.Equal(t, "transcribed", StageTranscribed.String())
	assert.Equal(t, "summarized", StageSummarized.String())
	assert.Equal(t, "sentiment_scored", StageSentimentScored.String())
	assert.Equal(t, "suggestions_generated", StageSuggested.String())
}
