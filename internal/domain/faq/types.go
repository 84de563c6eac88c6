package faq

import (
	"time"

	"github.com/yanqian/faqbot/pkg/metrics"
)

// Entry is one curated question/answer row. Question is unique in the store.
type Entry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Source identifies which tier produced an answer.
type Source string

const (
	// SourceKNN answers came from the FAQ table.
	SourceKNN Source = "knn"
	// SourceGenerative answers came from the retrieval-augmented model.
	SourceGenerative Source = "generative"
	// SourceGenerativeUngrounded is a generative reply that only states the documents lack the answer.
	SourceGenerativeUngrounded Source = "generative_ungrounded"
	// SourceUnavailable marks fixed fallback messages.
	SourceUnavailable Source = "unavailable"
)

// IsGenerative reports whether the model produced the text.
func (s Source) IsGenerative() bool {
	return s == SourceGenerative || s == SourceGenerativeUngrounded
}

// Outcome is the result of one selection.
type Outcome struct {
	Answer          string
	Source          Source
	Distance        float64
	MatchedQuestion string
	Usage           *metrics.TokenUsage
}

// Mode selects how a chat request is routed.
type Mode string

const (
	// ModeNormal tries the FAQ table first.
	ModeNormal Mode = "normal"
	// ModeRegenerate skips the FAQ table and always asks the model.
	ModeRegenerate Mode = "regenerate"
)

// ChatRequest is the caller-facing request.
type ChatRequest struct {
	Message string `json:"message"`
	Mode    Mode   `json:"mode"`
}

// ChatResponse is returned to the HTTP transport.
type ChatResponse struct {
	Reply           string              `json:"reply"`
	Model           Source              `json:"model"`
	Distance        *float64            `json:"distance,omitempty"`
	MatchedQuestion string              `json:"matchedQuestion,omitempty"`
	DurationMs      int64               `json:"durationMs"`
	TokenUsage      *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// TrendingQuery represents a frequently asked question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// RebuildReport describes a published index snapshot.
type RebuildReport struct {
	Entries    int   `json:"entries"`
	Vocabulary int   `json:"vocabulary"`
	DurationMs int64 `json:"durationMs"`
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// GenerateReport summarizes a synthetic generation run.
type GenerateReport struct {
	Requested int     `json:"requested"`
	Generated int     `json:"generated"`
	Attempts  int     `json:"attempts"`
	Entries   []Entry `json:"entries"`
}

// IndexStats describes the published snapshot; zero values mean no index.
type IndexStats struct {
	Entries    int `json:"entries"`
	Vocabulary int `json:"vocabulary"`
}
