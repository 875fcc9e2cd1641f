package domain

import (
	"context"
	"time"
)

// Experiment records one orchestrated question-answer run.
type Experiment struct {
	ID               int64     `json:"id"`
	Date             time.Time `json:"date"`
	FrameworkHits    int       `json:"fwHitsCount"`
	DocHits          int       `json:"docHitsCount"`
	KFramework       int       `json:"kFw"`
	KDocs            int       `json:"kDoc"`
	Prompt           string    `json:"prompt"`
	EmbeddingModel   string    `json:"embeddingModel"`
	LLMModel         string    `json:"llmModel"`
	Quality          *float64  `json:"metric1Ccc,omitempty"`
	LatencyMs        *float64  `json:"metric2TimeMs,omitempty"`
	CO2Grams         *float64  `json:"metric3Co2G,omitempty"`
	PromptTokens     *int      `json:"promptTok,omitempty"`
	CompletionTokens *int      `json:"completionTok,omitempty"`
	TotalTokens      *int      `json:"totalTok,omitempty"`
	Technique        string    `json:"technique"`
}

// ExperimentStore persists experiments keyed by their natural key
// (date, prompt, models, technique, k values).
type ExperimentStore interface {
	// UpsertExperiment inserts e, or updates the row with the same natural
	// key, and returns its id.
	UpsertExperiment(ctx context.Context, e Experiment) (int64, error)
	// ListByDateRange returns experiments with from <= date <= to.
	ListByDateRange(ctx context.Context, from, to time.Time) ([]Experiment, error)
	ListByModels(ctx context.Context, embeddingModel, llmModel string) ([]Experiment, error)
	FindByID(ctx context.Context, id int64) (Experiment, error)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
