package experimentstore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/andratr/bmtool1/domain"
)

// ExperimentRow is the persisted form of domain.Experiment. The natural key
// (run_date, prompt_hash, embedding_model, llm_model, technique, k_fw,
// k_doc) is unique so a repeated run updates its row.
type ExperimentRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	RunDate        time.Time `gorm:"type:date;not null;uniqueIndex:ux_experiments_natural_key,priority:1;index:idx_experiments_run_date,sort:desc"`
	PromptHash     string    `gorm:"type:char(64);not null;uniqueIndex:ux_experiments_natural_key,priority:2"`
	EmbeddingModel string    `gorm:"type:text;not null;uniqueIndex:ux_experiments_natural_key,priority:3;index:idx_experiments_models,priority:1"`
	LLMModel       string    `gorm:"column:llm_model;type:text;not null;uniqueIndex:ux_experiments_natural_key,priority:4;index:idx_experiments_models,priority:2"`
	Technique      string    `gorm:"type:text;not null;uniqueIndex:ux_experiments_natural_key,priority:5"`
	KFramework     int       `gorm:"column:k_fw;not null;uniqueIndex:ux_experiments_natural_key,priority:6"`
	KDocs          int       `gorm:"column:k_doc;not null;uniqueIndex:ux_experiments_natural_key,priority:7"`

	Prompt        string `gorm:"type:text;not null"`
	FrameworkHits int    `gorm:"column:fw_hits_count;not null;default:0"`
	DocHits       int    `gorm:"column:doc_hits_count;not null;default:0"`

	Quality          sql.NullFloat64 `gorm:"column:metric1_ccc"`
	LatencyMs        sql.NullFloat64 `gorm:"column:metric2_time_ms"`
	CO2Grams         sql.NullFloat64 `gorm:"column:metric3_co2_g"`
	PromptTokens     sql.NullInt64   `gorm:"column:prompt_tok"`
	CompletionTokens sql.NullInt64   `gorm:"column:completion_tok"`
	TotalTokens      sql.NullInt64   `gorm:"column:total_tok"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ExperimentRow) TableName() string { return "experiments" }

// PromptHash is the hex sha256 of a prompt, used in the natural key
// instead of the unbounded prompt text.
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func toRow(e domain.Experiment) ExperimentRow {
	return ExperimentRow{
		ID:               e.ID,
		RunDate:          domain.DateOnly(e.Date),
		PromptHash:       PromptHash(e.Prompt),
		EmbeddingModel:   e.EmbeddingModel,
		LLMModel:         e.LLMModel,
		Technique:        e.Technique,
		KFramework:       e.KFramework,
		KDocs:            e.KDocs,
		Prompt:           e.Prompt,
		FrameworkHits:    e.FrameworkHits,
		DocHits:          e.DocHits,
		Quality:          nullFloat(e.Quality),
		LatencyMs:        nullFloat(e.LatencyMs),
		CO2Grams:         nullFloat(e.CO2Grams),
		PromptTokens:     nullInt(e.PromptTokens),
		CompletionTokens: nullInt(e.CompletionTokens),
		TotalTokens:      nullInt(e.TotalTokens),
	}
}

func (r ExperimentRow) toDomain() domain.Experiment {
	return domain.Experiment{
		ID:               r.ID,
		Date:             domain.DateOnly(r.RunDate),
		FrameworkHits:    r.FrameworkHits,
		DocHits:          r.DocHits,
		KFramework:       r.KFramework,
		KDocs:            r.KDocs,
		Prompt:           r.Prompt,
		EmbeddingModel:   r.EmbeddingModel,
		LLMModel:         r.LLMModel,
		Quality:          floatPtr(r.Quality),
		LatencyMs:        floatPtr(r.LatencyMs),
		CO2Grams:         floatPtr(r.CO2Grams),
		PromptTokens:     intPtr(r.PromptTokens),
		CompletionTokens: intPtr(r.CompletionTokens),
		TotalTokens:      intPtr(r.TotalTokens),
		Technique:        r.Technique,
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return domain.IntPtr(int(v.Int64))
}
