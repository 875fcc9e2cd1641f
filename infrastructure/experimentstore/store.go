// Package experimentstore persists orchestrated runs in PostgreSQL via GORM.
package experimentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andratr/bmtool1/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store implements domain.ExperimentStore.
type Store struct {
	DB *gorm.DB
}

// Config holds database configuration.
type Config struct {
	DSN      string          // PostgreSQL connection string
	MaxConns int             // Maximum number of open connections (default: 4)
	LogLevel logger.LogLevel // GORM log level (logger.Silent for production)
}

// NewStore connects to PostgreSQL and runs pending migrations.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("experiments dsn is not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:      logger.Default.LogMode(cfg.LogLevel),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertExperiment inserts e or, when a row with the same natural key
// exists, refreshes its counts and metrics. It returns the row id.
func (s *Store) UpsertExperiment(ctx context.Context, e domain.Experiment) (int64, error) {
	row := toRow(e)
	row.ID = 0

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "run_date"},
			{Name: "prompt_hash"},
			{Name: "embedding_model"},
			{Name: "llm_model"},
			{Name: "technique"},
			{Name: "k_fw"},
			{Name: "k_doc"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"fw_hits_count",
			"doc_hits_count",
			"metric2_time_ms",
			"metric3_co2_g",
			"prompt_tok",
			"completion_tok",
			"total_tok",
			"updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, fmt.Errorf("upsert experiment: %w", err)
	}
	return row.ID, nil
}

// ListByDateRange returns experiments with from <= run_date <= to, newest
// first.
func (s *Store) ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.Experiment, error) {
	var rows []ExperimentRow
	err := s.DB.WithContext(ctx).
		Where("run_date BETWEEN ? AND ?", domain.DateOnly(from), domain.DateOnly(to)).
		Order("run_date DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list experiments by date: %w", err)
	}
	return toDomainList(rows), nil
}

// ListByModels returns experiments run with the given models. A blank
// model name matches any model.
func (s *Store) ListByModels(ctx context.Context, embeddingModel, llmModel string) ([]domain.Experiment, error) {
	q := s.DB.WithContext(ctx)
	if embeddingModel != "" {
		q = q.Where("embedding_model = ?", embeddingModel)
	}
	if llmModel != "" {
		q = q.Where("llm_model = ?", llmModel)
	}

	var rows []ExperimentRow
	if err := q.Order("run_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list experiments by models: %w", err)
	}
	return toDomainList(rows), nil
}

// FindByID returns one experiment or an error wrapping domain.ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id int64) (domain.Experiment, error) {
	var row ExperimentRow
	err := s.DB.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Experiment{}, fmt.Errorf("%w: experiment %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Experiment{}, fmt.Errorf("find experiment %d: %w", id, err)
	}
	return row.toDomain(), nil
}

func toDomainList(rows []ExperimentRow) []domain.Experiment {
	out := make([]domain.Experiment, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
