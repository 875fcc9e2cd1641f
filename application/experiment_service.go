package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andratr/bmtool1/domain"
)

// ExperimentQuery filters the experiment listing. Either a date range or a
// pair of model names may be given; with neither, today's runs are listed.
type ExperimentQuery struct {
	From           *time.Time
	To             *time.Time
	EmbeddingModel string
	LLMModel       string
}

// ExperimentService reads recorded experiments.
type ExperimentService struct {
	store domain.ExperimentStore
	now   func() time.Time
}

// NewExperimentService creates a new ExperimentService.
func NewExperimentService(store domain.ExperimentStore) *ExperimentService {
	return &ExperimentService{store: store, now: time.Now}
}

// List returns the experiments matching q, newest date first and, within
// a date, highest id first.
func (s *ExperimentService) List(ctx context.Context, q ExperimentQuery) ([]domain.Experiment, error) {
	var (
		out []domain.Experiment
		err error
	)

	byModel := strings.TrimSpace(q.EmbeddingModel) != "" || strings.TrimSpace(q.LLMModel) != ""
	switch {
	case byModel && (q.From != nil || q.To != nil):
		return nil, fmt.Errorf("%w: filter by date range or by models, not both", domain.ErrInvalidRequest)
	case byModel:
		out, err = s.store.ListByModels(ctx, q.EmbeddingModel, q.LLMModel)
	default:
		today := domain.DateOnly(s.now())
		from, to := today, today
		if q.From != nil {
			from = domain.DateOnly(*q.From)
		}
		if q.To != nil {
			to = domain.DateOnly(*q.To)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("%w: 'to' is before 'from'", domain.ErrInvalidRequest)
		}
		out, err = s.store.ListByDateRange(ctx, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].Date.Equal(out[b].Date) {
			return out[a].Date.After(out[b].Date)
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}

// Get returns one experiment by id.
func (s *ExperimentService) Get(ctx context.Context, id int64) (domain.Experiment, error) {
	if id <= 0 {
		return domain.Experiment{}, fmt.Errorf("%w: experiment id must be positive", domain.ErrInvalidRequest)
	}
	return s.store.FindByID(ctx, id)
}
