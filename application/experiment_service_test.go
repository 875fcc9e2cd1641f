package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andratr/bmtool1/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func TestExperimentList_DefaultsToToday(t *testing.T) {
	store := &fakeExperimentStore{}
	svc := NewExperimentService(store)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 17, 45, 0, 0, time.UTC) }

	_, err := svc.List(context.Background(), ExperimentQuery{})

	require.NoError(t, err)
	assert.Equal(t, day(14), store.lastFrom)
	assert.Equal(t, day(14), store.lastTo)
}

func TestExperimentList_OrdersNewestFirst(t *testing.T) {
	store := &fakeExperimentStore{byDate: []domain.Experiment{
		{ID: 1, Date: day(10)},
		{ID: 5, Date: day(12)},
		{ID: 3, Date: day(12)},
		{ID: 2, Date: day(11)},
	}}
	from, to := day(10), day(12)

	got, err := NewExperimentService(store).List(context.Background(), ExperimentQuery{From: &from, To: &to})

	require.NoError(t, err)
	ids := make([]int64, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{5, 3, 2, 1}, ids)
}

func TestExperimentList_ByModels(t *testing.T) {
	store := &fakeExperimentStore{}

	_, err := NewExperimentService(store).List(context.Background(), ExperimentQuery{EmbeddingModel: "nomic", LLMModel: "llama3"})

	require.NoError(t, err)
	assert.Equal(t, 1, store.modelCalls)
	assert.Zero(t, store.dateCalls)
	assert.Equal(t, "nomic", store.lastEmb)
	assert.Equal(t, "llama3", store.lastLLM)
}

func TestExperimentList_InvalidQueries(t *testing.T) {
	svc := NewExperimentService(&fakeExperimentStore{})
	from, to := day(12), day(10)

	_, err := svc.List(context.Background(), ExperimentQuery{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.List(context.Background(), ExperimentQuery{From: &from, LLMModel: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
