package domain

import (
	"context"
	"errors"
	"time"
)

type fakeEmbedder struct {
	calls  int
	texts  []string
	vector Embedding
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (Embedding, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return Embedding{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, 0, len(texts))
	for _, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type fakeMappingStore struct {
	hits       []RetrievalResult
	queryCalls int
	lastK      int
	err        error
}

func (f *fakeMappingStore) EnsureSchema(context.Context) error { return nil }

func (f *fakeMappingStore) UpsertMappings(context.Context, []BlockMapping, []Embedding) error {
	return nil
}

func (f *fakeMappingStore) Query(_ context.Context, _ string, _ Embedding, k int) ([]RetrievalResult, error) {
	f.queryCalls++
	f.lastK = k
	return f.hits, f.err
}

type fakeFrameworkStore struct {
	symbols  []FrameworkSymbol
	calls    int
	lastTags []string
}

func (f *fakeFrameworkStore) EnsureSchema(context.Context) error { return nil }

func (f *fakeFrameworkStore) UpsertFrameworkSymbols(context.Context, []FrameworkSymbol, []Embedding) error {
	return nil
}

func (f *fakeFrameworkStore) RetrieveFrameworkSymbols(_ context.Context, _ string, _ Embedding, _ int, tags []string) ([]FrameworkSymbol, error) {
	f.calls++
	f.lastTags = tags
	return f.symbols, nil
}

type fakeChat struct {
	calls      int
	lastPrompt string
	lastModel  string
	result     ChatResult
	err        error
}

func (f *fakeChat) Chat(ctx context.Context, prompt, model string) (string, error) {
	res, err := f.ChatWithUsage(ctx, prompt, model)
	return res.Text, err
}

func (f *fakeChat) ChatWithUsage(_ context.Context, prompt, model string) (ChatResult, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastModel = model
	return f.result, f.err
}

type fakeExperimentStore struct {
	saved []Experiment
	err   error
}

func (f *fakeExperimentStore) UpsertExperiment(_ context.Context, e Experiment) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, e)
	return int64(len(f.saved)), nil
}

func (f *fakeExperimentStore) ListByDateRange(context.Context, time.Time, time.Time) ([]Experiment, error) {
	return f.saved, nil
}

func (f *fakeExperimentStore) ListByModels(context.Context, string, string) ([]Experiment, error) {
	return f.saved, nil
}

func (f *fakeExperimentStore) FindByID(_ context.Context, id int64) (Experiment, error) {
	if id < 1 || int(id) > len(f.saved) {
		return Experiment{}, ErrNotFound
	}
	return f.saved[id-1], nil
}

var errBoom = errors.New("boom")
