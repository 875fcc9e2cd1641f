package application

import (
	"context"
	"sync"
	"time"

	"github.com/andratr/bmtool1/domain"
)

type fakePairReader struct {
	pairs []domain.SourcePair
	err   error
	calls int
}

func (f *fakePairReader) DiscoverPairs(context.Context, string) ([]domain.SourcePair, error) {
	f.calls++
	return f.pairs, f.err
}

type fakeExtractor struct {
	blocks map[string][]domain.Block
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]domain.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.blocks[path], nil
}

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	texts []string
	err   error
}

func (f *countingEmbedder) Embed(_ context.Context, text string) (domain.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return domain.Embedding{float32(len(text)), 1}, nil
}

func (f *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, 0, len(texts))
	for _, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type recordingMappingStore struct {
	ensureCalls  int
	upsertCalls  int
	lastMappings []domain.BlockMapping
	lastVectors  []domain.Embedding
	upsertErr    error
}

func (f *recordingMappingStore) EnsureSchema(context.Context) error {
	f.ensureCalls++
	return nil
}

func (f *recordingMappingStore) UpsertMappings(_ context.Context, m []domain.BlockMapping, v []domain.Embedding) error {
	f.upsertCalls++
	f.lastMappings = m
	f.lastVectors = v
	return f.upsertErr
}

func (f *recordingMappingStore) Query(context.Context, string, domain.Embedding, int) ([]domain.RetrievalResult, error) {
	return nil, nil
}

type recordingFrameworkStore struct {
	ensureCalls int
	upsertCalls int
	lastSymbols []domain.FrameworkSymbol
	lastVectors []domain.Embedding
}

func (f *recordingFrameworkStore) EnsureSchema(context.Context) error {
	f.ensureCalls++
	return nil
}

func (f *recordingFrameworkStore) UpsertFrameworkSymbols(_ context.Context, s []domain.FrameworkSymbol, v []domain.Embedding) error {
	f.upsertCalls++
	f.lastSymbols = s
	f.lastVectors = v
	return nil
}

func (f *recordingFrameworkStore) RetrieveFrameworkSymbols(context.Context, string, domain.Embedding, int, []string) ([]domain.FrameworkSymbol, error) {
	return nil, nil
}

type fakeScanner struct {
	symbols      []domain.FrameworkSymbol
	lastPackages []string
}

func (f *fakeScanner) Scan(_ context.Context, _ string, basePackages []string) ([]domain.FrameworkSymbol, error) {
	f.lastPackages = basePackages
	return f.symbols, nil
}

type fakeExperimentStore struct {
	byDate     []domain.Experiment
	byModels   []domain.Experiment
	lastFrom   time.Time
	lastTo     time.Time
	lastEmb    string
	lastLLM    string
	dateCalls  int
	modelCalls int
}

func (f *fakeExperimentStore) UpsertExperiment(context.Context, domain.Experiment) (int64, error) {
	return 0, nil
}

func (f *fakeExperimentStore) ListByDateRange(_ context.Context, from, to time.Time) ([]domain.Experiment, error) {
	f.dateCalls++
	f.lastFrom, f.lastTo = from, to
	return f.byDate, nil
}

func (f *fakeExperimentStore) ListByModels(_ context.Context, emb, llm string) ([]domain.Experiment, error) {
	f.modelCalls++
	f.lastEmb, f.lastLLM = emb, llm
	return f.byModels, nil
}

func (f *fakeExperimentStore) FindByID(_ context.Context, id int64) (domain.Experiment, error) {
	for _, e := range f.byDate {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Experiment{}, domain.ErrNotFound
}
