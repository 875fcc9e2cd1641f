package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(id string, score float64) RetrievalResult {
	return RetrievalResult{Mapping: BlockMapping{PairID: id}, Score: score}
}

func TestFilterByScore_InclusiveThreshold(t *testing.T) {
	hits := []RetrievalResult{hit("a", 0.60), hit("b", 0.599999), hit("c", 0.91), hit("d", 0.1)}

	kept := FilterByScore(hits, MinDocScore)

	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Mapping.PairID)
	assert.Equal(t, "c", kept[1].Mapping.PairID)
}

func TestFilterByScore_NilIsEmpty(t *testing.T) {
	kept := FilterByScore(nil, MinDocScore)
	assert.NotNil(t, kept)
	assert.Empty(t, kept)
}

func TestRetrieve_EmbedsOnceAndReusesVector(t *testing.T) {
	emb := &fakeEmbedder{}
	docs := &fakeMappingStore{hits: []RetrievalResult{hit("a", 0.8), hit("b", 0.2)}}
	fw := &fakeFrameworkStore{symbols: []FrameworkSymbol{
		{DeclaringType: "x.Money", SymbolID: "Money#zero"},
		{DeclaringType: "x.Money", SymbolID: "Money#parse"},
		{DeclaringType: "x.Dates", SymbolID: "Dates#between"},
	}}
	r := NewRetriever(emb, docs, fw)

	got, err := r.Retrieve(context.Background(), "how do I map money?", 5, 2, []string{"money"})

	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, docs.queryCalls)
	assert.Equal(t, 5, docs.lastK)
	assert.Equal(t, 1, fw.calls)
	assert.Equal(t, []string{"money"}, fw.lastTags)

	assert.Equal(t, 2, got.RawDocHits)
	require.Len(t, got.DocHits, 1)
	assert.Equal(t, "a", got.DocHits[0].Mapping.PairID)

	require.Len(t, got.FrameworkHits, 2)
	for _, h := range got.FrameworkHits {
		assert.Equal(t, SyntheticFrameworkScore, h.Score)
	}
}

func TestRetrieve_NilStoreResultsAreEmpty(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeMappingStore{}, &fakeFrameworkStore{})

	got, err := r.Retrieve(context.Background(), "q", 3, 3, nil)

	require.NoError(t, err)
	assert.NotNil(t, got.DocHits)
	assert.NotNil(t, got.FrameworkHits)
	assert.Empty(t, got.DocHits)
	assert.Empty(t, got.FrameworkHits)
}

func TestRetrieve_EmbedErrorStopsBeforeQueries(t *testing.T) {
	docs := &fakeMappingStore{}
	r := NewRetriever(&fakeEmbedder{err: errBoom}, docs, nil)

	_, err := r.Retrieve(context.Background(), "q", 3, 3, nil)

	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, docs.queryCalls)
}
