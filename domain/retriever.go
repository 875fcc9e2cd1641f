package domain

import (
	"context"
	"fmt"
)

const (
	// MinDocScore is the inclusive similarity threshold for mapping hits.
	MinDocScore = 0.60
	// SyntheticFrameworkScore is assigned to every framework hit; framework
	// store distances are not comparable with mapping scores.
	SyntheticFrameworkScore = 1.0
)

// Retrieval is the evidence gathered for one question.
type Retrieval struct {
	Vector        Embedding
	RawDocHits    int
	DocHits       []RetrievalResult
	FrameworkHits []FrameworkHit
}

// Retriever queries both corpora with a single question embedding.
type Retriever struct {
	embedder   EmbeddingClient
	mappings   MappingStore
	frameworks FrameworkStore
}

// NewRetriever creates a new Retriever. frameworks may be nil, in which
// case no framework hits are returned.
func NewRetriever(embedder EmbeddingClient, mappings MappingStore, frameworks FrameworkStore) *Retriever {
	return &Retriever{embedder: embedder, mappings: mappings, frameworks: frameworks}
}

// Retrieve embeds question once and reuses the vector for both stores.
// Mapping hits scoring below MinDocScore are dropped; framework hits are
// capped at kFramework and scored SyntheticFrameworkScore.
func (r *Retriever) Retrieve(ctx context.Context, question string, kDocs, kFramework int, requiredTags []string) (*Retrieval, error) {
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	raw, err := r.mappings.Query(ctx, question, vec, kDocs)
	if err != nil {
		return nil, fmt.Errorf("query mapping corpus: %w", err)
	}
	docs := FilterByScore(raw, MinDocScore)

	fw := []FrameworkHit{}
	if r.frameworks != nil && kFramework > 0 {
		if requiredTags == nil {
			requiredTags = []string{}
		}
		symbols, err := r.frameworks.RetrieveFrameworkSymbols(ctx, question, vec, kFramework, requiredTags)
		if err != nil {
			return nil, fmt.Errorf("query framework corpus: %w", err)
		}
		for i, s := range symbols {
			if i >= kFramework {
				break
			}
			fw = append(fw, FrameworkHit{Symbol: s, Score: SyntheticFrameworkScore})
		}
	}

	return &Retrieval{
		Vector:        vec,
		RawDocHits:    len(raw),
		DocHits:       docs,
		FrameworkHits: fw,
	}, nil
}

// FilterByScore keeps hits with Score >= min, in order. It never returns nil.
func FilterByScore(hits []RetrievalResult, min float64) []RetrievalResult {
	out := make([]RetrievalResult, 0, len(hits))
	for _, h := range hits {
		if h.Score >= min {
			out = append(out, h)
		}
	}
	return out
}
