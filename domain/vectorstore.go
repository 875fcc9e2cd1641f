package domain

import "context"

// MappingStore holds the embedded block-mapping corpus.
type MappingStore interface {
	// EnsureSchema creates the backing collection if it does not exist.
	EnsureSchema(ctx context.Context) error
	// UpsertMappings writes mappings with their vectors in one request.
	// vectors[i] belongs to mappings[i].
	UpsertMappings(ctx context.Context, mappings []BlockMapping, vectors []Embedding) error
	// Query returns the k nearest mappings to vector.
	Query(ctx context.Context, text string, vector Embedding, k int) ([]RetrievalResult, error)
}

// FrameworkStore holds the embedded framework-API corpus.
type FrameworkStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertFrameworkSymbols(ctx context.Context, symbols []FrameworkSymbol, vectors []Embedding) error
	// RetrieveFrameworkSymbols returns up to k symbols near vector. When
	// requiredTags is non-empty only symbols sharing at least one tag are
	// considered.
	RetrieveFrameworkSymbols(ctx context.Context, text string, vector Embedding, k int, requiredTags []string) ([]FrameworkSymbol, error)
}
