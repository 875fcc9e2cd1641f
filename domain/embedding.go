package domain

import "context"

// Embedding represents a numerical vector representation of text.
type Embedding []float32

// EmbeddingClient defines the interface for generating embeddings from text.
type EmbeddingClient interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) (Embedding, error)
	// EmbedBatch generates embeddings for the given texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}
