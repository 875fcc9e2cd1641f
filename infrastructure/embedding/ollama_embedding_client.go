package embedding

import (
	"context"
	"fmt"

	"github.com/andratr/bmtool1/domain"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbeddingClient embeds texts with a local Ollama model such as
// nomic-embed-text.
type OllamaEmbeddingClient struct {
	llm *ollama.LLM
}

// NewOllamaEmbeddingClient connects to the Ollama server at serverURL.
func NewOllamaEmbeddingClient(serverURL, model string) (*OllamaEmbeddingClient, error) {
	if model == "" {
		model = "nomic-embed-text"
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaEmbeddingClient{llm: l}, nil
}

// Embed generates the embedding of a single text.
func (c *OllamaEmbeddingClient) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch generates embeddings for texts.
func (c *OllamaEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := c.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("mismatch between number of texts (%d) and embeddings (%d)", len(texts), len(vectors))
	}
	out := make([]domain.Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = domain.Embedding(v)
	}
	return out, nil
}
