package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/andratr/bmtool1/domain"

	"google.golang.org/genai"
)

// GeminiEmbeddingClient generates embeddings using Google's Gemini API.
type GeminiEmbeddingClient struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbeddingClient creates a new Gemini embedding client.
func NewGeminiEmbeddingClient(ctx context.Context, apiKey, model string) (*GeminiEmbeddingClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiEmbeddingClient{client: client, model: model}, nil
}

// Embed generates the embedding of a single text.
func (c *GeminiEmbeddingClient) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch generates embeddings for texts in one request.
func (c *GeminiEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := c.client.Models.EmbedContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("mismatch between number of texts (%d) and embeddings (%d)", len(texts), len(result.Embeddings))
	}

	out := make([]domain.Embedding, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = domain.Embedding(emb.Values)
	}
	return out, nil
}
