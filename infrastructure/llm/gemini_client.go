package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/andratr/bmtool1/domain"

	"google.golang.org/genai"
)

// GeminiClient implements domain.ChatClient using Google's Gemini API.
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiClient creates a new Gemini chat client.
func NewGeminiClient(ctx context.Context, apiKey, defaultModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, defaultModel: defaultModel}, nil
}

// Chat sends prompt and returns the reply text.
func (c *GeminiClient) Chat(ctx context.Context, prompt, model string) (string, error) {
	res, err := c.ChatWithUsage(ctx, prompt, model)
	return res.Text, err
}

// ChatWithUsage is Chat that also reports prompt and candidate tokens.
func (c *GeminiClient) ChatWithUsage(ctx context.Context, prompt, model string) (domain.ChatResult, error) {
	if model == "" {
		model = c.defaultModel
	}
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("gemini generate: %w", err)
	}

	var usage *domain.Usage
	if md := resp.UsageMetadata; md != nil {
		usage = tokenUsage(int64(md.PromptTokenCount), int64(md.CandidatesTokenCount))
	}
	return domain.ChatResult{Text: resp.Text(), Usage: usage}, nil
}
