package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/andratr/bmtool1/domain"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenAIClient implements domain.ChatClient for OpenAI and any
// OpenAI-compatible endpoint.
type OpenAIClient struct {
	client       *openai.Client
	defaultModel string
	name         string
}

// NewOpenAIClient creates a chat client for the OpenAI API.
func NewOpenAIClient(apiKey, defaultModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	if defaultModel == "" {
		defaultModel = openai.GPT4oMini
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), defaultModel: defaultModel, name: "openai"}, nil
}

// NewOpenRouterClient creates a chat client for OpenRouter, which speaks
// the OpenAI chat completions protocol.
func NewOpenRouterClient(apiKey, baseURL, defaultModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openrouter api key is not set")
	}
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), defaultModel: defaultModel, name: "openrouter"}, nil
}

// Chat sends prompt as a single user message and returns the reply text.
func (c *OpenAIClient) Chat(ctx context.Context, prompt, model string) (string, error) {
	res, err := c.ChatWithUsage(ctx, prompt, model)
	return res.Text, err
}

// ChatWithUsage is Chat that also reports prompt and completion tokens.
func (c *OpenAIClient) ChatWithUsage(ctx context.Context, prompt, model string) (domain.ChatResult, error) {
	if model == "" {
		model = c.defaultModel
	}
	if model == "" {
		return domain.ChatResult{}, fmt.Errorf("%w: %s needs an llm model", domain.ErrInvalidRequest, c.name)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return domain.ChatResult{}, fmt.Errorf("%s chat completion: no choices returned", c.name)
	}

	return domain.ChatResult{
		Text:  resp.Choices[0].Message.Content,
		Usage: tokenUsage(int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens)),
	}, nil
}
