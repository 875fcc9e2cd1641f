package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andratr/bmtool1/domain"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxTokens caps the completion length requested from providers
// that require an explicit limit.
const DefaultMaxTokens = 1024

// AnthropicClient is a wrapper around the Anthropic API client.
// It implements domain.ChatClient for Claude models.
type AnthropicClient struct {
	client       *anthropic.Client
	defaultModel string
	maxTokens    int64
}

// NewAnthropicClient creates a new Anthropic client.
//
// Args:
//
//	apiKey: The Anthropic API key.
//	defaultModel: The model used when a request names none.
//
// Returns:
//
//	*AnthropicClient: A pointer to the new Anthropic client.
//	error: An error if the API key is missing.
func NewAnthropicClient(apiKey, defaultModel string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is not set")
	}
	if defaultModel == "" {
		defaultModel = string(anthropic.ModelClaude3_7SonnetLatest)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicClient{
		client:       &client,
		defaultModel: defaultModel,
		maxTokens:    DefaultMaxTokens,
	}, nil
}

// Chat sends prompt as a single user message and returns the reply text.
func (a *AnthropicClient) Chat(ctx context.Context, prompt, model string) (string, error) {
	res, err := a.ChatWithUsage(ctx, prompt, model)
	return res.Text, err
}

// ChatWithUsage is Chat that also reports input and output tokens.
func (a *AnthropicClient) ChatWithUsage(ctx context.Context, prompt, model string) (domain.ChatResult, error) {
	if model == "" {
		model = a.defaultModel
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}

	return domain.ChatResult{
		Text:  sb.String(),
		Usage: tokenUsage(message.Usage.InputTokens, message.Usage.OutputTokens),
	}, nil
}
