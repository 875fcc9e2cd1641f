package llm

import (
	"context"
	"fmt"

	"github.com/andratr/bmtool1/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaClient implements domain.ChatClient against a local Ollama server.
type OllamaClient struct {
	llm *ollama.LLM
}

// NewOllamaClient connects to the Ollama server at serverURL.
func NewOllamaClient(serverURL, defaultModel string) (*OllamaClient, error) {
	opts := []ollama.Option{ollama.WithModel(defaultModel)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaClient{llm: l}, nil
}

// Chat sends prompt as a single human message and returns the reply text.
func (c *OllamaClient) Chat(ctx context.Context, prompt, model string) (string, error) {
	res, err := c.ChatWithUsage(ctx, prompt, model)
	return res.Text, err
}

// ChatWithUsage is Chat that also reports the token counts Ollama returns.
func (c *OllamaClient) ChatWithUsage(ctx context.Context, prompt, model string) (domain.ChatResult, error) {
	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}

	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return domain.ChatResult{}, fmt.Errorf("ollama generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ChatResult{}, fmt.Errorf("ollama generate: no choices returned")
	}

	choice := resp.Choices[0]
	return domain.ChatResult{Text: choice.Content, Usage: generationInfoUsage(choice.GenerationInfo)}, nil
}
