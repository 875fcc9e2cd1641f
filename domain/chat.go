package domain

import (
	"context"
	"fmt"
	"sort"
)

// Usage is the token accounting reported by a model call. Either count may
// be absent when the provider does not report it.
type Usage struct {
	PromptTokens     *int `json:"promptTokens,omitempty"`
	CompletionTokens *int `json:"completionTokens,omitempty"`
}

// Total returns PromptTokens+CompletionTokens, or nil when both are absent.
func (u *Usage) Total() *int {
	if u == nil || (u.PromptTokens == nil && u.CompletionTokens == nil) {
		return nil
	}
	total := 0
	if u.PromptTokens != nil {
		total += *u.PromptTokens
	}
	if u.CompletionTokens != nil {
		total += *u.CompletionTokens
	}
	return &total
}

// ChatResult is the text produced by a model call plus optional usage.
type ChatResult struct {
	Text  string
	Usage *Usage
}

// ChatClient is a single LLM provider.
type ChatClient interface {
	// Chat sends prompt to model and returns the answer text.
	Chat(ctx context.Context, prompt, model string) (string, error)
	// ChatWithUsage is Chat that also reports token usage when available.
	ChatWithUsage(ctx context.Context, prompt, model string) (ChatResult, error)
}

// ProviderRegistry maps provider ids to chat clients. It is built once at
// startup and only read afterwards.
type ProviderRegistry struct {
	clients map[string]ChatClient
}

// NewProviderRegistry copies clients into an immutable registry.
func NewProviderRegistry(clients map[string]ChatClient) *ProviderRegistry {
	m := make(map[string]ChatClient, len(clients))
	for id, c := range clients {
		if c != nil {
			m[id] = c
		}
	}
	return &ProviderRegistry{clients: m}
}

// Get returns the client registered under id.
func (r *ProviderRegistry) Get(id string) (ChatClient, error) {
	if r != nil {
		if c, ok := r.clients[id]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidRequest, id)
}

// IDs returns the registered provider ids in sorted order.
func (r *ProviderRegistry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IntPtr is a convenience for building optional token counts.
func IntPtr(v int) *int { return &v }
