package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateGrams_TokenPath(t *testing.T) {
	c := NewCarbonEstimator(DefaultCarbonConfig())

	// 1000 tokens at 2.0 Wh/ktok, PUE 1.2, 0.35 kg/kWh.
	assert.InDelta(t, 0.84, c.EstimateGrams(IntPtr(600), IntPtr(400), 5000, "anthropic", "claude-3-haiku"), 1e-9)
	assert.InDelta(t, 1.26, c.EstimateGrams(IntPtr(1000), nil, 5000, "openai", "gpt-4o-mini"), 1e-9)
	assert.InDelta(t, 0.63, c.EstimateGrams(nil, IntPtr(1000), 5000, "ollama", "phi3"), 1e-9)
	assert.InDelta(t, 0.63, c.EstimateGrams(IntPtr(1000), nil, 5000, "openrouter", "meta-llama/llama-3-8b"), 1e-9)
}

func TestEstimateGrams_TimePathWithoutTokens(t *testing.T) {
	c := NewCarbonEstimator(DefaultCarbonConfig())

	// One hour at 200 W is 200 Wh.
	assert.InDelta(t, 84.0, c.EstimateGrams(nil, nil, 3_600_000, "gemini", "gemini-2.0-flash"), 1e-9)
	assert.InDelta(t, 84.0, c.EstimateGrams(IntPtr(0), IntPtr(0), 3_600_000, "gemini", "x"), 1e-9)
}

func TestEstimateGrams_NeverNegative(t *testing.T) {
	c := NewCarbonEstimator(DefaultCarbonConfig())
	assert.Zero(t, c.EstimateGrams(nil, nil, -50, "p", "m"))
	assert.Zero(t, c.EstimateGrams(IntPtr(-10), IntPtr(0), -50, "p", "m"))
}

func TestEstimateGrams_ExactProviderModelOverride(t *testing.T) {
	c := NewCarbonEstimator(CarbonConfig{WhPerKTokens: map[string]float64{"openai:gpt-4o": 10}})

	assert.InDelta(t, 4.2, c.EstimateGrams(IntPtr(1000), nil, 0, "openai", "gpt-4o"), 1e-9)
	assert.InDelta(t, 1.26, c.EstimateGrams(IntPtr(1000), nil, 0, "openai", "gpt-4o-mini"), 1e-9)
}

func TestModelFamily(t *testing.T) {
	cases := []struct{ provider, model, want string }{
		{"ollama", "anything", "llama"},
		{"openrouter", "openai/o3-mini", "gpt"},
		{"openai", "GPT-4o", "gpt"},
		{"openrouter", "mistralai/mistral-7b", "llama"},
		{"openrouter", "qwen/qwen-2", "llama"},
		{"anthropic", "claude-3-5-sonnet", "default"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, modelFamily(tc.provider, tc.model), tc.model)
	}
}
