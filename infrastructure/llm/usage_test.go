package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsage(t *testing.T) {
	assert.Nil(t, tokenUsage(0, 0))

	u := tokenUsage(120, 0)
	require.NotNil(t, u)
	assert.Equal(t, 120, *u.PromptTokens)
	assert.Nil(t, u.CompletionTokens)
	assert.Equal(t, 120, *u.Total())

	u = tokenUsage(10, 5)
	assert.Equal(t, 15, *u.Total())
}

func TestGenerationInfoUsage(t *testing.T) {
	u := generationInfoUsage(map[string]any{"PromptTokens": 31, "CompletionTokens": float64(9), "TotalTokens": 40})
	require.NotNil(t, u)
	assert.Equal(t, 31, *u.PromptTokens)
	assert.Equal(t, 9, *u.CompletionTokens)

	assert.Nil(t, generationInfoUsage(nil))
	assert.Nil(t, generationInfoUsage(map[string]any{"PromptTokens": "x"}))
}
