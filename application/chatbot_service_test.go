package application

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/andratr/bmtool1/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAsker struct {
	requests []domain.AskRequest
	errs     map[string]error
}

func (a *scriptedAsker) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	a.requests = append(a.requests, req)
	if err, ok := a.errs[req.Question]; ok {
		return nil, err
	}
	return &domain.Answer{Text: "answer to " + req.Question}, nil
}

func TestChatbot_AsksEachNonBlankLineWithDefaults(t *testing.T) {
	asker := &scriptedAsker{errs: map[string]error{
		"bad": fmt.Errorf("%w: nope", domain.ErrInvalidRequest),
	}}
	var out bytes.Buffer
	input := NewReaderUserMessageProvider(strings.NewReader("first\n\n   \nbad\nsecond\n"), &bytes.Buffer{})
	defaults := domain.AskRequest{KDocs: 3, KFramework: 2, Provider: "ollama", LLMModel: "llama3", Technique: domain.TechniqueFewShot}

	err := NewChatbotService(asker, input, &out, defaults).StartChatbot(context.Background())

	require.NoError(t, err)
	require.Len(t, asker.requests, 3)
	assert.Equal(t, "first", asker.requests[0].Question)
	assert.Equal(t, "second", asker.requests[2].Question)
	assert.Equal(t, 3, asker.requests[2].KDocs)
	assert.Equal(t, domain.TechniqueFewShot, asker.requests[2].Technique)
	assert.Contains(t, out.String(), "answer to first")
	assert.Contains(t, out.String(), "nope")
	assert.Contains(t, out.String(), "answer to second")
}

func TestChatbot_StopsOnAdapterError(t *testing.T) {
	asker := &scriptedAsker{errs: map[string]error{"q": errBoom}}
	input := NewReaderUserMessageProvider(strings.NewReader("q\nnever\n"), &bytes.Buffer{})

	err := NewChatbotService(asker, input, &bytes.Buffer{}, domain.AskRequest{}).StartChatbot(context.Background())

	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, asker.requests, 1)
}
