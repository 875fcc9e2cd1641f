package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andratr/bmtool1/domain"
)

// Asker answers a single migration question.
type Asker interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
}

// ChatbotService runs an interactive question loop on top of the
// orchestrator. Every line the user enters becomes one Ask call with the
// configured defaults.
type ChatbotService struct {
	asker    Asker
	input    domain.UserMessageProvider
	out      io.Writer
	defaults domain.AskRequest
}

// NewChatbotService creates a new ChatbotService.
//
// Args:
//
//	asker: Answers each question, usually a *domain.Orchestrator.
//	input: The source of user questions.
//	out: Where answers are printed.
//	defaults: Retrieval depths, provider, models and technique applied to
//	  every question.
//
// Returns:
//
//	A new ChatbotService.
func NewChatbotService(asker Asker, input domain.UserMessageProvider, out io.Writer, defaults domain.AskRequest) *ChatbotService {
	return &ChatbotService{
		asker:    asker,
		input:    input,
		out:      out,
		defaults: defaults,
	}
}

// CreateConsoleUserMessageProvider creates a new UserMessageProvider that reads messages from the console.
func CreateConsoleUserMessageProvider() domain.UserMessageProvider {
	return NewReaderUserMessageProvider(os.Stdin, os.Stdout)
}

// NewReaderUserMessageProvider reads one question per line from r and
// writes the prompt marker to w.
func NewReaderUserMessageProvider(r io.Reader, w io.Writer) domain.UserMessageProvider {
	return &ConsoleUserMessageProvider{scanner: bufio.NewScanner(r), prompt: w}
}

// ConsoleUserMessageProvider provides user messages from the console.
// It uses a bufio.Scanner to read input from the standard input.
type ConsoleUserMessageProvider struct {
	scanner *bufio.Scanner
	prompt  io.Writer
}

// GetUserMessage reads a message from the user via the console.
// It returns false once the input is exhausted.
func (p *ConsoleUserMessageProvider) GetUserMessage() (string, bool) {
	fmt.Fprint(p.prompt, "\x1b[95mYou\x1b[0m: ")
	if !p.scanner.Scan() {
		return "", false
	}
	return p.scanner.Text(), true
}

// StartChatbot runs the loop until the input ends or ctx is cancelled.
// Invalid questions are reported and the loop continues; any other error
// ends the session.
func (s *ChatbotService) StartChatbot(ctx context.Context) error {
	fmt.Fprintf(s.out, "Ask migration questions via %s (use 'ctrl-c' to quit)\n", s.defaults.Provider)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, ok := s.input.GetUserMessage()
		if !ok {
			return nil
		}
		if strings.TrimSpace(msg) == "" {
			continue
		}

		req := s.defaults
		req.Question = msg
		ans, err := s.asker.Ask(ctx, req)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidRequest) {
				fmt.Fprintf(s.out, "\x1b[91mError\x1b[0m: %v\n", err)
				continue
			}
			return err
		}
		fmt.Fprintf(s.out, "\x1b[93mAssistant\x1b[0m: %s\n", ans.Text)
	}
}
