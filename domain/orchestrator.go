package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/andratr/bmtool1/domain"

// UserMessageProvider is an interface that provides user messages.
// It is used to abstract the source of user questions, allowing the
// chat loop to receive input from the console or any other source.
type UserMessageProvider interface {
	GetUserMessage() (string, bool)
}

// AskRequest is one migration question and how to answer it.
type AskRequest struct {
	Question       string    `json:"question"`
	KDocs          int       `json:"kDocs"`
	KFramework     int       `json:"kFramework"`
	Provider       string    `json:"provider"`
	LLMModel       string    `json:"llmModel"`
	EmbeddingModel string    `json:"embeddingModel"`
	Tags           []string  `json:"tags,omitempty"`
	Technique      Technique `json:"technique"`
}

func (r AskRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Question) == "":
		return fmt.Errorf("%w: question is required", ErrInvalidRequest)
	case r.KDocs < 0 || r.KFramework < 0:
		return fmt.Errorf("%w: k values must not be negative", ErrInvalidRequest)
	case !r.Technique.Valid():
		return fmt.Errorf("%w: unknown prompting technique %q", ErrInvalidRequest, r.Technique)
	}
	return nil
}

// Answer is the model's reply with the evidence it was grounded on.
type Answer struct {
	Text          string            `json:"text"`
	DocHits       []RetrievalResult `json:"docHits"`
	FrameworkHits []FrameworkHit    `json:"frameworkHits"`
}

// Orchestrator answers migration questions by retrieving corpus evidence,
// composing a prompt, calling a model, and recording the run.
type Orchestrator struct {
	providers   *ProviderRegistry
	retriever   *Retriever
	experiments ExperimentStore
	carbon      *CarbonEstimator
	now         func() time.Time
}

// NewOrchestrator creates a new Orchestrator. experiments may be nil, in
// which case runs are not recorded.
func NewOrchestrator(providers *ProviderRegistry, retriever *Retriever, experiments ExperimentStore, carbon *CarbonEstimator) *Orchestrator {
	if carbon == nil {
		carbon = NewCarbonEstimator(DefaultCarbonConfig())
	}
	return &Orchestrator{
		providers:   providers,
		retriever:   retriever,
		experiments: experiments,
		carbon:      carbon,
		now:         time.Now,
	}
}

// Ask runs one question through retrieval, prompt composition and the
// selected model.
//
// The request and provider are validated before any network call; an
// unknown provider yields ErrInvalidRequest. Experiment persistence is
// best-effort and never fails the request.
//
// Args:
//
//	ctx: The context for the embedding, store and model calls.
//	req: The question, retrieval depths, provider, models and technique.
//
// Returns:
//
//	The model's answer followed by a "sources used" appendix, together with
//	the doc and framework hits that grounded it.
func (o *Orchestrator) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	if req.Technique == "" {
		req.Technique = TechniqueRAGStandard
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "domain.Orchestrator.Ask",
		trace.WithAttributes(
			attribute.String("provider", req.Provider),
			attribute.String("llm_model", req.LLMModel),
			attribute.String("technique", string(req.Technique)),
			attribute.Int("k_docs", req.KDocs),
			attribute.Int("k_framework", req.KFramework),
		),
	)
	defer span.End()

	answer, err := o.ask(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrInvalidRequest) {
			status = "invalid"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	asksTotal.WithLabelValues(o.providerLabel(req.Provider), techniqueLabel(req.Technique), status).Inc()
	return answer, err
}

// providerLabel keeps metric label values to the registered providers.
func (o *Orchestrator) providerLabel(id string) string {
	if _, err := o.providers.Get(id); err != nil {
		return unknownLabel
	}
	return id
}

func techniqueLabel(t Technique) string {
	if !t.Valid() {
		return unknownLabel
	}
	return string(t)
}

func (o *Orchestrator) ask(ctx context.Context, req AskRequest) (*Answer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	chat, err := o.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	start := o.now()

	retrieval, err := o.retriever.Retrieve(ctx, req.Question, req.KDocs, req.KFramework, req.Tags)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("raw_doc_hits", retrieval.RawDocHits).
		Int("doc_hits", len(retrieval.DocHits)).
		Int("framework_hits", len(retrieval.FrameworkHits)).
		Msg("retrieved evidence")

	prompt := ComposePrompt(req.Technique, req.Question, retrieval.DocHits, retrieval.FrameworkHits, PerSnippetCharLimit, DocPromptLimit)
	log.Debug().
		Int("chars", len(prompt)).
		Str("technique", string(req.Technique)).
		Msg("composed prompt:\n" + prompt)

	res, err := chat.ChatWithUsage(ctx, prompt, req.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("chat with %s: %w", req.Provider, err)
	}

	elapsed := o.now().Sub(start)
	elapsedMs := int64(math.Max(1, math.Round(float64(elapsed)/float64(time.Millisecond))))
	askLatency.WithLabelValues(req.Provider).Observe(elapsed.Seconds())

	var promptTok, complTok *int
	if res.Usage != nil {
		promptTok, complTok = res.Usage.PromptTokens, res.Usage.CompletionTokens
	}
	totalTok := (&Usage{PromptTokens: promptTok, CompletionTokens: complTok}).Total()
	if promptTok != nil {
		modelTokens.WithLabelValues(req.Provider, "prompt").Add(float64(*promptTok))
	}
	if complTok != nil {
		modelTokens.WithLabelValues(req.Provider, "completion").Add(float64(*complTok))
	}

	grams := o.carbon.EstimateGrams(promptTok, complTok, elapsedMs, req.Provider, req.LLMModel)
	co2Grams.WithLabelValues(req.Provider).Add(grams)

	if req.Technique == TechniqueJSONStructured {
		if _, perr := ParseStructuredAnswer(res.Text); perr != nil {
			log.Warn().Err(perr).Msg("model reply does not follow the structured answer format")
		}
	}

	latency := float64(elapsedMs)
	o.recordExperiment(ctx, Experiment{
		Date:             DateOnly(o.now()),
		FrameworkHits:    len(retrieval.FrameworkHits),
		DocHits:          len(retrieval.DocHits),
		KFramework:       req.KFramework,
		KDocs:            req.KDocs,
		Prompt:           prompt,
		EmbeddingModel:   req.EmbeddingModel,
		LLMModel:         req.LLMModel,
		LatencyMs:        &latency,
		CO2Grams:         &grams,
		PromptTokens:     promptTok,
		CompletionTokens: complTok,
		TotalTokens:      totalTok,
		Technique:        string(req.Technique),
	})

	return &Answer{
		Text:          res.Text + sourcesAppendixTitle + SourcesAppendix(retrieval.DocHits),
		DocHits:       retrieval.DocHits,
		FrameworkHits: retrieval.FrameworkHits,
	}, nil
}

// recordExperiment persists e, logging instead of failing on error.
func (o *Orchestrator) recordExperiment(ctx context.Context, e Experiment) {
	if o.experiments == nil {
		return
	}
	id, err := o.experiments.UpsertExperiment(ctx, e)
	if err != nil {
		log.Warn().Err(err).Msg("experiment logging failed (non-fatal)")
		return
	}
	ev := log.Debug().
		Int64("id", id).
		Int("fw_used", e.FrameworkHits).
		Int("doc_used", e.DocHits).
		Str("technique", e.Technique)
	if e.CO2Grams != nil {
		ev = ev.Str("co2_g", fmt.Sprintf("%.2f", *e.CO2Grams))
	}
	if e.LatencyMs != nil {
		ev = ev.Float64("ms", *e.LatencyMs)
	}
	ev.Msg("recorded experiment")
}
