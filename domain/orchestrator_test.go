package domain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func spanAttrs(s tracetest.SpanStub) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(s.Attributes))
	for _, kv := range s.Attributes {
		out[kv.Key] = kv.Value
	}
	return out
}

type orchestratorFixture struct {
	embedder    *fakeEmbedder
	docs        *fakeMappingStore
	fw          *fakeFrameworkStore
	chat        *fakeChat
	experiments *fakeExperimentStore
	orch        *Orchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		embedder:    &fakeEmbedder{},
		docs:        &fakeMappingStore{},
		fw:          &fakeFrameworkStore{},
		chat:        &fakeChat{result: ChatResult{Text: "Use a Java record."}},
		experiments: &fakeExperimentStore{},
	}
	providers := NewProviderRegistry(map[string]ChatClient{"ollama": f.chat})
	f.orch = NewOrchestrator(providers, NewRetriever(f.embedder, f.docs, f.fw), f.experiments, nil)

	clock := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	f.orch.now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}
	return f
}

func baseRequest() AskRequest {
	return AskRequest{
		Question:       "How do I port the event code check?",
		KDocs:          6,
		KFramework:     6,
		Provider:       "ollama",
		LLMModel:       "llama3",
		EmbeddingModel: "nomic-embed-text",
		Technique:      TechniqueRAGStandard,
	}
}

func TestAsk_UnknownProviderMakesNoCalls(t *testing.T) {
	f := newOrchestratorFixture()
	req := baseRequest()
	req.Provider = "nope"

	_, err := f.orch.Ask(context.Background(), req)

	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, f.embedder.calls)
	assert.Zero(t, f.docs.queryCalls)
	assert.Zero(t, f.chat.calls)
	assert.Empty(t, f.experiments.saved)
}

func TestAsk_InvalidRequests(t *testing.T) {
	f := newOrchestratorFixture()

	blank := baseRequest()
	blank.Question = "   "
	_, err := f.orch.Ask(context.Background(), blank)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	negative := baseRequest()
	negative.KDocs = -1
	_, err = f.orch.Ask(context.Background(), negative)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Zero(t, f.embedder.calls)
}

func TestAsk_UnknownTechniqueIsInvalid(t *testing.T) {
	f := newOrchestratorFixture()
	req := baseRequest()
	req.Technique = Technique("TELEPATHY")

	_, err := f.orch.Ask(context.Background(), req)

	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "TELEPATHY")
	assert.Zero(t, f.embedder.calls)
	assert.Zero(t, f.chat.calls)
	assert.Empty(t, f.experiments.saved)
}

func TestAsk_EmptyTechniqueDefaultsToRAG(t *testing.T) {
	f := newOrchestratorFixture()
	req := baseRequest()
	req.Technique = ""

	_, err := f.orch.Ask(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, f.experiments.saved, 1)
	assert.Equal(t, "RAG_STANDARD", f.experiments.saved[0].Technique)
}

func TestAsk_MetricLabelsStayBounded(t *testing.T) {
	f := newOrchestratorFixture()
	ask := func(provider string, technique Technique) {
		req := baseRequest()
		req.Provider = provider
		req.Technique = technique
		_, _ = f.orch.Ask(context.Background(), req)
	}

	ask("nope-1", TechniqueRAGStandard)
	ask("bogus", "BOGUS-1")
	ask("ollama", "BOGUS-1")
	before := testutil.CollectAndCount(asksTotal)

	ask("nope-2", TechniqueRAGStandard)
	ask("ollama", "BOGUS-2")
	ask("nope-3", "BOGUS-3")

	assert.Equal(t, before, testutil.CollectAndCount(asksTotal), "caller input must not create label values")
	assert.Zero(t, testutil.ToFloat64(asksTotal.WithLabelValues("nope-2", "RAG_STANDARD", "invalid")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(asksTotal.WithLabelValues("unknown", "RAG_STANDARD", "invalid")), 2.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(asksTotal.WithLabelValues("ollama", "unknown", "invalid")), 1.0)
}

func TestAsk_Span(t *testing.T) {
	exporter := setupTestTracer(t)
	f := newOrchestratorFixture()
	req := baseRequest()
	req.Technique = TechniqueFewShot
	req.KDocs = 3

	_, err := f.orch.Ask(context.Background(), req)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "domain.Orchestrator.Ask", s.Name)
	assert.Equal(t, codes.Unset, s.Status.Code)
	attrs := spanAttrs(s)
	assert.Equal(t, "ollama", attrs["provider"].AsString())
	assert.Equal(t, "llama3", attrs["llm_model"].AsString())
	assert.Equal(t, "FEW_SHOT", attrs["technique"].AsString())
	assert.Equal(t, int64(3), attrs["k_docs"].AsInt64())
	assert.Equal(t, int64(6), attrs["k_framework"].AsInt64())
}

func TestAsk_SpanRecordsFailure(t *testing.T) {
	exporter := setupTestTracer(t)
	f := newOrchestratorFixture()
	f.chat.err = errBoom

	_, err := f.orch.Ask(context.Background(), baseRequest())
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Status.Description, errBoom.Error())
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestAsk_AnswersWithAppendixAndRecordsExperiment(t *testing.T) {
	f := newOrchestratorFixture()
	f.docs.hits = []RetrievalResult{
		{Mapping: BlockMapping{PairID: "p1", SourceSnippet: "v_code := 'X'", TargetSnippet: "eventCode()"}, Score: 0.9},
		{Mapping: BlockMapping{PairID: "p2"}, Score: 0.3},
	}
	f.fw.symbols = []FrameworkSymbol{{DeclaringType: "x.Money", SymbolID: "Money#zero"}}
	f.chat.result.Usage = &Usage{PromptTokens: IntPtr(1200), CompletionTokens: IntPtr(300)}

	ans, err := f.orch.Ask(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ans.Text, "Use a Java record.\n\n---\nSources used (docs/code chunks):\n\n[DOC 1 | score=0.900 | id=p1]"))
	assert.Len(t, ans.DocHits, 1)
	assert.Len(t, ans.FrameworkHits, 1)
	assert.Equal(t, 1, f.embedder.calls)
	assert.Equal(t, "llama3", f.chat.lastModel)
	assert.Contains(t, f.chat.lastPrompt, "Money#zero")

	require.Len(t, f.experiments.saved, 1)
	e := f.experiments.saved[0]
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), e.Date)
	assert.Equal(t, 1, e.DocHits)
	assert.Equal(t, 1, e.FrameworkHits)
	assert.Equal(t, 6, e.KDocs)
	assert.Equal(t, 6, e.KFramework)
	assert.Equal(t, f.chat.lastPrompt, e.Prompt)
	assert.Equal(t, "nomic-embed-text", e.EmbeddingModel)
	assert.Equal(t, "RAG_STANDARD", e.Technique)
	require.NotNil(t, e.TotalTokens)
	assert.Equal(t, 1500, *e.TotalTokens)
	require.NotNil(t, e.LatencyMs)
	assert.InDelta(t, 250, *e.LatencyMs, 0.001)
	require.NotNil(t, e.CO2Grams)
	// 1.5 ktok at the llama rate of 1.5 Wh/ktok.
	assert.InDelta(t, 1.5*1.5/1000*1.2*0.35*1000, *e.CO2Grams, 1e-9)
	assert.Nil(t, e.Quality)
}

func TestAsk_NoDocsStillAnswers(t *testing.T) {
	f := newOrchestratorFixture()

	ans, err := f.orch.Ask(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ans.Text, "Sources used (docs/code chunks):\nNo documents were used."))
	require.Len(t, f.experiments.saved, 1)
	assert.Nil(t, f.experiments.saved[0].TotalTokens)
	// Time-based estimate for 250 ms at 200 W.
	assert.Greater(t, *f.experiments.saved[0].CO2Grams, 0.0)
}

func TestAsk_ExperimentFailureIsNotFatal(t *testing.T) {
	f := newOrchestratorFixture()
	f.experiments.err = errBoom

	ans, err := f.orch.Ask(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.Contains(t, ans.Text, "Use a Java record.")
}

func TestAsk_ChatErrorPropagates(t *testing.T) {
	f := newOrchestratorFixture()
	f.chat.err = errBoom

	_, err := f.orch.Ask(context.Background(), baseRequest())

	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.experiments.saved)
}

func TestAsk_ZeroShotSkipsEvidenceInPrompt(t *testing.T) {
	f := newOrchestratorFixture()
	f.docs.hits = []RetrievalResult{{Mapping: BlockMapping{PairID: "p1", SourceSnippet: "s"}, Score: 0.95}}
	req := baseRequest()
	req.Technique = TechniqueZeroShot

	ans, err := f.orch.Ask(context.Background(), req)

	require.NoError(t, err)
	assert.NotContains(t, f.chat.lastPrompt, "[DOC")
	assert.Contains(t, ans.Text, "[DOC 1 | score=0.950 | id=p1]")
	assert.Equal(t, "ZERO_SHOT", f.experiments.saved[0].Technique)
}

func TestProviderRegistry(t *testing.T) {
	r := NewProviderRegistry(map[string]ChatClient{"b": &fakeChat{}, "a": &fakeChat{}, "nil": nil})

	assert.Equal(t, []string{"a", "b"}, r.IDs())
	_, err := r.Get("nil")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
