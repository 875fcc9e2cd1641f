package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/andratr/bmtool1/application"
	"github.com/andratr/bmtool1/domain"
	"github.com/andratr/bmtool1/infrastructure/config"
	"github.com/andratr/bmtool1/infrastructure/embedding"
	"github.com/andratr/bmtool1/infrastructure/experimentstore"
	"github.com/andratr/bmtool1/infrastructure/filesystem"
	"github.com/andratr/bmtool1/infrastructure/llm"
	"github.com/andratr/bmtool1/infrastructure/parser"
	"github.com/andratr/bmtool1/infrastructure/vectorstore"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"gorm.io/gorm/logger"
)

// app holds the wired services. close releases every connection that was
// opened, in reverse order.
type app struct {
	cfg          *config.Config
	providers    *domain.ProviderRegistry
	orchestrator *domain.Orchestrator
	ingestion    *application.IngestionService
	experiments  *application.ExperimentService
	closers      []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// askDefaults are the request values used when a caller leaves them out.
func (a *app) askDefaults() domain.AskRequest {
	p := a.cfg.Providers.Default
	return domain.AskRequest{
		KDocs:          6,
		KFramework:     6,
		Provider:       p,
		LLMModel:       a.cfg.Providers.ModelFor(p),
		EmbeddingModel: a.cfg.Embedding.Model,
		Technique:      domain.TechniqueRAGStandard,
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	rules, err := cfg.LoadRules()
	if err != nil {
		return nil, err
	}
	engine := domain.NewMappingEngine(rules, domain.NewHelperClassifier())

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mappings, err := vectorstore.NewQdrantMappingStore(vectorstore.QdrantConfig{
		Addr:       cfg.Qdrant.Addr,
		Collection: cfg.Qdrant.Collection,
		VectorSize: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, mappings.Close)

	frameworks, err := vectorstore.NewWeaviateFrameworkStore(vectorstore.WeaviateConfig{
		Host:   cfg.Weaviate.Host,
		Scheme: cfg.Weaviate.Scheme,
		Class:  cfg.Weaviate.Class,
	})
	if err != nil {
		return nil, err
	}

	var store domain.ExperimentStore
	if cfg.Experiments.DSN != "" {
		s, err := experimentstore.NewStore(experimentstore.Config{
			DSN:      cfg.Experiments.DSN,
			MaxConns: cfg.Experiments.MaxConns,
			LogLevel: logger.Silent,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		store = s
		a.experiments = application.NewExperimentService(s)
	} else {
		log.Info().Msg("experiments.dsn not set, experiments are not recorded")
	}

	if a.providers, err = newProviderRegistry(ctx, cfg); err != nil {
		return nil, err
	}

	retriever := domain.NewRetriever(embedder, mappings, frameworks)
	a.orchestrator = domain.NewOrchestrator(a.providers, retriever, store, domain.NewCarbonEstimator(cfg.Carbon))
	a.ingestion = application.NewIngestionService(
		filesystem.NewPairReader(),
		parser.NewPLSQLExtractor(),
		parser.NewJavaExtractor(),
		engine,
		embedder,
		mappings,
		frameworks,
		parser.NewFrameworkScanner(),
	)
	return a, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (domain.EmbeddingClient, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbeddingClient(cfg.Providers.OpenAI.APIKey, openai.EmbeddingModel(cfg.Embedding.Model))
	case "gemini":
		return embedding.NewGeminiEmbeddingClient(ctx, cfg.Providers.Gemini.APIKey, cfg.Embedding.Model)
	default:
		return embedding.NewOllamaEmbeddingClient(cfg.Providers.Ollama.BaseURL, cfg.Embedding.Model)
	}
}

// newProviderRegistry registers Ollama unconditionally and every hosted
// provider that has an API key.
func newProviderRegistry(ctx context.Context, cfg *config.Config) (*domain.ProviderRegistry, error) {
	clients := make(map[string]domain.ChatClient)
	p := cfg.Providers

	ollama, err := llm.NewOllamaClient(p.Ollama.BaseURL, p.Ollama.Model)
	if err != nil {
		return nil, err
	}
	clients["ollama"] = ollama

	var errs []error
	if p.OpenAI.APIKey != "" {
		c, err := llm.NewOpenAIClient(p.OpenAI.APIKey, p.OpenAI.Model)
		errs = append(errs, err)
		if err == nil {
			clients["openai"] = c
		}
	}
	if p.Anthropic.APIKey != "" {
		c, err := llm.NewAnthropicClient(p.Anthropic.APIKey, p.Anthropic.Model)
		errs = append(errs, err)
		if err == nil {
			clients["anthropic"] = c
		}
	}
	if p.OpenRouter.APIKey != "" {
		c, err := llm.NewOpenRouterClient(p.OpenRouter.APIKey, p.OpenRouter.BaseURL, p.OpenRouter.Model)
		errs = append(errs, err)
		if err == nil {
			clients["openrouter"] = c
		}
	}
	if p.Gemini.APIKey != "" {
		c, err := llm.NewGeminiClient(ctx, p.Gemini.APIKey, p.Gemini.Model)
		errs = append(errs, err)
		if err == nil {
			clients["gemini"] = c
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("create chat providers: %w", err)
	}

	if _, ok := clients[p.Default]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured", p.Default)
	}
	registry := domain.NewProviderRegistry(clients)
	log.Info().Strs("providers", registry.IDs()).Msg("chat providers ready")
	return registry, nil
}
