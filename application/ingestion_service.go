package application

import (
	"context"
	"fmt"
	"time"

	"github.com/andratr/bmtool1/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/andratr/bmtool1/application"

// IngestionService turns source/target pairs into block mappings and
// writes them, with their embeddings, to the mapping corpus. It also
// feeds the framework corpus.
type IngestionService struct {
	pairs      domain.PairReader
	source     domain.BlockExtractor
	target     domain.BlockExtractor
	engine     *domain.MappingEngine
	embedder   domain.EmbeddingClient
	mappings   domain.MappingStore
	frameworks domain.FrameworkStore
	scanner    domain.FrameworkScanner
}

// NewIngestionService creates a new IngestionService.
//
// Args:
//
//	pairs: Discovers PL/SQL and Java files sharing a base name.
//	source: Extracts blocks from the PL/SQL side of a pair.
//	target: Extracts blocks from the Java side of a pair.
//	engine: Maps source blocks onto target blocks.
//	embedder: Embeds the mapping and framework texts.
//	mappings: The mapping corpus.
//	frameworks: The framework corpus. May be nil.
//	scanner: Scans framework sources. May be nil.
//
// Returns:
//
//	A new IngestionService.
func NewIngestionService(
	pairs domain.PairReader,
	source, target domain.BlockExtractor,
	engine *domain.MappingEngine,
	embedder domain.EmbeddingClient,
	mappings domain.MappingStore,
	frameworks domain.FrameworkStore,
	scanner domain.FrameworkScanner,
) *IngestionService {
	return &IngestionService{
		pairs:      pairs,
		source:     source,
		target:     target,
		engine:     engine,
		embedder:   embedder,
		mappings:   mappings,
		frameworks: frameworks,
		scanner:    scanner,
	}
}

// ProgressFunc receives the number of processed items out of total.
type ProgressFunc func(processed, total int)

type ingestOptions struct {
	progress ProgressFunc
}

// IngestOption configures a single ingestion run.
type IngestOption func(*ingestOptions)

// WithProgress reports progress after every processed pair.
func WithProgress(fn ProgressFunc) IngestOption {
	return func(o *ingestOptions) { o.progress = fn }
}

// IngestDirectory discovers the pairs below rootDir, maps their blocks and
// writes the mappings to the mapping corpus.
//
// It fails with domain.ErrNoPairs before any embedding or storage call when
// no pairs exist, and with domain.ErrNoMappings, again without storage
// calls, when the pairs yield no mapping at all.
func (s *IngestionService) IngestDirectory(ctx context.Context, rootDir string, opts ...IngestOption) (mappings []domain.BlockMapping, err error) {
	o := ingestOptions{progress: func(int, int) {}}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "application.IngestionService.IngestDirectory")
	span.SetAttributes(attribute.String("root_dir", rootDir))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	log.Info().Str("root", rootDir).Msg("starting ingestion")

	pairs, err := s.pairs.DiscoverPairs(ctx, rootDir)
	if err != nil {
		return nil, fmt.Errorf("discover pairs in %s: %w", rootDir, err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no source/target pairs under %s", domain.ErrNoPairs, rootDir)
	}
	span.SetAttributes(attribute.Int("pairs", len(pairs)))

	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sourceBlocks, err := s.source.Extract(ctx, pair.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", pair.SourcePath, err)
		}
		targetBlocks, err := s.target.Extract(ctx, pair.TargetPath)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", pair.TargetPath, err)
		}

		pairMappings := s.engine.Map(sourceBlocks, targetBlocks)
		log.Debug().
			Str("pair", pair.Name).
			Int("source_blocks", len(sourceBlocks)).
			Int("target_blocks", len(targetBlocks)).
			Int("mappings", len(pairMappings)).
			Msg("mapped pair")

		mappings = append(mappings, pairMappings...)
		o.progress(i+1, len(pairs))
	}

	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: %d pairs under %s", domain.ErrNoMappings, len(pairs), rootDir)
	}

	if _, err := s.writeMappings(ctx, mappings); err != nil {
		return nil, err
	}

	ingestedMappings.Add(float64(len(mappings)))
	log.Info().
		Str("root", rootDir).
		Int("pairs", len(pairs)).
		Int("mappings", len(mappings)).
		Dur("took", time.Since(start)).
		Msg("ingestion finished")
	return mappings, nil
}

func (s *IngestionService) writeMappings(ctx context.Context, mappings []domain.BlockMapping) (int, error) {
	if len(mappings) == 0 {
		return 0, nil
	}
	if err := s.mappings.EnsureSchema(ctx); err != nil {
		return 0, fmt.Errorf("ensure mapping schema: %w", err)
	}

	vectors := make([]domain.Embedding, len(mappings))
	for i, m := range mappings {
		v, err := s.embedder.Embed(ctx, m.EmbeddingText())
		if err != nil {
			return 0, fmt.Errorf("embed mapping %s: %w", m.PairID, err)
		}
		vectors[i] = v
	}

	if err := s.mappings.UpsertMappings(ctx, mappings, vectors); err != nil {
		return 0, fmt.Errorf("upsert %d mappings: %w", len(mappings), err)
	}
	return len(mappings), nil
}

// IngestFramework deduplicates symbols and writes them to the framework
// corpus. An empty batch is skipped without touching the store.
func (s *IngestionService) IngestFramework(ctx context.Context, symbols []domain.FrameworkSymbol) (int, error) {
	if s.frameworks == nil {
		return 0, fmt.Errorf("%w: framework corpus is not configured", domain.ErrInvalidRequest)
	}

	unique := domain.DedupeSymbols(symbols)
	if len(unique) == 0 {
		log.Info().Msg("no framework symbols to ingest")
		return 0, nil
	}

	if err := s.frameworks.EnsureSchema(ctx); err != nil {
		return 0, fmt.Errorf("ensure framework schema: %w", err)
	}

	vectors := make([]domain.Embedding, len(unique))
	for i, sym := range unique {
		v, err := s.embedder.Embed(ctx, sym.EmbeddingText())
		if err != nil {
			return 0, fmt.Errorf("embed symbol %s: %w", sym.SymbolID, err)
		}
		vectors[i] = v
	}

	if err := s.frameworks.UpsertFrameworkSymbols(ctx, unique, vectors); err != nil {
		return 0, fmt.Errorf("upsert %d framework symbols: %w", len(unique), err)
	}

	frameworkSymbols.Add(float64(len(unique)))
	log.Info().Int("symbols", len(unique)).Int("duplicates", len(symbols)-len(unique)).Msg("framework symbols ingested")
	return len(unique), nil
}

// IngestFrameworkDirectory scans rootDir for public API members of
// basePackages and ingests them into the framework corpus.
func (s *IngestionService) IngestFrameworkDirectory(ctx context.Context, rootDir string, basePackages []string) (int, error) {
	if s.scanner == nil {
		return 0, fmt.Errorf("%w: framework scanner is not configured", domain.ErrInvalidRequest)
	}
	symbols, err := s.scanner.Scan(ctx, rootDir, basePackages)
	if err != nil {
		return 0, fmt.Errorf("scan framework sources in %s: %w", rootDir, err)
	}
	log.Info().Str("root", rootDir).Strs("packages", basePackages).Int("symbols", len(symbols)).Msg("scanned framework sources")
	return s.IngestFramework(ctx, symbols)
}
