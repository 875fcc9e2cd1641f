package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/andratr/bmtool1/domain"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateConfig configures the framework corpus class.
type WeaviateConfig struct {
	Host   string
	Scheme string
	Class  string
}

// WeaviateFrameworkStore implements domain.FrameworkStore on a Weaviate
// class with client-side vectors.
type WeaviateFrameworkStore struct {
	client *weaviate.Client
	class  string
}

var frameworkProperties = []string{"declaringType", "symbolId", "signature", "exampleSnippet", "kind", "tags"}

// NewWeaviateFrameworkStore creates a client for the framework class.
func NewWeaviateFrameworkStore(cfg WeaviateConfig) (*WeaviateFrameworkStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost:8080"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Class == "" {
		cfg.Class = "FrameworkSymbol"
	}

	client, err := weaviate.NewClient(weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme})
	if err != nil {
		return nil, fmt.Errorf("could not create Weaviate client: %w", err)
	}
	return &WeaviateFrameworkStore{client: client, class: cfg.Class}, nil
}

// EnsureSchema creates the class if it does not exist yet.
func (w *WeaviateFrameworkStore) EnsureSchema(ctx context.Context) error {
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(w.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", w.class, err)
	}
	if exists {
		return nil
	}

	props := make([]*models.Property, 0, len(frameworkProperties))
	for _, name := range frameworkProperties {
		dt := []string{"text"}
		if name == "tags" {
			dt = []string{"text[]"}
		}
		props = append(props, &models.Property{Name: name, DataType: dt})
	}

	log.Info().Str("class", w.class).Msg("creating weaviate class")
	err = w.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:       w.class,
		Description: "Framework API members with usage snippets",
		Vectorizer:  "none",
		Properties:  props,
	}).Do(ctx)
	if err != nil {
		return fmt.Errorf("create class %s: %w", w.class, err)
	}
	return nil
}

// UpsertFrameworkSymbols writes all symbols in one batch. Object ids are
// derived from the symbol key, so re-ingesting a symbol replaces it.
func (w *WeaviateFrameworkStore) UpsertFrameworkSymbols(ctx context.Context, symbols []domain.FrameworkSymbol, vectors []domain.Embedding) error {
	if len(symbols) == 0 {
		return nil
	}
	if len(symbols) != len(vectors) {
		return fmt.Errorf("mismatch between number of symbols (%d) and vectors (%d)", len(symbols), len(vectors))
	}

	objects := make([]*models.Object, len(symbols))
	for i, s := range symbols {
		objects[i] = &models.Object{
			Class:      w.class,
			ID:         symbolObjectID(s),
			Properties: symbolProperties(s),
			Vector:     models.C11yVector(vectors[i]),
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert %d symbols: %w", len(symbols), err)
	}
	var failed []string
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			failed = append(failed, e.Message)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("batch upsert: %d objects failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// RetrieveFrameworkSymbols returns the k symbols nearest to vector. With
// requiredTags, only symbols sharing at least one tag are considered.
func (w *WeaviateFrameworkStore) RetrieveFrameworkSymbols(ctx context.Context, _ string, vector domain.Embedding, k int, requiredTags []string) ([]domain.FrameworkSymbol, error) {
	if k <= 0 {
		return []domain.FrameworkSymbol{}, nil
	}

	fields := make([]graphql.Field, len(frameworkProperties))
	for i, name := range frameworkProperties {
		fields[i] = graphql.Field{Name: name}
	}

	q := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)).
		WithLimit(k)
	if len(requiredTags) > 0 {
		q = q.WithWhere(filters.Where().
			WithPath([]string{"tags"}).
			WithOperator(filters.ContainsAny).
			WithValueText(requiredTags...))
	}

	resp, err := q.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("query class %s: %w", w.class, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("query class %s: %s", w.class, strings.Join(msgs, "; "))
	}
	return symbolsFromGraphQL(resp.Data, w.class), nil
}

func symbolObjectID(s domain.FrameworkSymbol) strfmt.UUID {
	key := s.DeclaringType + "#" + s.SymbolID + "(" + s.Signature + ")"
	return strfmt.UUID(uuid.NewMD5(uuid.NameSpaceURL, []byte(key)).String())
}

func symbolProperties(s domain.FrameworkSymbol) map[string]any {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"declaringType":  s.DeclaringType,
		"symbolId":       s.SymbolID,
		"signature":      s.Signature,
		"exampleSnippet": s.ExampleSnippet,
		"kind":           string(s.Kind),
		"tags":           tags,
	}
}

// symbolsFromGraphQL decodes data["Get"][class] into symbols, skipping
// entries of unexpected shape.
func symbolsFromGraphQL(data map[string]models.JSONObject, class string) []domain.FrameworkSymbol {
	out := []domain.FrameworkSymbol{}
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return out
	}
	items, ok := get[class].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s := domain.FrameworkSymbol{
			DeclaringType:  stringProp(obj, "declaringType"),
			SymbolID:       stringProp(obj, "symbolId"),
			Signature:      stringProp(obj, "signature"),
			ExampleSnippet: stringProp(obj, "exampleSnippet"),
			Kind:           domain.SymbolKind(stringProp(obj, "kind")),
		}
		if raw, ok := obj["tags"].([]any); ok {
			for _, t := range raw {
				if ts, ok := t.(string); ok {
					s.Tags = append(s.Tags, ts)
				}
			}
		}
		out = append(out, s)
	}
	return out
}

func stringProp(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
