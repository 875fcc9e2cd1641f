package vectorstore

import (
	"context"
	"fmt"

	"github.com/andratr/bmtool1/domain"

	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

// Payload keys of a mapping point.
const (
	payloadPairID        = "pairId"
	payloadPairName      = "pairName"
	payloadSourceSnippet = "plsqlSnippet"
	payloadTargetSnippet = "javaSnippet"
	payloadSourceType    = "plsqlType"
	payloadTargetType    = "javaType"
	payloadHelpers       = "javaHelpers"
)

// QdrantConfig configures the mapping corpus collection.
type QdrantConfig struct {
	Addr       string
	Collection string
	VectorSize uint64
}

// QdrantMappingStore implements domain.MappingStore on a Qdrant collection.
// Each mapping is one point whose id is the mapping's pairId.
type QdrantMappingStore struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	cfg         QdrantConfig
}

// NewQdrantMappingStore dials Qdrant over gRPC. The collection is created
// lazily by EnsureSchema.
func NewQdrantMappingStore(cfg QdrantConfig) (*QdrantMappingStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6334"
		log.Info().Str("addr", cfg.Addr).Msg("qdrant address not set, using default")
	}
	if cfg.Collection == "" {
		cfg.Collection = "plsql_java_mappings"
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = 768
	}

	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}

	return &QdrantMappingStore{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		cfg:         cfg,
	}, nil
}

// Close releases the gRPC connection.
func (c *QdrantMappingStore) Close() error {
	return c.conn.Close()
}

// EnsureSchema creates the collection with cosine distance if it is missing.
func (c *QdrantMappingStore) EnsureSchema(ctx context.Context) error {
	_, err := c.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: c.cfg.Collection,
	})
	if err == nil {
		return nil
	}

	log.Info().Str("collection", c.cfg.Collection).Uint64("size", c.cfg.VectorSize).Msg("creating qdrant collection")
	_, err = c.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: c.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     c.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.cfg.Collection, err)
	}
	return nil
}

// UpsertMappings writes all mappings and their vectors in one request.
func (c *QdrantMappingStore) UpsertMappings(ctx context.Context, mappings []domain.BlockMapping, vectors []domain.Embedding) error {
	if len(mappings) == 0 {
		return nil
	}
	if len(mappings) != len(vectors) {
		return fmt.Errorf("mismatch between number of mappings (%d) and vectors (%d)", len(mappings), len(vectors))
	}

	points := make([]*qdrant.PointStruct, 0, len(mappings))
	for i, m := range mappings {
		points = append(points, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: m.PairID}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vectors[i]}}},
			Payload: mappingPayload(m),
		})
	}

	_, err := c.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.cfg.Collection,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points to Qdrant: %w", err)
	}
	return nil
}

// Query returns the k nearest mappings to vector with their cosine scores.
func (c *QdrantMappingStore) Query(ctx context.Context, _ string, vector domain.Embedding, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return []domain.RetrievalResult{}, nil
	}
	res, err := c.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: c.cfg.Collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points in Qdrant: %w", err)
	}

	hits := make([]domain.RetrievalResult, 0, len(res.GetResult()))
	for _, p := range res.GetResult() {
		if p.GetPayload() == nil {
			continue
		}
		m := mappingFromPayload(p.GetPayload())
		if m.PairID == "" {
			if u, ok := p.GetId().GetPointIdOptions().(*qdrant.PointId_Uuid); ok {
				m.PairID = u.Uuid
			}
		}
		hits = append(hits, domain.RetrievalResult{Mapping: m, Score: float64(p.GetScore())})
	}
	return hits, nil
}

func mappingPayload(m domain.BlockMapping) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		payloadPairID:        stringValue(m.PairID),
		payloadPairName:      stringValue(m.PairName),
		payloadSourceSnippet: stringValue(m.SourceSnippet),
		payloadTargetSnippet: stringValue(m.TargetSnippet),
		payloadSourceType:    stringValue(string(m.SourceType)),
		payloadTargetType:    stringValue(string(m.TargetType)),
	}
	if len(m.HelperSnippets) > 0 {
		list := make([]*qdrant.Value, len(m.HelperSnippets))
		for i, h := range m.HelperSnippets {
			list[i] = stringValue(h)
		}
		payload[payloadHelpers] = &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: list}}}
	}
	return payload
}

func mappingFromPayload(payload map[string]*qdrant.Value) domain.BlockMapping {
	m := domain.BlockMapping{
		PairID:        payload[payloadPairID].GetStringValue(),
		PairName:      payload[payloadPairName].GetStringValue(),
		SourceSnippet: payload[payloadSourceSnippet].GetStringValue(),
		TargetSnippet: payload[payloadTargetSnippet].GetStringValue(),
		SourceType:    domain.BlockType(payload[payloadSourceType].GetStringValue()),
		TargetType:    domain.BlockType(payload[payloadTargetType].GetStringValue()),
	}
	for _, v := range payload[payloadHelpers].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			m.HelperSnippets = append(m.HelperSnippets, s)
		}
	}
	return m
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}
