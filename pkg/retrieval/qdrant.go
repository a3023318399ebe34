package retrieval

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// QdrantConfig locates a Qdrant instance over gRPC.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantStore keeps examples in a Qdrant collection with cosine distance.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// NewQdrantStore connects to Qdrant. The collection is created by Reset.
func NewQdrantStore(cfg QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		logger:     logger.Named("qdrant"),
	}, nil
}

func (s *QdrantStore) Reset(ctx context.Context, dim int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", s.collection, err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim), // #nosec G115 -- embedding dimensions are small and positive
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}

	s.logger.Info("Created collection", zap.String("collection", s.collection), zap.Int("dim", dim))
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(e.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"question": e.Example.Question,
				"cypher":   e.Example.Cypher,
				"answer":   e.Example.Answer,
			}),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedExample, error) {
	if k <= 0 {
		return nil, nil
	}
	limit := uint64(k) // #nosec G115 -- k > 0
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", s.collection, err)
	}

	out := make([]models.RetrievedExample, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		out = append(out, models.RetrievedExample{
			Question: payload["question"].GetStringValue(),
			Cypher:   payload["cypher"].GetStringValue(),
			Answer:   payload["answer"].GetStringValue(),
			Score:    p.GetScore(),
		})
	}
	return out, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
