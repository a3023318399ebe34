package retrieval

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// RedisStore keeps examples as hashes indexed by a RediSearch HNSW vector field.
// It requires Redis Stack (or Redis 8 with the query engine).
type RedisStore struct {
	client      *redis.Client
	indexName   string
	indexPrefix string
	logger      *zap.Logger
}

func NewRedisStore(client *redis.Client, indexName, indexPrefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:      client,
		indexName:   indexName,
		indexPrefix: indexPrefix,
		logger:      logger.Named("redis-vectors"),
	}
}

func (s *RedisStore) Reset(ctx context.Context, dim int) error {
	indexes, err := s.client.FT_List(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}
	if slices.Contains(indexes, s.indexName) {
		_, err := s.client.FTDropIndexWithArgs(ctx, s.indexName, &redis.FTDropIndexOptions{
			DeleteDocs: true,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to drop index %s: %w", s.indexName, err)
		}
	}

	_, err = s.client.FTCreate(ctx,
		s.indexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []any{s.indexPrefix},
		},
		&redis.FieldSchema{
			FieldName: "question",
			FieldType: redis.SearchFieldTypeText,
		},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Dim:            dim,
					DistanceMetric: "COSINE",
					Type:           "FLOAT32",
				},
			},
		},
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", s.indexName, err)
	}

	s.logger.Info("Created vector index", zap.String("index", s.indexName), zap.Int("dim", dim))
	return nil
}

func (s *RedisStore) Upsert(ctx context.Context, entries []Entry) error {
	pipe := s.client.Pipeline()
	for _, e := range entries {
		pipe.HSet(ctx, s.key(e.ID), map[string]any{
			"question":  e.Example.Question,
			"cypher":    e.Example.Cypher,
			"answer":    e.Example.Answer,
			"embedding": floatsToBytes(e.Vector),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store %d examples: %w", len(entries), err)
	}
	return nil
}

func (s *RedisStore) key(id uint64) string {
	return s.indexPrefix + strconv.FormatUint(id, 10)
}

// Search runs a KNN query. Results are ordered by ascending cosine distance.
func (s *RedisStore) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedExample, error) {
	if k <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS vector_distance]", k)

	results, err := s.client.FTSearchWithArgs(ctx,
		s.indexName,
		query,
		&redis.FTSearchOptions{
			Return: []redis.FTSearchReturn{
				{FieldName: "vector_distance"},
				{FieldName: "question"},
				{FieldName: "cypher"},
				{FieldName: "answer"},
			},
			DialectVersion: 2,
			Params: map[string]any{
				"vec": floatsToBytes(vector),
			},
			SortBy: []redis.FTSearchSortBy{{FieldName: "vector_distance", Asc: true}},
			Limit:  k,
		},
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search index %s: %w", s.indexName, err)
	}

	out := make([]models.RetrievedExample, 0, len(results.Docs))
	for _, doc := range results.Docs {
		ex := models.RetrievedExample{
			Question: doc.Fields["question"],
			Cypher:   doc.Fields["cypher"],
			Answer:   doc.Fields["answer"],
		}
		if d, err := strconv.ParseFloat(doc.Fields["vector_distance"], 32); err == nil {
			ex.Score = float32(1 - d)
		}
		out = append(out, ex)
	}
	return out, nil
}

// Close is a no-op; the client is shared with the judge cache and closed by its owner.
func (s *RedisStore) Close() error {
	return nil
}

func floatsToBytes(fs []float32) []byte {
	buf := make([]byte, len(fs)*4)
	for i, f := range fs {
		binary.NativeEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
