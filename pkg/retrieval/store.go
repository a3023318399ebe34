package retrieval

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/config"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Entry is one embedded example ready to be stored.
type Entry struct {
	ID      uint64
	Vector  []float32
	Example models.RetrievedExample
}

// VectorStore persists embedded examples and answers nearest-neighbour queries.
// Search returns at most k examples ordered from most to least similar.
type VectorStore interface {
	// Reset drops any previous contents and prepares the store for vectors of dim dimensions.
	Reset(ctx context.Context, dim int) error
	Upsert(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedExample, error)
	Close() error
}

const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
	BackendRedis  = "redis"
)

// NewStore builds the configured backend. The redis backend needs a client.
func NewStore(cfg config.RetrievalConfig, redisClient *redis.Client, logger *zap.Logger) (VectorStore, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendQdrant:
		return NewQdrantStore(QdrantConfig{
			Host:       config.ResolveHostForDocker(cfg.QdrantHost),
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.Collection,
		}, logger)
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis retrieval backend requires redis configuration")
		}
		return NewRedisStore(redisClient, cfg.Collection, cfg.RedisIndexPrefix, logger), nil
	default:
		return nil, fmt.Errorf("unknown retrieval backend %q", cfg.Backend)
	}
}
