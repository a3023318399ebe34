package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedJudge stores scores in Redis so repeated runs over the same outputs do not
// pay for the same judgment twice. Cache failures fall through to the wrapped judge.
type CachedJudge struct {
	next      Judge
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCachedJudge wraps next. namespace separates scores from different judge models.
func NewCachedJudge(next Judge, client *redis.Client, namespace string, ttl time.Duration, logger *zap.Logger) *CachedJudge {
	return &CachedJudge{
		next:      next,
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger.Named("judge-cache"),
	}
}

func (c *CachedJudge) Relevancy(ctx context.Context, jc Case) (float64, error) {
	return c.cached(ctx, MetricRelevancy, jc)
}

func (c *CachedJudge) Correctness(ctx context.Context, jc Case) (float64, error) {
	return c.cached(ctx, MetricCorrectness, jc)
}

func (c *CachedJudge) cached(ctx context.Context, metric Metric, jc Case) (float64, error) {
	key := c.Key(metric, jc)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if score, perr := strconv.ParseFloat(val, 64); perr == nil {
			return score, nil
		}
		c.logger.Warn("Ignoring corrupt cached score", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Judge cache read failed", zap.Error(err))
	}

	score, err := Score(ctx, c.next, metric, jc)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.logger.Warn("Judge cache write failed", zap.Error(err))
	}
	return score, nil
}

// Key returns the cache key for a judgment.
func (c *CachedJudge) Key(metric Metric, jc Case) string {
	h := sha256.New()
	for _, part := range []string{c.namespace, string(metric), jc.Input, jc.ActualOutput, jc.ExpectedOutput} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "judge:" + string(metric) + ":" + hex.EncodeToString(h.Sum(nil))
}

var _ Judge = (*CachedJudge)(nil)
