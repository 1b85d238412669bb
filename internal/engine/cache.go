// internal/engine/cache.go
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/common/metrics"
	"crm-decision-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores evaluation results in Redis, keyed by evaluator, rules fingerprint and
// input record. Failures are logged and treated as misses.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewResultCache(client *redis.Client, ttl time.Duration, prefix string, log logger.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "result-cache"}),
	}
}

// Key derives the cache key for one evaluation.
func (c *ResultCache) Key(evaluator, rulesFingerprint string, record []byte) string {
	h := sha256.New()
	h.Write([]byte(rulesFingerprint))
	h.Write([]byte{0})
	h.Write(record)
	return c.prefix + evaluator + ":" + hex.EncodeToString(h.Sum(nil))
}

func (c *ResultCache) Get(ctx context.Context, evaluator, key string) (*models.EvaluationResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheLookups.WithLabelValues(evaluator, "miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues(evaluator, "error").Inc()
		c.logger.Warn("cache lookup failed", map[string]interface{}{
			"evaluator": evaluator,
			"error":     errors.NewCacheUnavailableError(err).Error(),
		})
		return nil, false
	}

	var result models.EvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		metrics.CacheLookups.WithLabelValues(evaluator, "error").Inc()
		c.logger.Warn("discarding corrupt cache entry", map[string]interface{}{
			"evaluator": evaluator,
			"key":       key,
		})
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues(evaluator, "hit").Inc()
	return &result, true
}

func (c *ResultCache) Set(ctx context.Context, key string, result *models.EvaluationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"key":   key,
			"error": errors.NewCacheUnavailableError(err).Error(),
		})
	}
}

// fingerprint hashes the rule set so that a rules change never serves stale results.
func fingerprint(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
