package prediction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"evbot/internal/common/database"
	"evbot/internal/common/logger"
	"evbot/internal/common/metrics"
	"evbot/internal/models"
)

// CacheKeyPrefix namespaces prediction entries in Redis.
const CacheKeyPrefix = "evbot:prediction:"

// Cache is the key-value store behind CachedPredictor. database.RedisClient satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ModelClassifier is a RecordClassifier that can name the model it runs. Service satisfies it.
type ModelClassifier interface {
	RecordClassifier
	ModelFingerprint(ctx context.Context) (string, error)
}

// CachedPredictor memoises predictions by model fingerprint and normalised record. Cache
// failures fall through to the classifier.
type CachedPredictor struct {
	inner  ModelClassifier
	cache  Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedPredictor(inner ModelClassifier, cache Cache, ttl time.Duration, log logger.Logger) *CachedPredictor {
	return &CachedPredictor{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "prediction-cache"}),
	}
}

// Predict normalises first, so invalid payloads never reach Redis. An unavailable model fails
// before the lookup, and a model without a fingerprint is never cached.
func (p *CachedPredictor) Predict(ctx context.Context, payload models.RawPayload) (*models.PredictionResult, error) {
	record, err := Normalize(payload)
	if err != nil {
		return nil, err
	}

	fingerprint, err := p.inner.ModelFingerprint(ctx)
	if err != nil {
		return nil, err
	}
	if fingerprint == "" {
		return p.inner.Classify(ctx, record)
	}

	key, err := CacheKey(fingerprint, record)
	if err != nil {
		return p.inner.Classify(ctx, record)
	}

	if cached, ok := p.lookup(ctx, key); ok {
		return cached, nil
	}

	result, err := p.inner.Classify(ctx, record)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
			p.logger.WithError(err).Warn("Failed to store prediction in cache", map[string]interface{}{"key": key})
		}
	}
	return result, nil
}

func (p *CachedPredictor) lookup(ctx context.Context, key string) (*models.PredictionResult, bool) {
	data, err := p.cache.Get(ctx, key)
	switch {
	case errors.Is(err, database.ErrCacheMiss):
		metrics.PredictionCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	case err != nil:
		metrics.PredictionCacheLookups.WithLabelValues("error").Inc()
		p.logger.WithError(err).Warn("Prediction cache lookup failed", map[string]interface{}{"key": key})
		return nil, false
	}

	var result models.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		metrics.PredictionCacheLookups.WithLabelValues("error").Inc()
		p.logger.WithError(err).Warn("Dropping unreadable cache entry", map[string]interface{}{"key": key})
		if err := p.cache.Del(ctx, key); err != nil {
			p.logger.WithError(err).Warn("Failed to drop cache entry", map[string]interface{}{"key": key})
		}
		return nil, false
	}
	metrics.PredictionCacheLookups.WithLabelValues("hit").Inc()
	return &result, true
}

// CacheKey hashes the model fingerprint and the record values in schema order.
func CacheKey(fingerprint string, record models.FeatureRecord) (string, error) {
	values := make([]interface{}, len(schema))
	for i, f := range schema {
		values[i] = record[f.Column]
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{'\n'})
	h.Write(data)
	return CacheKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
