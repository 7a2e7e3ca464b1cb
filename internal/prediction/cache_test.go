package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evbot/internal/common/database"
	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/models"
)

// countingClassifier wraps a Service and counts Classify calls.
type countingClassifier struct {
	inner *Service
	calls int32
}

func (c *countingClassifier) Classify(ctx context.Context, record models.FeatureRecord) (*models.PredictionResult, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.inner.Classify(ctx, record)
}

func (c *countingClassifier) ModelFingerprint(ctx context.Context) (string, error) {
	return c.inner.ModelFingerprint(ctx)
}

func newMiniredisCache(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func keyFor(t *testing.T, svc *Service, payload models.RawPayload) string {
	t.Helper()
	record, err := Normalize(payload)
	require.NoError(t, err)
	fingerprint, err := svc.ModelFingerprint(context.Background())
	require.NoError(t, err)
	key, err := CacheKey(fingerprint, record)
	require.NoError(t, err)
	return key
}

func TestCachedPredictor_HitAndMiss(t *testing.T) {
	mr, cache := newMiniredisCache(t)

	svc := newFixtureService(t)
	inner := &countingClassifier{inner: svc}
	predictor := NewCachedPredictor(inner, cache, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := predictor.Predict(ctx, shortPayload())
	require.NoError(t, err)

	second, err := predictor.Predict(ctx, shortPayload())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, first.ClassID, second.ClassID)
	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, 150.0, second.Inputs[ColumnCycles], "cached inputs come back through JSON")

	key := keyFor(t, svc, shortPayload())
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	_, err = predictor.Predict(ctx, longPayload())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestCachedPredictor_NewModelIgnoresOldEntries(t *testing.T) {
	mr, cache := newMiniredisCache(t)
	ctx := context.Background()

	before := NewCachedPredictor(fingerprintedService(t, &stubClassifier{class: 0}, "model-v1"), cache, time.Hour, logger.NewNoOpLogger())
	result, err := before.Predict(ctx, shortPayload())
	require.NoError(t, err)
	require.Equal(t, 0, result.ClassID)

	after := NewCachedPredictor(fingerprintedService(t, &stubClassifier{class: 2}, "model-v2"), cache, time.Hour, logger.NewNoOpLogger())
	result, err = after.Predict(ctx, shortPayload())
	require.NoError(t, err)
	assert.Equal(t, 2, result.ClassID)
	assert.Equal(t, models.ResultTypeLong, result.ResultType)

	assert.Len(t, mr.Keys(), 2, "each model keeps its own entry")
}

func TestCachedPredictor_UnavailableModelSkipsCache(t *testing.T) {
	mr, cache := newMiniredisCache(t)
	ctx := context.Background()

	warm := NewCachedPredictor(stubService(t, &stubClassifier{class: 1}), cache, time.Hour, logger.NewNoOpLogger())
	_, err := warm.Predict(ctx, shortPayload())
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)

	broken := NewAssetCache(AssetLoaderFunc(func(context.Context) (*Assets, error) {
		return nil, errors.New("model file missing")
	}), logger.NewNoOpLogger())
	predictor := NewCachedPredictor(NewService(broken, logger.NewNoOpLogger()), cache, time.Hour, logger.NewNoOpLogger())

	result, err := predictor.Predict(ctx, shortPayload())
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrCodeModelUnavailable, apperrors.CodeOf(err))
}

func TestCachedPredictor_NoFingerprintIsNotCached(t *testing.T) {
	mr, cache := newMiniredisCache(t)
	predictor := NewCachedPredictor(fingerprintedService(t, &stubClassifier{class: 1}, ""), cache, time.Hour, logger.NewNoOpLogger())

	result, err := predictor.Predict(context.Background(), shortPayload())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClassID)
	assert.Empty(t, mr.Keys())
}

func TestCachedPredictor_InvalidPayloadSkipsCache(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inner := &countingClassifier{inner: newFixtureService(t)}
	predictor := NewCachedPredictor(inner, database.NewRedisFromClient(client), time.Hour, logger.NewNoOpLogger())

	p := shortPayload()
	p["voltage"] = "high"

	_, err := predictor.Predict(context.Background(), p)
	assert.Equal(t, apperrors.ErrCodeInvalidFields, apperrors.CodeOf(err))
	assert.Zero(t, atomic.LoadInt32(&inner.calls))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedPredictor_RedisErrorsFallThrough(t *testing.T) {
	svc := newFixtureService(t)
	key := keyFor(t, svc, shortPayload())

	record, err := Normalize(shortPayload())
	require.NoError(t, err)
	expected, err := svc.Classify(context.Background(), record)
	require.NoError(t, err)
	data, err := json.Marshal(expected)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, data, 10*time.Minute).SetErr(errors.New("READONLY"))

	predictor := NewCachedPredictor(svc, database.NewRedisFromClient(client), 10*time.Minute, logger.NewNoOpLogger())
	result, err := predictor.Predict(context.Background(), shortPayload())

	require.NoError(t, err)
	assert.Equal(t, 0, result.ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedPredictor_FailuresAreNotCached(t *testing.T) {
	mr, cache := newMiniredisCache(t)
	predictor := NewCachedPredictor(stubService(t, &stubClassifier{err: errors.New("boom")}), cache, time.Hour, logger.NewNoOpLogger())

	_, err := predictor.Predict(context.Background(), shortPayload())
	assert.Equal(t, apperrors.ErrCodePredictionFailed, apperrors.CodeOf(err))
	assert.Empty(t, mr.Keys())
}

func TestCachedPredictor_CorruptEntryIsReplaced(t *testing.T) {
	mr, cache := newMiniredisCache(t)

	svc := newFixtureService(t)
	key := keyFor(t, svc, shortPayload())
	require.NoError(t, mr.Set(key, "{not json"))

	inner := &countingClassifier{inner: svc}
	predictor := NewCachedPredictor(inner, cache, time.Hour, logger.NewNoOpLogger())

	result, err := predictor.Predict(context.Background(), shortPayload())
	require.NoError(t, err)
	assert.Equal(t, 0, result.ClassID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.Contains(t, stored, `"class_id":0`)
}

func TestCacheKey(t *testing.T) {
	a, err := Normalize(shortPayload())
	require.NoError(t, err)

	p := shortPayload()
	p["soc"] = 80.0
	p["mode"] = " Fast "
	b, err := Normalize(p)
	require.NoError(t, err)

	keyA, err := CacheKey("model-v1", a)
	require.NoError(t, err)
	keyB, err := CacheKey("model-v1", b)
	require.NoError(t, err)
	assert.Equal(t, keyA, keyB, "equivalent payloads share a key")
	assert.Regexp(t, `^evbot:prediction:[0-9a-f]{64}$`, keyA)

	c, err := Normalize(mediumPayload())
	require.NoError(t, err)
	keyC, err := CacheKey("model-v1", c)
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyC)

	keyD, err := CacheKey("model-v2", a)
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyD, "a different model gets a different key")
}
