package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webattack-detector/go-service/internal/client"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func countingClassifier(idx int, calls *int) client.Classifier {
	return client.ClassifierFunc(func(ctx context.Context, text string) (int, error) {
		*calls++
		return idx, nil
	})
}

func TestClassifierCache_HitSkipsModel(t *testing.T) {
	_, rdb := setupRedis(t)
	calls := 0
	c := NewClassifierCache(rdb, countingClassifier(1, &calls), "binary", time.Minute)
	ctx := context.Background()

	first, err := c.Classify(ctx, "Request: GET /. Host: localhost.")
	require.NoError(t, err)
	second, err := c.Classify(ctx, "Request: GET /. Host: localhost.")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, calls)
}

func TestClassifierCache_TTL(t *testing.T) {
	mr, rdb := setupRedis(t)
	calls := 0
	c := NewClassifierCache(rdb, countingClassifier(0, &calls), "binary", time.Minute)
	ctx := context.Background()

	_, err := c.Classify(ctx, "a")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = c.Classify(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClassifierCache_ModelNamespacesKeys(t *testing.T) {
	_, rdb := setupRedis(t)
	binaryCalls, ternaryCalls := 0, 0
	ctx := context.Background()

	_, err := NewClassifierCache(rdb, countingClassifier(1, &binaryCalls), "binary", time.Minute).Classify(ctx, "x")
	require.NoError(t, err)
	idx, err := NewClassifierCache(rdb, countingClassifier(2, &ternaryCalls), "ternary", time.Minute).Classify(ctx, "x")
	require.NoError(t, err)

	assert.Equal(t, 2, idx)
	assert.Equal(t, 1, ternaryCalls)
}

func TestClassifierCache_ErrorsNotCached(t *testing.T) {
	_, rdb := setupRedis(t)
	calls := 0
	failing := client.ClassifierFunc(func(ctx context.Context, text string) (int, error) {
		calls++
		return 0, errors.New("model down")
	})
	c := NewClassifierCache(rdb, failing, "binary", time.Minute)

	_, err := c.Classify(context.Background(), "x")
	assert.Error(t, err)
	_, err = c.Classify(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestClassifierCache_RedisDownFallsThrough(t *testing.T) {
	mr, rdb := setupRedis(t)
	calls := 0
	c := NewClassifierCache(rdb, countingClassifier(1, &calls), "binary", time.Minute)
	mr.Close()

	idx, err := c.Classify(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, calls)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = NewRedisClient(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
