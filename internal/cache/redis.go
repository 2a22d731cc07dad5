package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"webattack-detector/go-service/internal/client"
)

const keyPrefix = "webattack:prediction:"

// ClassifierCache remembers class indices per model input text so repeated
// log lines skip the model service.
type ClassifierCache struct {
	rdb   *redis.Client
	next  client.Classifier
	ttl   time.Duration
	model string
}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// NewClassifierCache wraps next. model namespaces the keys so switching the
// model or label set never serves stale classes.
func NewClassifierCache(rdb *redis.Client, next client.Classifier, model string, ttl time.Duration) *ClassifierCache {
	return &ClassifierCache{rdb: rdb, next: next, ttl: ttl, model: model}
}

// Classify returns the cached class for text or asks the wrapped classifier.
// Cache failures fall through to the classifier.
func (c *ClassifierCache) Classify(ctx context.Context, text string) (int, error) {
	key := c.key(text)

	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if idx, convErr := strconv.Atoi(val); convErr == nil {
			return idx, nil
		}
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Msg("prediction cache lookup failed")
	}

	idx, err := c.next.Classify(ctx, text)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, key, strconv.Itoa(idx), c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("prediction cache store failed")
	}
	return idx, nil
}

func (c *ClassifierCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + c.model + ":" + hex.EncodeToString(sum[:])
}
