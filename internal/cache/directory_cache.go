package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/supplylane/be-fulfillment/internal/repository"
)

// DirectoryReader is the lookup the cache fronts.
type DirectoryReader interface {
	GetBusiness(ctx context.Context, id string) (*repository.BusinessProfile, error)
}

// DirectoryCache is a read-through redis cache over the business directory.
// Redis failures are non-fatal: lookups fall through to the inner reader.
type DirectoryCache struct {
	inner DirectoryReader
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewDirectoryCache wraps a directory reader with a redis cache.
func NewDirectoryCache(inner DirectoryReader, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *DirectoryCache {
	return &DirectoryCache{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

const keyPrefix = "business:"

// GetBusiness returns the cached profile or reads through and stores it.
func (c *DirectoryCache) GetBusiness(ctx context.Context, id string) (*repository.BusinessProfile, error) {
	key := keyPrefix + id

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		b := &repository.BusinessProfile{}
		if jsonErr := json.Unmarshal(data, b); jsonErr == nil {
			return b, nil
		}
		// Corrupt entry; fall through to the source
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Str("key", key).Msg("directory cache read failed")
	}

	b, err := c.inner.GetBusiness(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(b); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.log.Warn().Err(setErr).Str("key", key).Msg("directory cache write failed")
		}
	}

	return b, nil
}
