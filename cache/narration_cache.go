package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"artlens/logger"

	"github.com/redis/go-redis/v9"
)

const narrationKeyPrefix = "narration:"

// NarrationKey hashes voice and text into the cache key shared by Redis and object storage.
func NarrationKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// NarrationCache maps a narration hash to the URL of already synthesized audio.
type NarrationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewNarrationCache returns a cache backed by client. A nil client yields a cache that always misses.
func NewNarrationCache(client *redis.Client, ttl time.Duration) *NarrationCache {
	return &NarrationCache{client: client, ttl: ttl}
}

// Get returns the cached URL for hash. A miss is ("", false, nil).
func (c *NarrationCache) Get(ctx context.Context, hash string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	url, err := c.client.Get(ctx, narrationKeyPrefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		logger.Debug("narration cache miss", logger.String("hash", hash))
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read narration cache: %w", err)
	}

	logger.Debug("narration cache hit", logger.String("hash", hash))
	return url, true, nil
}

// Set stores url under hash. data: URLs are not cached, they would bloat Redis.
func (c *NarrationCache) Set(ctx context.Context, hash, url string) error {
	if c == nil || c.client == nil || len(url) >= 5 && url[:5] == "data:" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, narrationKeyPrefix+hash, url, c.ttl).Err(); err != nil {
		logger.Error("failed to write narration cache",
			logger.String("hash", hash),
			logger.ErrorField(err))
		return fmt.Errorf("failed to write narration cache: %w", err)
	}

	logger.Debug("narration cached",
		logger.String("hash", hash),
		logger.Duration("ttl", c.ttl))
	return nil
}

// Delete drops hash from the cache.
func (c *NarrationCache) Delete(ctx context.Context, hash string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, narrationKeyPrefix+hash).Err()
}
