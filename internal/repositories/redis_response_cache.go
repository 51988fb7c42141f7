package repositories

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"docchat/internal/models"
)

const (
	// Redis key prefixes
	cacheEntryKeyPrefix = "respcache:entry:"
	cacheIndexKey       = "respcache:index"

	// Hash fields per entry
	fieldQuestion  = "question"
	fieldAnswer    = "answer_text"
	fieldCitations = "citations"
	fieldCreatedAt = "created_at"
	fieldHitCount  = "hit_count"
)

// RedisCacheConfig holds limits for the shared cache
type RedisCacheConfig struct {
	TTL      time.Duration
	Capacity int
}

// DefaultRedisCacheConfig returns the standard shared-deployment limits
func DefaultRedisCacheConfig() RedisCacheConfig {
	return RedisCacheConfig{
		TTL:      DefaultCacheTTL,
		Capacity: 1000,
	}
}

// RedisResponseCache implements ResponseCache on Redis for deployments
// where the cache is shared across sessions. Entries live in hashes with
// a native TTL; a sorted set scored by last access drives LRU trimming.
// Hit counting uses HIncrBy so concurrent lookups stay atomic.
type RedisResponseCache struct {
	client *redis.Client
	config RedisCacheConfig

	hits      int64
	misses    int64
	evictions int64
}

// NewRedisResponseCache creates a Redis-backed response cache
func NewRedisResponseCache(client *redis.Client, config RedisCacheConfig) *RedisResponseCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheTTL
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultRedisCacheConfig().Capacity
	}

	return &RedisResponseCache{
		client: client,
		config: config,
	}
}

// Lookup returns the cached entry, incrementing its hit count, or
// (nil, nil) when the key is absent or expired
func (c *RedisResponseCache) Lookup(ctx context.Context, question, documentID string, window []models.Message) (*CacheEntry, error) {
	key := CacheKey(question, documentID, window)
	entryKey := cacheEntryKeyPrefix + key

	fields, err := c.client.HGetAll(ctx, entryKey).Result()
	if err != nil {
		return nil, NewCacheError("lookup", key, err)
	}
	if len(fields) == 0 {
		atomic.AddInt64(&c.misses, 1)
		return nil, nil
	}

	// Bump hit count and recency together
	pipe := c.client.TxPipeline()
	hitCmd := pipe.HIncrBy(ctx, entryKey, fieldHitCount, 1)
	pipe.ZAdd(ctx, cacheIndexKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, NewCacheError("lookup", key, err)
	}

	entry, err := entryFromFields(key, fields)
	if err != nil {
		return nil, NewCacheError("lookup", key, err)
	}
	entry.HitCount = int(hitCmd.Val())

	atomic.AddInt64(&c.hits, 1)
	return entry, nil
}

// Store inserts or overwrites the entry for the tuple, trimming to
// capacity opportunistically
func (c *RedisResponseCache) Store(ctx context.Context, question, documentID string, window []models.Message, answerText string, citations []models.Citation) error {
	key := CacheKey(question, documentID, window)
	entryKey := cacheEntryKeyPrefix + key

	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return NewCacheError("store", key, err)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, entryKey) // reset hit count on overwrite
	pipe.HSet(ctx, entryKey,
		fieldQuestion, NormalizeQuestion(question),
		fieldAnswer, answerText,
		fieldCitations, string(citationsJSON),
		fieldCreatedAt, time.Now().Format(time.RFC3339Nano),
		fieldHitCount, 0,
	)
	pipe.Expire(ctx, entryKey, c.config.TTL)
	pipe.ZAdd(ctx, cacheIndexKey, redis.Z{Score: float64(time.Now().UnixNano()), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return NewCacheError("store", key, err)
	}

	if _, err := c.trimToCapacity(ctx); err != nil {
		return err
	}

	return nil
}

// Evict drops index entries whose hashes have expired and trims the
// cache to capacity, returning the number removed
func (c *RedisResponseCache) Evict(ctx context.Context) (int, error) {
	keys, err := c.client.ZRange(ctx, cacheIndexKey, 0, -1).Result()
	if err != nil {
		return 0, NewCacheError("evict", "", err)
	}

	removed := 0
	for _, key := range keys {
		exists, err := c.client.Exists(ctx, cacheEntryKeyPrefix+key).Result()
		if err != nil {
			return removed, NewCacheError("evict", key, err)
		}
		if exists == 0 {
			if err := c.client.ZRem(ctx, cacheIndexKey, key).Err(); err != nil {
				return removed, NewCacheError("evict", key, err)
			}
			removed++
		}
	}

	trimmed, err := c.trimToCapacity(ctx)
	if err != nil {
		return removed, err
	}
	removed += trimmed

	atomic.AddInt64(&c.evictions, int64(removed))
	return removed, nil
}

// trimToCapacity removes least-recently-used entries until the cache is
// back under its capacity bound
func (c *RedisResponseCache) trimToCapacity(ctx context.Context) (int, error) {
	count, err := c.client.ZCard(ctx, cacheIndexKey).Result()
	if err != nil {
		return 0, NewCacheError("trim", "", err)
	}
	if count <= int64(c.config.Capacity) {
		return 0, nil
	}

	over := count - int64(c.config.Capacity)
	oldest, err := c.client.ZRange(ctx, cacheIndexKey, 0, over-1).Result()
	if err != nil {
		return 0, NewCacheError("trim", "", err)
	}

	pipe := c.client.TxPipeline()
	for _, key := range oldest {
		pipe.Del(ctx, cacheEntryKeyPrefix+key)
		pipe.ZRem(ctx, cacheIndexKey, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, NewCacheError("trim", "", err)
	}

	return len(oldest), nil
}

// Stats returns effectiveness counters
func (c *RedisResponseCache) Stats(ctx context.Context) (CacheStats, error) {
	count, err := c.client.ZCard(ctx, cacheIndexKey).Result()
	if err != nil {
		return CacheStats{}, NewCacheError("stats", "", err)
	}

	return CacheStats{
		Entries:   int(count),
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}, nil
}

// Close closes the Redis connection
func (c *RedisResponseCache) Close() error {
	return c.client.Close()
}

// entryFromFields reconstructs a CacheEntry from its Redis hash fields
func entryFromFields(key string, fields map[string]string) (*CacheEntry, error) {
	entry := &CacheEntry{
		Key:        key,
		Question:   fields[fieldQuestion],
		AnswerText: fields[fieldAnswer],
	}

	if raw := fields[fieldCitations]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &entry.Citations); err != nil {
			return nil, err
		}
	}

	if raw := fields[fieldCreatedAt]; raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = createdAt
	}

	if raw := fields[fieldHitCount]; raw != "" {
		hits, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		entry.HitCount = hits
	}

	return entry, nil
}
