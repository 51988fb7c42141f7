package repositories

import (
	"context"
	"sync"
	"time"

	"docchat/internal/models"
)

const (
	// DefaultCacheTTL is how long an entry stays valid
	DefaultCacheTTL = 30 * time.Minute
	// DefaultCacheCapacity is the entry ceiling before LRU eviction
	DefaultCacheCapacity = 100
)

// MemoryCacheConfig holds limits for the in-process cache
type MemoryCacheConfig struct {
	TTL      time.Duration
	Capacity int
}

// DefaultMemoryCacheConfig returns the standard session-scoped limits
func DefaultMemoryCacheConfig() MemoryCacheConfig {
	return MemoryCacheConfig{
		TTL:      DefaultCacheTTL,
		Capacity: DefaultCacheCapacity,
	}
}

// memoryEntry pairs a cache entry with its LRU bookkeeping
type memoryEntry struct {
	entry      CacheEntry
	lastAccess time.Time
}

// MemoryResponseCache is the in-process ResponseCache: TTL expiry plus
// LRU eviction over a capacity bound. All mutation is mutex-guarded so
// the cache can be shared across concurrently active sessions. Lookups
// return copies, so eviction never yanks an entry out from under a
// reader.
type MemoryResponseCache struct {
	mu      sync.Mutex
	config  MemoryCacheConfig
	entries map[string]*memoryEntry

	hits      int64
	misses    int64
	evictions int64
}

// NewMemoryResponseCache creates an in-process response cache
func NewMemoryResponseCache(config MemoryCacheConfig) *MemoryResponseCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheTTL
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultCacheCapacity
	}

	return &MemoryResponseCache{
		config:  config,
		entries: make(map[string]*memoryEntry),
	}
}

// Lookup returns the cached entry for the (question, document, window)
// tuple, or (nil, nil) on a miss. A hit increments the entry's hit count.
func (c *MemoryResponseCache) Lookup(ctx context.Context, question, documentID string, window []models.Message) (*CacheEntry, error) {
	key := CacheKey(question, documentID, window)

	c.mu.Lock()
	defer c.mu.Unlock()

	me, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, nil
	}

	if time.Since(me.entry.CreatedAt) > c.config.TTL {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, nil
	}

	me.entry.HitCount++
	me.lastAccess = time.Now()
	c.hits++

	entry := me.entry
	entry.Citations = append([]models.Citation(nil), me.entry.Citations...)
	return &entry, nil
}

// Store inserts or overwrites the entry for the tuple, evicting
// opportunistically first
func (c *MemoryResponseCache) Store(ctx context.Context, question, documentID string, window []models.Message, answerText string, citations []models.Citation) error {
	key := CacheKey(question, documentID, window)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked()

	c.entries[key] = &memoryEntry{
		entry: CacheEntry{
			Key:        key,
			Question:   NormalizeQuestion(question),
			AnswerText: answerText,
			Citations:  append([]models.Citation(nil), citations...),
			CreatedAt:  time.Now(),
			HitCount:   0,
		},
		lastAccess: time.Now(),
	}

	return nil
}

// Evict removes expired entries and trims to capacity, returning the
// number removed
func (c *MemoryResponseCache) Evict(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked(), nil
}

// evictLocked runs the TTL sweep then LRU-trims to capacity. Caller must
// hold the mutex.
func (c *MemoryResponseCache) evictLocked() int {
	removed := 0
	now := time.Now()

	for key, me := range c.entries {
		if now.Sub(me.entry.CreatedAt) > c.config.TTL {
			delete(c.entries, key)
			removed++
		}
	}

	for len(c.entries) >= c.config.Capacity {
		oldestKey := ""
		var oldestAccess time.Time
		for key, me := range c.entries {
			if oldestKey == "" || me.lastAccess.Before(oldestAccess) {
				oldestKey = key
				oldestAccess = me.lastAccess
			}
		}
		delete(c.entries, oldestKey)
		removed++
	}

	c.evictions += int64(removed)
	return removed
}

// Stats returns effectiveness counters
func (c *MemoryResponseCache) Stats(ctx context.Context) (CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}, nil
}

// Close is a no-op for the in-process cache
func (c *MemoryResponseCache) Close() error {
	return nil
}
