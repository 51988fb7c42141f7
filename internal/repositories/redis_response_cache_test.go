package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
)

// setupTestRedis creates a test Redis client
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use separate DB for testing
	})

	// Ping to ensure connection
	ctx := context.Background()
	err := client.Ping(ctx).Err()
	require.NoError(t, err, "Redis must be running for tests")

	// Flush test database
	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func TestRedisCache_LookupMiss(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, DefaultRedisCacheConfig())
	ctx := context.Background()

	entry, err := cache.Lookup(ctx, "What is the summary?", "doc-1", nil)

	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRedisCache_StoreAndLookup(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, DefaultRedisCacheConfig())
	ctx := context.Background()

	citations := []models.Citation{{
		QuotedText:     "Net 30 days from invoice date.",
		LocationHint:   "Page 2",
		PageNumbers:    []int{2},
		ConfidenceTier: models.ConfidenceHigh,
		Classification: models.ClassDirectQuote,
		Verified:       true,
		Similarity:     1.0,
	}}

	window := []models.Message{{Role: models.RoleUser, Text: "Earlier question."}}

	err := cache.Store(ctx, "What are the payment terms?", "doc-1", window, "Net 30 days.", citations)
	require.NoError(t, err)

	entry, err := cache.Lookup(ctx, "What are the payment terms?", "doc-1", window)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "what are the payment terms", entry.Question)
	assert.Equal(t, "Net 30 days.", entry.AnswerText)
	assert.Equal(t, 1, entry.HitCount)
	assert.False(t, entry.CreatedAt.IsZero())

	require.Len(t, entry.Citations, 1)
	assert.Equal(t, "Net 30 days from invoice date.", entry.Citations[0].QuotedText)
	assert.Equal(t, models.ConfidenceHigh, entry.Citations[0].ConfidenceTier)
	assert.True(t, entry.Citations[0].Verified)
}

func TestRedisCache_HitCountIncrements(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, DefaultRedisCacheConfig())
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "q", "doc-1", nil, "answer", nil))

	for want := 1; want <= 3; want++ {
		entry, err := cache.Lookup(ctx, "q", "doc-1", nil)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, want, entry.HitCount)
	}
}

func TestRedisCache_CosmeticVariantHits(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, DefaultRedisCacheConfig())
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "What is the summary?", "doc-1", nil, "answer", nil))

	entry, err := cache.Lookup(ctx, "what is the summary ", "doc-1", nil)
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestRedisCache_DifferentWindowMisses(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, DefaultRedisCacheConfig())
	ctx := context.Background()

	windowA := []models.Message{{Role: models.RoleUser, Text: "about payments"}}
	windowB := []models.Message{{Role: models.RoleUser, Text: "about termination"}}

	require.NoError(t, cache.Store(ctx, "q", "doc-1", windowA, "answer", nil))

	entry, err := cache.Lookup(ctx, "q", "doc-1", windowB)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, RedisCacheConfig{TTL: 50 * time.Millisecond, Capacity: 10})
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "q", "doc-1", nil, "answer", nil))

	time.Sleep(100 * time.Millisecond)

	entry, err := cache.Lookup(ctx, "q", "doc-1", nil)
	require.NoError(t, err)
	assert.Nil(t, entry, "expired entry should read as a miss")
}

func TestRedisCache_TrimsToCapacity(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, RedisCacheConfig{TTL: time.Hour, Capacity: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Store(ctx, fmt.Sprintf("q%d", i), "doc-1", nil, "answer", nil))
		time.Sleep(time.Millisecond)
	}

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.Entries, 3)

	// Oldest entries fell out, newest survive
	entry, err := cache.Lookup(ctx, "q0", "doc-1", nil)
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = cache.Lookup(ctx, "q4", "doc-1", nil)
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestRedisCache_EvictDropsStaleIndexEntries(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()
	cache := NewRedisResponseCache(client, RedisCacheConfig{TTL: 50 * time.Millisecond, Capacity: 10})
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "q1", "doc-1", nil, "answer", nil))
	require.NoError(t, cache.Store(ctx, "q2", "doc-1", nil, "answer", nil))

	time.Sleep(100 * time.Millisecond)

	removed, err := cache.Evict(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}
