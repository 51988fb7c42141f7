package workers

import (
	"context"
	"errors"
	"log"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
	"docchat/internal/repositories"
)

// stubCache counts Evict calls; the other cache operations are unused by
// the worker
type stubCache struct {
	evictCalls int64
	evictErr   error
	removed    int
}

func (s *stubCache) Lookup(ctx context.Context, question, documentID string, window []models.Message) (*repositories.CacheEntry, error) {
	return nil, nil
}

func (s *stubCache) Store(ctx context.Context, question, documentID string, window []models.Message, answerText string, citations []models.Citation) error {
	return nil
}

func (s *stubCache) Evict(ctx context.Context) (int, error) {
	atomic.AddInt64(&s.evictCalls, 1)
	return s.removed, s.evictErr
}

func (s *stubCache) Stats(ctx context.Context) (repositories.CacheStats, error) {
	return repositories.CacheStats{}, nil
}

func (s *stubCache) Close() error {
	return nil
}

func newTestEvictionWorker(cache repositories.ResponseCache) *EvictionWorker {
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	config := WorkerConfig{
		WorkerName:      "test-eviction-worker",
		PollInterval:    10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	}
	return NewEvictionWorker(cache, config, logger)
}

func TestEvictionWorker_RunsSweeps(t *testing.T) {
	cache := &stubCache{removed: 2}
	worker := newTestEvictionWorker(cache)
	ctx := context.Background()

	require.NoError(t, worker.Start(ctx))
	assert.True(t, worker.IsRunning())

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, worker.Stop(ctx))

	assert.False(t, worker.IsRunning())
	assert.Greater(t, atomic.LoadInt64(&cache.evictCalls), int64(0))

	stats := worker.Stats()
	assert.Greater(t, stats.SweepsRun, int64(0))
	assert.Equal(t, int64(0), stats.SweepsFailed)
	assert.Equal(t, stats.SweepsRun*2, stats.ItemsRemoved)
}

func TestEvictionWorker_RecordsFailedSweeps(t *testing.T) {
	cache := &stubCache{evictErr: errors.New("redis down")}
	worker := newTestEvictionWorker(cache)
	ctx := context.Background()

	require.NoError(t, worker.Start(ctx))
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, worker.Stop(ctx))

	stats := worker.Stats()
	assert.Greater(t, stats.SweepsFailed, int64(0))
	assert.Equal(t, stats.SweepsRun, stats.SweepsFailed)
	assert.Equal(t, int64(0), stats.ItemsRemoved)
}

func TestEvictionWorker_DoubleStartFails(t *testing.T) {
	worker := newTestEvictionWorker(&stubCache{})
	ctx := context.Background()

	require.NoError(t, worker.Start(ctx))
	defer worker.Stop(ctx)

	err := worker.Start(ctx)
	assert.Error(t, err)
}

func TestEvictionWorker_StopWithoutStart(t *testing.T) {
	worker := newTestEvictionWorker(&stubCache{})

	assert.NoError(t, worker.Stop(context.Background()))
}

func TestEvictionWorker_ContextCancellationStopsLoop(t *testing.T) {
	cache := &stubCache{}
	worker := newTestEvictionWorker(cache)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, worker.Start(ctx))

	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)

	calls := atomic.LoadInt64(&cache.evictCalls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, atomic.LoadInt64(&cache.evictCalls), "sweeps should stop after cancellation")
}
