package workers

import (
	"context"
	"log"
	"time"

	"docchat/internal/repositories"
)

// EvictionWorker periodically sweeps the response cache, dropping
// expired entries and trimming it back under capacity. Lookups already
// treat expired entries as misses, so the sweep only reclaims space; a
// missed cycle never affects correctness.
type EvictionWorker struct {
	*BaseWorker
	cache  repositories.ResponseCache
	logger *log.Logger
	stop   chan struct{}
	done   chan struct{}
}

// NewEvictionWorker creates an eviction worker for the given cache
func NewEvictionWorker(cache repositories.ResponseCache, config WorkerConfig, logger *log.Logger) *EvictionWorker {
	return &EvictionWorker{
		BaseWorker: NewBaseWorker(config),
		cache:      cache,
		logger:     logger,
	}
}

// Start begins the periodic eviction loop
func (w *EvictionWorker) Start(ctx context.Context) error {
	if w.IsRunning() {
		return NewWorkerError(w.Name(), "start", nil, "worker already running")
	}

	w.setRunning(true)
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.logger.Printf("Starting eviction worker: %s (interval: %v)", w.Name(), w.config.PollInterval)

	go w.run(ctx)
	return nil
}

// Stop gracefully shuts down the worker, waiting for an in-flight sweep
// to finish up to the shutdown timeout
func (w *EvictionWorker) Stop(ctx context.Context) error {
	if !w.IsRunning() {
		return nil
	}

	w.logger.Printf("Stopping eviction worker: %s", w.Name())
	w.setRunning(false)
	close(w.stop)

	shutdownCtx, cancel := context.WithTimeout(ctx, w.config.ShutdownTimeout)
	defer cancel()

	select {
	case <-w.done:
	case <-shutdownCtx.Done():
		return NewWorkerError(w.Name(), "stop", shutdownCtx.Err(), "")
	}

	w.logger.Printf("Eviction worker stopped: %s", w.Name())
	return nil
}

// run is the worker loop
func (w *EvictionWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stop:
			return

		case <-ticker.C:
			if !w.IsRunning() {
				return
			}
			w.sweep(ctx)
		}
	}
}

// sweep runs one eviction pass
func (w *EvictionWorker) sweep(ctx context.Context) {
	removed, err := w.cache.Evict(ctx)
	if err != nil {
		w.recordSweepFailure()
		w.logger.Printf("Eviction sweep failed: %v", err)
		return
	}

	w.recordSweep(removed)
	if removed > 0 {
		w.logger.Printf("Eviction sweep removed %d cache entries", removed)
	}
}
