package workers

import (
	"context"
	"sync"
	"time"
)

// Worker defines the interface for background workers
type Worker interface {
	// Start begins the worker's loop
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker
	Stop(ctx context.Context) error

	// Name returns the worker's name
	Name() string

	// IsRunning returns whether the worker is currently running
	IsRunning() bool

	// Stats returns worker statistics
	Stats() WorkerStats
}

// WorkerStats represents statistics about a worker
type WorkerStats struct {
	WorkerName    string        `json:"worker_name"`
	SweepsRun     int64         `json:"sweeps_run"`
	SweepsFailed  int64         `json:"sweeps_failed"`
	ItemsRemoved  int64         `json:"items_removed"`
	LastSweepTime time.Time     `json:"last_sweep_time,omitempty"`
	Uptime        time.Duration `json:"uptime"`
	IsRunning     bool          `json:"is_running"`
}

// WorkerConfig holds configuration for workers
type WorkerConfig struct {
	// WorkerName is a unique identifier for this worker instance
	WorkerName string

	// PollInterval is how often the worker wakes up
	PollInterval time.Duration

	// ShutdownTimeout is how long to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultWorkerConfig returns a worker configuration with sensible defaults
func DefaultWorkerConfig(workerName string) WorkerConfig {
	return WorkerConfig{
		WorkerName:      workerName,
		PollInterval:    time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// BaseWorker provides common functionality for workers
type BaseWorker struct {
	config  WorkerConfig
	running bool
	mu      sync.RWMutex

	// Stats tracking
	sweepsRun     int64
	sweepsFailed  int64
	itemsRemoved  int64
	startTime     time.Time
	lastSweepTime time.Time
	statsMu       sync.RWMutex
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(config WorkerConfig) *BaseWorker {
	return &BaseWorker{
		config: config,
	}
}

// Name returns the worker's name
func (w *BaseWorker) Name() string {
	return w.config.WorkerName
}

// IsRunning returns whether the worker is currently running
func (w *BaseWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// setRunning sets the running state
func (w *BaseWorker) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = running
	if running {
		w.startTime = time.Now()
	}
}

// Stats returns worker statistics
func (w *BaseWorker) Stats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	var uptime time.Duration
	if !w.startTime.IsZero() {
		uptime = time.Since(w.startTime)
	}

	return WorkerStats{
		WorkerName:    w.config.WorkerName,
		SweepsRun:     w.sweepsRun,
		SweepsFailed:  w.sweepsFailed,
		ItemsRemoved:  w.itemsRemoved,
		LastSweepTime: w.lastSweepTime,
		Uptime:        uptime,
		IsRunning:     w.IsRunning(),
	}
}

// recordSweep records a completed sweep and how many items it removed
func (w *BaseWorker) recordSweep(removed int) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.sweepsRun++
	w.itemsRemoved += int64(removed)
	w.lastSweepTime = time.Now()
}

// recordSweepFailure records a failed sweep
func (w *BaseWorker) recordSweepFailure() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.sweepsRun++
	w.sweepsFailed++
	w.lastSweepTime = time.Now()
}

// Config returns the worker configuration
func (w *BaseWorker) Config() WorkerConfig {
	return w.config
}

// WorkerError represents a worker-specific error
type WorkerError struct {
	WorkerName string
	Operation  string
	Err        error
	Message    string
}

func (e *WorkerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.WorkerName + ":" + e.Operation
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// NewWorkerError creates a new worker error
func NewWorkerError(workerName, operation string, err error, message string) *WorkerError {
	return &WorkerError{
		WorkerName: workerName,
		Operation:  operation,
		Err:        err,
		Message:    message,
	}
}
