package workers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorkerConfig(t *testing.T) {
	config := DefaultWorkerConfig("test-worker")

	assert.Equal(t, "test-worker", config.WorkerName)
	assert.Equal(t, time.Minute, config.PollInterval)
	assert.Equal(t, 10*time.Second, config.ShutdownTimeout)
}

func TestNewBaseWorker(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("base-worker"))

	assert.NotNil(t, worker)
	assert.Equal(t, "base-worker", worker.Name())
	assert.False(t, worker.IsRunning())
}

func TestBaseWorker_IsRunning(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("test-worker"))

	assert.False(t, worker.IsRunning())

	worker.setRunning(true)
	assert.True(t, worker.IsRunning())

	worker.setRunning(false)
	assert.False(t, worker.IsRunning())
}

func TestBaseWorker_Stats(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("test-worker"))

	stats := worker.Stats()
	assert.Equal(t, "test-worker", stats.WorkerName)
	assert.Equal(t, int64(0), stats.SweepsRun)
	assert.False(t, stats.IsRunning)

	worker.setRunning(true)
	worker.recordSweep(5)
	worker.recordSweepFailure()

	stats = worker.Stats()
	assert.Equal(t, int64(2), stats.SweepsRun)
	assert.Equal(t, int64(1), stats.SweepsFailed)
	assert.Equal(t, int64(5), stats.ItemsRemoved)
	assert.False(t, stats.LastSweepTime.IsZero())
	assert.True(t, stats.IsRunning)
}

func TestWorkerError(t *testing.T) {
	inner := errors.New("boom")

	err := NewWorkerError("test-worker", "start", inner, "")
	assert.Contains(t, err.Error(), "test-worker")
	assert.Contains(t, err.Error(), "start")
	assert.ErrorIs(t, err, inner)

	err = NewWorkerError("test-worker", "stop", nil, "custom message")
	assert.Equal(t, "custom message", err.Error())
}
