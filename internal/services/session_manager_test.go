package services

import (
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager() *SessionManager {
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	cache := newTestCache()
	return NewSessionManager(cache, DefaultChatManagerConfig(), logger)
}

func TestSessionManager_GetOrCreateReturnsSameInstance(t *testing.T) {
	sm := newTestSessionManager()

	first := sm.GetOrCreate("session-1")
	second := sm.GetOrCreate("session-1")

	assert.Same(t, first, second)
	assert.Equal(t, 1, sm.Count())
}

func TestSessionManager_SessionsAreIsolated(t *testing.T) {
	sm := newTestSessionManager()

	a := sm.GetOrCreate("session-a")
	b := sm.GetOrCreate("session-b")

	require.NotSame(t, a, b)
	assert.Equal(t, 2, sm.Count())
}

func TestSessionManager_Get(t *testing.T) {
	sm := newTestSessionManager()

	_, ok := sm.Get("missing")
	assert.False(t, ok)

	created := sm.GetOrCreate("session-1")
	got, ok := sm.Get("session-1")
	require.True(t, ok)
	assert.Same(t, created, got)
}

func TestSessionManager_Delete(t *testing.T) {
	sm := newTestSessionManager()

	sm.GetOrCreate("session-1")

	assert.True(t, sm.Delete("session-1"))
	assert.False(t, sm.Delete("session-1"))
	assert.Equal(t, 0, sm.Count())
}
