package services

import (
	"log"
	"sync"

	"docchat/internal/repositories"
)

// SessionManager hands out one ChatManager per chat session. All
// sessions share the injected response cache; the per-session history
// stays isolated.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*ChatManager
	cache    repositories.ResponseCache
	config   ChatManagerConfig
	logger   *log.Logger
}

// NewSessionManager creates a session manager
func NewSessionManager(cache repositories.ResponseCache, config ChatManagerConfig, logger *log.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*ChatManager),
		cache:    cache,
		config:   config,
		logger:   logger,
	}
}

// GetOrCreate returns the session's chat manager, creating it on first use
func (sm *SessionManager) GetOrCreate(sessionID string) *ChatManager {
	sm.mu.RLock()
	mgr, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if ok {
		return mgr
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if mgr, ok := sm.sessions[sessionID]; ok {
		return mgr
	}

	mgr = NewChatManager(sm.cache, sm.config, sm.logger)
	sm.sessions[sessionID] = mgr
	sm.logger.Printf("Created chat session %q (total: %d)", sessionID, len(sm.sessions))
	return mgr
}

// Get returns the session's chat manager if it exists
func (sm *SessionManager) Get(sessionID string) (*ChatManager, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	mgr, ok := sm.sessions[sessionID]
	return mgr, ok
}

// Delete discards a session and its history
func (sm *SessionManager) Delete(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[sessionID]; !ok {
		return false
	}
	delete(sm.sessions, sessionID)
	return true
}

// Count returns the number of active sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
