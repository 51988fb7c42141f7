package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"docchat/internal/models"
)

// CacheEntry is a previously generated answer keyed by the question, the
// document, and the conversation window it was produced under
type CacheEntry struct {
	Key        string            `json:"key"`
	Question   string            `json:"question"` // normalized form
	AnswerText string            `json:"answer_text"`
	Citations  []models.Citation `json:"citations,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	HitCount   int               `json:"hit_count"`
}

// CacheStats reports cache effectiveness counters
type CacheStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// ResponseCache maps a (question, document, context-window) fingerprint
// to a previously generated answer. A miss is the normal path that
// triggers generation, never an error. Implementations must keep Store
// and Evict atomic with respect to each other; stale reads are fine.
type ResponseCache interface {
	// Lookup returns the cached entry with its hit count incremented, or
	// (nil, nil) on a miss
	Lookup(ctx context.Context, question, documentID string, window []models.Message) (*CacheEntry, error)

	// Store inserts or overwrites the entry for the key, resetting its
	// creation time and hit count
	Store(ctx context.Context, question, documentID string, window []models.Message, answerText string, citations []models.Citation) error

	// Evict removes expired entries and, if over capacity, the least
	// recently used entries. Returns the number removed.
	Evict(ctx context.Context) (int, error)

	// Stats returns effectiveness counters
	Stats(ctx context.Context) (CacheStats, error)

	// Close releases any backing resources
	Close() error
}

// NormalizeQuestion canonicalizes question text before key derivation:
// lowercase, collapsed whitespace, and trailing punctuation stripped, so
// cosmetic variations of the same question share a cache entry.
func NormalizeQuestion(question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	return strings.TrimRight(normalized, " ?!.…")
}

// CacheKey derives the deterministic fingerprint for a lookup. The key
// covers the context window content, not just the question: the same
// question asked after a different conversation may legitimately get a
// different answer.
func CacheKey(question, documentID string, window []models.Message) string {
	h := sha256.New()
	h.Write([]byte(NormalizeQuestion(question)))
	h.Write([]byte{0})
	h.Write([]byte(documentID))
	h.Write([]byte{0})
	for _, msg := range window {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0x1f})
		h.Write([]byte(msg.Text))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheError wraps a failure in a cache operation with its context
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("response cache %s failed for key %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("response cache %s failed: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError creates a CacheError
func NewCacheError(op, key string, err error) *CacheError {
	return &CacheError{Op: op, Key: key, Err: err}
}
