package repositories

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"docchat/internal/models"
)

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "What Is The Summary", "what is the summary"},
		{"trailing question mark", "What is the summary?", "what is the summary"},
		{"trailing space", "what is the summary ", "what is the summary"},
		{"collapsed whitespace", "what   is\tthe  summary", "what is the summary"},
		{"trailing exclamation", "explain the contract!", "explain the contract"},
		{"internal punctuation kept", "what is clause 4.2?", "what is clause 4.2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeQuestion(tt.input))
		})
	}
}

func TestNormalizeQuestion_CosmeticVariantsCollide(t *testing.T) {
	assert.Equal(t,
		NormalizeQuestion("What is the summary?"),
		NormalizeQuestion("what is the summary "))
}

func TestCacheKey_Deterministic(t *testing.T) {
	window := []models.Message{
		{Role: models.RoleUser, Text: "What are the payment terms?"},
		{Role: models.RoleAssistant, Text: "Net 30 days."},
	}

	key1 := CacheKey("What is the summary?", "doc-1", window)
	key2 := CacheKey("What is the summary?", "doc-1", window)

	assert.Equal(t, key1, key2)
}

func TestCacheKey_CosmeticQuestionVariantsCollide(t *testing.T) {
	key1 := CacheKey("What is the summary?", "doc-1", nil)
	key2 := CacheKey("what is the summary ", "doc-1", nil)

	assert.Equal(t, key1, key2)
}

func TestCacheKey_DifferentDocumentDiffers(t *testing.T) {
	key1 := CacheKey("What is the summary?", "doc-1", nil)
	key2 := CacheKey("What is the summary?", "doc-2", nil)

	assert.NotEqual(t, key1, key2)
}

func TestCacheKey_DifferentQuestionDiffers(t *testing.T) {
	key1 := CacheKey("What is the summary?", "doc-1", nil)
	key2 := CacheKey("What are the payment terms?", "doc-1", nil)

	assert.NotEqual(t, key1, key2)
}

func TestCacheKey_WindowContentMatters(t *testing.T) {
	windowA := []models.Message{{Role: models.RoleUser, Text: "Earlier question about payments."}}
	windowB := []models.Message{{Role: models.RoleUser, Text: "Earlier question about termination."}}

	key1 := CacheKey("What is the summary?", "doc-1", windowA)
	key2 := CacheKey("What is the summary?", "doc-1", windowB)
	key3 := CacheKey("What is the summary?", "doc-1", nil)

	assert.NotEqual(t, key1, key2)
	assert.NotEqual(t, key1, key3)
}

func TestCacheKey_RoleMatters(t *testing.T) {
	windowA := []models.Message{{Role: models.RoleUser, Text: "same text"}}
	windowB := []models.Message{{Role: models.RoleAssistant, Text: "same text"}}

	assert.NotEqual(t,
		CacheKey("q", "doc-1", windowA),
		CacheKey("q", "doc-1", windowB))
}

func TestCacheError(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewCacheError("lookup", "abc123", inner)

	assert.Contains(t, err.Error(), "lookup")
	assert.Contains(t, err.Error(), "abc123")
	assert.ErrorIs(t, err, inner)

	err = NewCacheError("evict", "", inner)
	assert.Contains(t, err.Error(), "evict")
}
