package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens_EmptyString(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
}

func TestEstimateTokens_KnownLengths(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"single char rounds up", "a", 1},
		{"exactly one token", "abcd", 1},
		{"one over rounds up", "abcde", 2},
		{"two tokens", "abcdefgh", 2},
		{"forty tokens", strings.Repeat("x", 160), 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EstimateTokens(tt.text))
		})
	}
}

func TestEstimateTokens_MonotonicInLength(t *testing.T) {
	text := ""
	prev := 0
	for i := 0; i < 200; i++ {
		text += "a"
		est := EstimateTokens(text)
		assert.GreaterOrEqual(t, est, prev, "estimate shrank when text grew")
		prev = est
	}
}

func TestEstimateTokens_NeverNegative(t *testing.T) {
	for _, text := range []string{"", " ", "hello", strings.Repeat("word ", 1000)} {
		assert.GreaterOrEqual(t, EstimateTokens(text), 0)
	}
}
