package services

// charsPerToken is the rough chars-per-token ratio for English text.
// Good enough for budget thresholds, not for billing.
const charsPerToken = 4

// EstimateTokens estimates the token cost of a string. Deterministic and
// monotonic in text length; the empty string costs zero. The conversation
// context and the query optimizer share this single implementation so
// their budget math never drifts apart.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	// Round up so short non-empty strings still cost at least one token
	return (len(text) + charsPerToken - 1) / charsPerToken
}
