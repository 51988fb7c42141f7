package services

import "strings"

// normalizeForSimilarity lowercases and collapses whitespace runs so that
// cosmetic differences do not affect the score
func normalizeForSimilarity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SimilarityRatio returns a normalized edit-distance similarity in [0,1].
// Symmetric: SimilarityRatio(a, b) == SimilarityRatio(b, a).
func SimilarityRatio(a, b string) float64 {
	na := []rune(normalizeForSimilarity(a))
	nb := []rune(normalizeForSimilarity(b))

	if len(na) == 0 && len(nb) == 0 {
		return 1.0
	}
	if len(na) == 0 || len(nb) == 0 {
		return 0.0
	}

	dist := levenshtein(na, nb)
	longer := len(na)
	if len(nb) > longer {
		longer = len(nb)
	}

	return 1.0 - float64(dist)/float64(longer)
}

// levenshtein computes edit distance with a rolling two-row table
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// TokenSetOverlap returns the Jaccard overlap of the two strings' word
// sets in [0,1]. Symmetric by construction.
func TokenSetOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}

	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

// QuestionSimilarity blends edit-distance and token-overlap similarity,
// taking the stronger signal. Word-order changes leave token overlap
// intact while edit distance catches small rephrasings.
func QuestionSimilarity(a, b string) float64 {
	ratio := SimilarityRatio(a, b)
	overlap := TokenSetOverlap(a, b)
	if overlap > ratio {
		return overlap
	}
	return ratio
}

// BestWindowSimilarity slides a window of the quote's word length across
// the text and returns the highest similarity found. An exact (normalized)
// substring match short-circuits to 1.0.
func BestWindowSimilarity(quote, text string) float64 {
	nq := normalizeForSimilarity(quote)
	nt := normalizeForSimilarity(text)

	if nq == "" || nt == "" {
		return 0.0
	}
	if strings.Contains(nt, nq) {
		return 1.0
	}

	quoteWords := strings.Fields(nq)
	textWords := strings.Fields(nt)
	if len(quoteWords) > len(textWords) {
		return SimilarityRatio(nq, nt)
	}

	best := 0.0
	for i := 0; i+len(quoteWords) <= len(textWords); i++ {
		window := strings.Join(textWords[i:i+len(quoteWords)], " ")
		if sim := SimilarityRatio(nq, window); sim > best {
			best = sim
		}
		if best == 1.0 {
			break
		}
	}

	return best
}
