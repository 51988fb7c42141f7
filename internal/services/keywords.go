package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// KeywordExtractor pulls salient terms out of free text using POS tags
// and named entities. Used for topic tracking and for scoring passage
// relevance during context optimization.
type KeywordExtractor struct {
	stopWords map[string]bool
	minLength int
}

// NewKeywordExtractor creates a keyword extractor with the default
// English stop word list
func NewKeywordExtractor() *KeywordExtractor {
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
		"be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
		"does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
		"this": true, "that": true, "these": true, "those": true, "i": true, "you": true,
		"he": true, "she": true, "it": true, "we": true, "they": true, "my": true,
		"your": true, "his": true, "her": true, "its": true, "our": true, "their": true,
		"what": true, "which": true, "who": true, "when": true, "where": true,
		"why": true, "how": true, "from": true, "as": true, "about": true,
	}

	return &KeywordExtractor{
		stopWords: stopWords,
		minLength: 3,
	}
}

// KeywordResult represents a keyword with its frequency and importance
type KeywordResult struct {
	Word      string  `json:"word"`
	Frequency int     `json:"frequency"`
	Score     float64 `json:"score"`
	PosTag    string  `json:"pos_tag"`
}

// ExtractKeywords extracts scored keywords from text, ranked by importance
func (ke *KeywordExtractor) ExtractKeywords(text string) ([]KeywordResult, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}

	wordFreq := make(map[string]*KeywordResult)

	for _, tok := range doc.Tokens() {
		word := strings.ToLower(tok.Text)
		if ke.shouldSkipWord(word, tok.Tag) {
			continue
		}

		score := posTagScore(tok.Tag)
		if existing, ok := wordFreq[word]; ok {
			existing.Frequency++
			existing.Score += score
		} else {
			wordFreq[word] = &KeywordResult{
				Word:      word,
				Frequency: 1,
				Score:     score,
				PosTag:    tok.Tag,
			}
		}
	}

	// Named entities get a boost: they are usually what the text is about
	for _, ent := range doc.Entities() {
		word := strings.ToLower(ent.Text)
		if len(word) < ke.minLength || ke.stopWords[word] {
			continue
		}
		if existing, ok := wordFreq[word]; ok {
			existing.Score += 2.0
		} else {
			wordFreq[word] = &KeywordResult{
				Word:      word,
				Frequency: 1,
				Score:     2.0,
				PosTag:    "NE_" + ent.Label,
			}
		}
	}

	keywords := make([]KeywordResult, 0, len(wordFreq))
	for _, result := range wordFreq {
		result.Score = result.Score * float64(result.Frequency)
		keywords = append(keywords, *result)
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Word < keywords[j].Word
	})

	return keywords, nil
}

// ExtractTopKeywords returns the top N keywords by score
func (ke *KeywordExtractor) ExtractTopKeywords(text string, limit int) ([]KeywordResult, error) {
	keywords, err := ke.ExtractKeywords(text)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(keywords) > limit {
		return keywords[:limit], nil
	}
	return keywords, nil
}

// ExtractKeywordStrings returns just the keyword strings. Falls back to a
// plain stopword-filtered split when NLP tokenization fails, so callers
// always get something usable.
func (ke *KeywordExtractor) ExtractKeywordStrings(text string, limit int) []string {
	keywords, err := ke.ExtractTopKeywords(text, limit)
	if err != nil {
		return ke.fallbackKeywords(text, limit)
	}

	result := make([]string, len(keywords))
	for i, kw := range keywords {
		result[i] = kw.Word
	}
	return result
}

// fallbackKeywords is the dumb path: lowercase, drop stop words and short
// tokens, keep first-seen order
func (ke *KeywordExtractor) fallbackKeywords(text string, limit int) []string {
	seen := make(map[string]bool)
	var result []string

	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if len(w) < ke.minLength || ke.stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		result = append(result, w)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return result
}

// IsStopWord reports whether the word is on the stop list
func (ke *KeywordExtractor) IsStopWord(word string) bool {
	return ke.stopWords[strings.ToLower(word)]
}

// shouldSkipWord filters tokens that carry no topical signal
func (ke *KeywordExtractor) shouldSkipWord(word, posTag string) bool {
	if len(word) < ke.minLength {
		return true
	}
	if ke.stopWords[word] {
		return true
	}
	if isPureNumber(word) || isPunctuation(word) {
		return true
	}

	// Determiners, prepositions, pronouns and friends
	skipTags := map[string]bool{
		"DT": true, "IN": true, "TO": true, "CC": true,
		"PRP": true, "PRP$": true, "WP": true, "WDT": true,
	}
	return skipTags[posTag]
}

// posTagScore assigns importance based on part of speech. Nouns and proper
// nouns dominate topic extraction; adverbs barely register.
func posTagScore(posTag string) float64 {
	scores := map[string]float64{
		"NN": 1.5, "NNS": 1.5,
		"NNP": 2.0, "NNPS": 2.0,
		"VB": 1.2, "VBD": 1.2, "VBG": 1.2, "VBN": 1.2, "VBP": 1.2, "VBZ": 1.2,
		"JJ": 1.3, "JJR": 1.3, "JJS": 1.3,
		"RB": 0.8, "RBR": 0.8, "RBS": 0.8,
	}
	if score, ok := scores[posTag]; ok {
		return score
	}
	return 1.0
}

func isPureNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return len(s) > 0
}
