package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"docchat/internal/models"
)

// FormatError reports answer text that could not be interpreted for
// citation extraction. Verification is best-effort: callers show the raw
// answer instead of failing the reply.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "answer format error: " + e.Reason
}

// VerificationConfig holds the similarity thresholds that map a fuzzy
// match score to a citation classification. The thresholds are contractual
// and configurable; they are not buried in the matching logic.
type VerificationConfig struct {
	// DirectQuoteThreshold and above classifies as a direct quote
	DirectQuoteThreshold float64
	// ParaphraseThreshold and above (below direct quote) classifies as a paraphrase
	ParaphraseThreshold float64
	// InferenceThreshold and above (below paraphrase, with topical overlap)
	// classifies as an inference
	InferenceThreshold float64
}

// DefaultVerificationConfig returns the standard thresholds
func DefaultVerificationConfig() VerificationConfig {
	return VerificationConfig{
		DirectQuoteThreshold: 0.95,
		ParaphraseThreshold:  0.80,
		InferenceThreshold:   0.50,
	}
}

// StrictVerificationConfig returns tightened thresholds for workflows
// that demand more literal sourcing. Same rules, higher bars.
func StrictVerificationConfig() VerificationConfig {
	return VerificationConfig{
		DirectQuoteThreshold: 0.98,
		ParaphraseThreshold:  0.90,
		InferenceThreshold:   0.70,
	}
}

// CitationPromptAddition instructs the model to cite its sources in a
// structure the extractor can parse
const CitationPromptAddition = `You MUST cite your sources for every claim. Format your response as follows:

**Answer:** [Your detailed response]

**Source:** Page [X], Section [Y] (or "Not in document" if using general knowledge)

**Quote:** "[Exact text from the document if available]"

Always include page numbers when referencing the document. If information is not in the document, clearly state that.`

var (
	straightQuoteRe = regexp.MustCompile(`"([^"\n]{3,})"`)
	curlyQuoteRe    = regexp.MustCompile(`\x{201C}([^\x{201C}\x{201D}\n]{3,})\x{201D}`)
	sourceLineRe    = regexp.MustCompile(`(?i)\*\*Source:\*\*\s*([^\n*]+)`)
	pageHintRe      = regexp.MustCompile(`(?i)\b(?:pages?|pp?\.)\s*\d+(?:\s*[-,]\s*\d+)*`)
	sectionHintRe   = regexp.MustCompile(`(?i)\bsection\s+[0-9][0-9.]*`)

	pageSingleRe = regexp.MustCompile(`(?i)\b(?:page|p\.?)\s*(\d+)\b`)
	pageMultiRe  = regexp.MustCompile(`(?i)\b(?:pages|pp\.?)\s*([\d,\s-]+)`)
)

// hintSearchRadius is how far around a quote (in bytes) the extractor
// looks for an adjacent location hint
const hintSearchRadius = 160

// CitationEngine extracts cited spans from model answers and verifies
// them against the source document text. Pure, synchronous, no I/O.
type CitationEngine struct {
	config   VerificationConfig
	keywords *KeywordExtractor
}

// NewCitationEngine creates a citation engine with the default thresholds
func NewCitationEngine() *CitationEngine {
	return NewCitationEngineWithConfig(DefaultVerificationConfig())
}

// NewCitationEngineWithConfig creates a citation engine with custom
// verification thresholds
func NewCitationEngineWithConfig(config VerificationConfig) *CitationEngine {
	return &CitationEngine{
		config:   config,
		keywords: NewKeywordExtractor(),
	}
}

// EnhanceSystemPrompt appends the citation format requirements to a
// system prompt
func (e *CitationEngine) EnhanceSystemPrompt(prompt string) string {
	return prompt + "\n\n" + CitationPromptAddition
}

// ExtractCitations parses an answer for quoted spans and the location
// hints adjacent to them. Zero citations is not an error; only answer
// text that cannot be interpreted at all yields a FormatError.
func (e *CitationEngine) ExtractCitations(answer string) ([]models.Citation, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, &FormatError{Reason: "answer text is empty"}
	}
	if !utf8.ValidString(answer) {
		return nil, &FormatError{Reason: "answer text is not valid UTF-8"}
	}

	// A **Source:** line applies to quotes that have no hint of their own
	defaultHint := ""
	if m := sourceLineRe.FindStringSubmatch(answer); m != nil {
		hint := strings.TrimSpace(m[1])
		if !strings.EqualFold(hint, "not in document") && !strings.EqualFold(hint, "not specified") {
			defaultHint = hint
		}
	}

	var citations []models.Citation
	seen := make(map[string]bool)

	for _, re := range []*regexp.Regexp{straightQuoteRe, curlyQuoteRe} {
		for _, loc := range re.FindAllStringSubmatchIndex(answer, -1) {
			quoted := strings.TrimSpace(answer[loc[2]:loc[3]])
			if quoted == "" || seen[strings.ToLower(quoted)] {
				continue
			}
			seen[strings.ToLower(quoted)] = true

			hint := e.nearbyHint(answer, loc[0], loc[1])
			if hint == "" {
				hint = defaultHint
			}

			citations = append(citations, models.Citation{
				QuotedText:     quoted,
				LocationHint:   hint,
				PageNumbers:    ExtractPageNumbers(hint),
				Classification: models.ClassGeneralKnowledge,
				ConfidenceTier: models.ConfidenceUnknown,
			})
		}
	}

	return citations, nil
}

// nearbyHint scans the text surrounding a quote for a page or section
// reference
func (e *CitationEngine) nearbyHint(answer string, start, end int) string {
	from := start - hintSearchRadius
	if from < 0 {
		from = 0
	}
	to := end + hintSearchRadius
	if to > len(answer) {
		to = len(answer)
	}
	vicinity := answer[from:to]

	if m := pageHintRe.FindString(vicinity); m != "" {
		return strings.TrimSpace(m)
	}
	if m := sectionHintRe.FindString(vicinity); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

// ExtractPageNumbers parses page references like "Page 5", "pages 5-7" or
// "pp. 5, 7, 9" into a sorted, deduplicated list
func ExtractPageNumbers(text string) []int {
	if text == "" {
		return nil
	}

	pages := make(map[int]bool)

	for _, m := range pageMultiRe.FindAllStringSubmatch(text, -1) {
		spec := m[1]
		for _, part := range strings.Split(spec, ",") {
			part = strings.TrimSpace(part)
			if strings.Contains(part, "-") {
				bounds := strings.SplitN(part, "-", 2)
				lo, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
				hi, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
				if err1 == nil && err2 == nil && lo <= hi {
					for p := lo; p <= hi; p++ {
						pages[p] = true
					}
				}
			} else if n, err := strconv.Atoi(part); err == nil {
				pages[n] = true
			}
		}
	}

	for _, m := range pageSingleRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			pages[n] = true
		}
	}

	if len(pages) == 0 {
		return nil
	}

	result := make([]int, 0, len(pages))
	for p := range pages {
		result = append(result, p)
	}
	sort.Ints(result)
	return result
}

// Verify fuzzy-matches a citation's quoted text against the source
// document and fills in its similarity, classification, tier, and
// verified flag. Never fails: text that does not match degrades the
// confidence instead.
func (e *CitationEngine) Verify(citation models.Citation, sourceText string) models.Citation {
	if citation.QuotedText == "" || strings.TrimSpace(sourceText) == "" {
		citation.Classification = models.ClassGeneralKnowledge
		citation.ConfidenceTier = models.ConfidenceUnknown
		citation.Verified = false
		citation.Similarity = 0
		return citation
	}

	citation.Similarity = BestWindowSimilarity(citation.QuotedText, sourceText)
	topical := e.topicalOverlap(citation.QuotedText, sourceText)

	citation.Classification, citation.ConfidenceTier, citation.Verified =
		e.ClassifySimilarity(citation.Similarity, topical)
	return citation
}

// ClassifySimilarity maps a similarity score to a classification, tier,
// and verified flag. Increasing similarity never lowers the tier.
func (e *CitationEngine) ClassifySimilarity(similarity float64, topicalOverlap bool) (models.CitationClass, models.ConfidenceTier, bool) {
	switch {
	case similarity >= e.config.DirectQuoteThreshold:
		return models.ClassDirectQuote, models.ConfidenceHigh, true
	case similarity >= e.config.ParaphraseThreshold:
		return models.ClassParaphrase, models.ConfidenceMedium, true
	case similarity >= e.config.InferenceThreshold && topicalOverlap:
		return models.ClassInference, models.ConfidenceLow, false
	default:
		// Likely fabrication: nothing in the source backs this span
		return models.ClassGeneralKnowledge, models.ConfidenceUnknown, false
	}
}

// VerifyAll verifies each citation against the source text
func (e *CitationEngine) VerifyAll(citations []models.Citation, sourceText string) []models.Citation {
	verified := make([]models.Citation, len(citations))
	for i, c := range citations {
		verified[i] = e.Verify(c, sourceText)
	}
	return verified
}

// ClassifyAnswer aggregates citation tiers into the answer's overall
// confidence: the minimum tier when any citation exists, unknown when
// none do. A single weak citation drags down trust in the whole answer.
func (e *CitationEngine) ClassifyAnswer(citations []models.Citation) models.ConfidenceTier {
	if len(citations) == 0 {
		return models.ConfidenceUnknown
	}

	overall := models.ConfidenceHigh
	for _, c := range citations {
		overall = models.MinTier(overall, c.ConfidenceTier)
	}
	return overall
}

// topicalOverlap reports whether the quote shares at least one content
// word with the source document
func (e *CitationEngine) topicalOverlap(quote, sourceText string) bool {
	sourceLower := strings.ToLower(sourceText)
	for _, word := range strings.Fields(strings.ToLower(quote)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) <= 3 || e.keywords.IsStopWord(word) {
			continue
		}
		if strings.Contains(sourceLower, word) {
			return true
		}
	}
	return false
}

// FormatCitationDisplay renders a verified citation as a markdown block
// for display alongside the answer
func (e *CitationEngine) FormatCitationDisplay(citation models.Citation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "> %q\n", citation.QuotedText)
	if citation.LocationHint != "" {
		fmt.Fprintf(&b, ">\n> **Source:** %s\n", citation.LocationHint)
	}
	fmt.Fprintf(&b, ">\n> **Confidence:** %s (%s)", citation.ConfidenceTier, strings.ReplaceAll(string(citation.Classification), "_", " "))
	if !citation.Verified && citation.Classification == models.ClassGeneralKnowledge {
		b.WriteString("\n>\n> **Warning:** not found in the source document")
	}

	return b.String()
}
