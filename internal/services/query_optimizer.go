package services

import (
	"fmt"
	"regexp"
	"strings"

	"docchat/internal/models"
)

// DefaultDuplicateThreshold marks questions at or above this similarity
// as duplicates of a recent question
const DefaultDuplicateThreshold = 0.85

// defaultRecentQuestions is how many recent user questions duplicate
// detection compares against
const defaultRecentQuestions = 10

// Phrase lists driving the quality heuristic. Vague and broad phrases
// cost points, location-anchored phrases earn them.
var (
	vaguePatterns = []string{
		"tell me about", "explain this", "what is this", "describe",
		"give me information", "what about", "talk about",
	}
	broadPatterns = []string{
		"everything", "all information", "complete", "entire", "whole",
		"every", "all details", "comprehensive",
	}
	optimalIndicators = []string{
		"page", "section", "paragraph", "clause", "chapter",
		"specific", "particular", "exact", "line",
	}
)

// contractions expanded during question preprocessing
var contractions = map[string]string{
	"what's":    "what is",
	"that's":    "that is",
	"it's":      "it is",
	"don't":     "do not",
	"can't":     "cannot",
	"won't":     "will not",
	"shouldn't": "should not",
	"wouldn't":  "would not",
	"couldn't":  "could not",
}

// fillerWords stripped during question preprocessing
var fillerWords = []string{"um", "uh", "like", "you know", "i mean", "basically", "actually"}

var whitespaceRe = regexp.MustCompile(`\s+`)

// QualityReport is the result of scoring a question. Low scores never
// reject a question; they only annotate it for the caller's display.
type QualityReport struct {
	Score       float64  `json:"score"`
	Level       string   `json:"level"` // "optimal", "good", "vague", or "too_broad"
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// QueryOptimizer scores question quality, detects near-duplicate
// questions, and trims document context to fit a token budget. All
// methods are deterministic heuristics with no I/O.
type QueryOptimizer struct {
	keywords           *KeywordExtractor
	duplicateThreshold float64
}

// NewQueryOptimizer creates a query optimizer with the default duplicate
// threshold
func NewQueryOptimizer() *QueryOptimizer {
	return NewQueryOptimizerWithThreshold(DefaultDuplicateThreshold)
}

// NewQueryOptimizerWithThreshold creates a query optimizer with a custom
// duplicate-similarity threshold
func NewQueryOptimizerWithThreshold(threshold float64) *QueryOptimizer {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultDuplicateThreshold
	}
	return &QueryOptimizer{
		keywords:           NewKeywordExtractor(),
		duplicateThreshold: threshold,
	}
}

// ScoreQuality scores a question in [0,1], rewarding specificity and
// penalizing vague or overly broad phrasing
func (o *QueryOptimizer) ScoreQuality(question string) QualityReport {
	lower := strings.ToLower(question)
	score := 1.0
	report := QualityReport{}

	if containsAny(lower, vaguePatterns) {
		score -= 0.3
		report.Issues = append(report.Issues, "Question is too vague")
		report.Suggestions = append(report.Suggestions, "Be more specific about what you want to know")
	}

	if containsAny(lower, broadPatterns) {
		score -= 0.4
		report.Issues = append(report.Issues, "Question is too broad")
		report.Suggestions = append(report.Suggestions, "Focus on a specific aspect or section")
	}

	if containsAny(lower, optimalIndicators) {
		score += 0.2
	}

	wordCount := len(strings.Fields(question))
	switch {
	case wordCount < 3:
		score -= 0.2
		report.Issues = append(report.Issues, "Question is too short")
		report.Suggestions = append(report.Suggestions, "Add more context to your question")
	case wordCount > 50:
		score -= 0.1
		report.Issues = append(report.Issues, "Question is very long")
		report.Suggestions = append(report.Suggestions, "Try breaking into multiple shorter questions")
	}

	report.Score = clamp01(score)

	switch {
	case report.Score >= 0.8:
		report.Level = "optimal"
	case report.Score >= 0.6:
		report.Level = "good"
	case report.Score >= 0.4:
		report.Level = "vague"
	default:
		report.Level = "too_broad"
	}

	return report
}

// DetectDuplicate compares a question against recent user questions and
// reports the highest-scoring match. Similarity at or above the configured
// threshold marks the question as a duplicate.
func (o *QueryOptimizer) DetectDuplicate(question string, recentQuestions []string) models.DuplicateVerdict {
	verdict := models.DuplicateVerdict{}

	for _, prev := range recentQuestions {
		sim := QuestionSimilarity(question, prev)
		if sim > verdict.SimilarityScore {
			verdict.SimilarityScore = sim
			verdict.MatchedQuestion = prev
		}
	}

	verdict.IsDuplicate = verdict.SimilarityScore >= o.duplicateThreshold
	return verdict
}

// PreprocessQuestion cleans a question: expands contractions, strips
// filler words, and collapses whitespace
func (o *QueryOptimizer) PreprocessQuestion(question string) string {
	for abbr, expansion := range contractions {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(abbr) + `\b`)
		question = re.ReplaceAllString(question, expansion)
	}

	for _, filler := range fillerWords {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(filler) + `\b`)
		question = re.ReplaceAllString(question, "")
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(question, " "))
}

// OptimizeContext selects the paragraphs of the document most relevant to
// the question, keeping the result within the token budget. Relevance is
// keyword overlap with the question, so answer-relevant material survives
// instead of whatever happened to come first.
func (o *QueryOptimizer) OptimizeContext(fullContext, question string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(fullContext) <= maxTokens {
		return fullContext
	}

	keywords := o.keywords.ExtractKeywordStrings(question, 10)
	paragraphs := strings.Split(fullContext, "\n\n")

	type scoredParagraph struct {
		score int
		index int
		text  string
	}

	var scored []scoredParagraph
	for i, para := range paragraphs {
		if strings.TrimSpace(para) == "" {
			continue
		}
		lower := strings.ToLower(para)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		scored = append(scored, scoredParagraph{score: score, index: i, text: para})
	}

	// Most relevant first; original position breaks ties for determinism
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && (scored[j].score > scored[j-1].score ||
			(scored[j].score == scored[j-1].score && scored[j].index < scored[j-1].index)); j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}

	var kept []string
	currentTokens := 0
	for _, sp := range scored {
		cost := EstimateTokens(sp.text)
		if currentTokens+cost > maxTokens {
			break
		}
		kept = append(kept, sp.text)
		currentTokens += cost
	}

	return strings.Join(kept, "\n\n")
}

// EstimateCost reports the estimated token cost of a query. Pure
// reporting; delegates to the shared token estimator.
func (o *QueryOptimizer) EstimateCost(question, context string) models.CostEstimate {
	questionTokens := EstimateTokens(question)
	contextTokens := EstimateTokens(context)

	// Crude output-size guess keyed on question type
	lower := strings.ToLower(question)
	estimatedOutput := 300
	switch {
	case containsAny(lower, []string{"summarize", "summary", "overview"}):
		estimatedOutput = 200
	case containsAny(lower, []string{"list", "enumerate", "what are"}):
		estimatedOutput = 150
	case containsAny(lower, []string{"yes", "no", "is ", "does ", "can "}):
		estimatedOutput = 50
	}

	return models.CostEstimate{
		QuestionTokens:        questionTokens,
		ContextTokens:         contextTokens,
		TotalInputTokens:      questionTokens + contextTokens,
		EstimatedOutputTokens: estimatedOutput,
		TotalTokens:           questionTokens + contextTokens + estimatedOutput,
	}
}

// SuggestBetterQuestions proposes up to three sharper formulations of a
// weak question, optionally tailored to the document type
func (o *QueryOptimizer) SuggestBetterQuestions(question, documentType string) []string {
	var suggestions []string
	lower := strings.ToLower(question)

	if strings.Contains(lower, "tell me about") {
		topic := strings.TrimSpace(strings.ReplaceAll(lower, "tell me about", ""))
		suggestions = append(suggestions,
			fmt.Sprintf("What are the key points about %s?", topic),
			fmt.Sprintf("Summarize the information about %s", topic))
	}

	if strings.Contains(lower, "explain this") || strings.Contains(lower, "what is this") {
		suggestions = append(suggestions,
			"What is the main topic of this document?",
			"Summarize this document in 3 sentences")
	}

	switch documentType {
	case "legal_contract":
		if !containsAny(lower, []string{"page", "section", "clause"}) {
			suggestions = append(suggestions,
				"Try: 'What are the payment terms in Section X?'",
				"Try: 'List the termination clauses'")
		}
	case "research_paper":
		if !strings.Contains(lower, "methodology") && !strings.Contains(lower, "findings") {
			suggestions = append(suggestions,
				"Try: 'What methodology was used?'",
				"Try: 'What are the key findings?'")
		}
	}

	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
