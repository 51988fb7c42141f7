package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreQuality_OptimalQuestion(t *testing.T) {
	o := NewQueryOptimizer()

	report := o.ScoreQuality("What are the payment terms in Section 4.2?")

	assert.GreaterOrEqual(t, report.Score, 0.8)
	assert.Equal(t, "optimal", report.Level)
	assert.Empty(t, report.Issues)
}

func TestScoreQuality_VagueQuestion(t *testing.T) {
	o := NewQueryOptimizer()

	report := o.ScoreQuality("tell me about the document contents please")

	assert.Less(t, report.Score, 0.8)
	assert.NotEmpty(t, report.Issues)
	assert.NotEmpty(t, report.Suggestions)
}

func TestScoreQuality_BroadQuestion(t *testing.T) {
	o := NewQueryOptimizer()

	report := o.ScoreQuality("give me everything in the entire document")

	assert.LessOrEqual(t, report.Score, 0.6)
	assert.Contains(t, report.Issues, "Question is too broad")
}

func TestScoreQuality_TooShort(t *testing.T) {
	o := NewQueryOptimizer()

	report := o.ScoreQuality("summary?")

	assert.Contains(t, report.Issues, "Question is too short")
}

func TestScoreQuality_VeryLong(t *testing.T) {
	o := NewQueryOptimizer()

	report := o.ScoreQuality(strings.Repeat("word ", 60))

	assert.Contains(t, report.Issues, "Question is very long")
}

func TestScoreQuality_AlwaysInRange(t *testing.T) {
	o := NewQueryOptimizer()

	questions := []string{
		"",
		"?",
		"tell me about everything in the whole entire document",
		"What are the exact termination clauses on page 12, section 9.1?",
	}

	for _, q := range questions {
		report := o.ScoreQuality(q)
		assert.GreaterOrEqual(t, report.Score, 0.0)
		assert.LessOrEqual(t, report.Score, 1.0)
	}
}

func TestDetectDuplicate_IdenticalQuestion(t *testing.T) {
	o := NewQueryOptimizer()

	verdict := o.DetectDuplicate("What are the payment terms?", []string{
		"How long is the contract?",
		"What are the payment terms?",
	})

	assert.True(t, verdict.IsDuplicate)
	assert.Equal(t, 1.0, verdict.SimilarityScore)
	assert.Equal(t, "What are the payment terms?", verdict.MatchedQuestion)
}

func TestDetectDuplicate_MinorRephrasing(t *testing.T) {
	o := NewQueryOptimizer()

	verdict := o.DetectDuplicate("what are the payment terms", []string{
		"What are the payment terms?",
	})

	assert.True(t, verdict.IsDuplicate)
	assert.GreaterOrEqual(t, verdict.SimilarityScore, DefaultDuplicateThreshold)
}

func TestDetectDuplicate_UnrelatedQuestion(t *testing.T) {
	o := NewQueryOptimizer()

	verdict := o.DetectDuplicate("What is the liability cap?", []string{
		"Who signed the agreement?",
	})

	assert.False(t, verdict.IsDuplicate)
	assert.Less(t, verdict.SimilarityScore, DefaultDuplicateThreshold)
}

func TestDetectDuplicate_NoHistory(t *testing.T) {
	o := NewQueryOptimizer()

	verdict := o.DetectDuplicate("What is the summary?", nil)

	assert.False(t, verdict.IsDuplicate)
	assert.Equal(t, 0.0, verdict.SimilarityScore)
	assert.Empty(t, verdict.MatchedQuestion)
}

func TestDetectDuplicate_ReportsHighestMatch(t *testing.T) {
	o := NewQueryOptimizerWithThreshold(0.99)

	verdict := o.DetectDuplicate("What are the payment terms?", []string{
		"Who is the counterparty?",
		"What are the payment term?",
	})

	assert.False(t, verdict.IsDuplicate)
	assert.Equal(t, "What are the payment term?", verdict.MatchedQuestion)
}

func TestNewQueryOptimizerWithThreshold_InvalidFallsBack(t *testing.T) {
	o := NewQueryOptimizerWithThreshold(-1)
	assert.Equal(t, DefaultDuplicateThreshold, o.duplicateThreshold)

	o = NewQueryOptimizerWithThreshold(1.5)
	assert.Equal(t, DefaultDuplicateThreshold, o.duplicateThreshold)
}

func TestPreprocessQuestion_ExpandsContractionsAndStripsFillers(t *testing.T) {
	o := NewQueryOptimizer()

	cleaned := o.PreprocessQuestion("um what's this basically")

	assert.Equal(t, "what is this", cleaned)
}

func TestPreprocessQuestion_CollapsesWhitespace(t *testing.T) {
	o := NewQueryOptimizer()

	cleaned := o.PreprocessQuestion("  what   is  the   summary  ")

	assert.Equal(t, "what is the summary", cleaned)
}

func TestOptimizeContext_UnderBudgetReturnsFullContext(t *testing.T) {
	o := NewQueryOptimizer()

	context := "Short document text."
	assert.Equal(t, context, o.OptimizeContext(context, "What does it say?", 1000))
}

func TestOptimizeContext_KeepsRelevantParagraphs(t *testing.T) {
	o := NewQueryOptimizer()

	relevant := "Payment terms: invoices are due within thirty days of receipt. Late payment accrues interest."
	filler := strings.Repeat("Unrelated filler text about office furniture and parking arrangements. ", 20)
	fullContext := filler + "\n\n" + relevant + "\n\n" + filler

	budget := EstimateTokens(relevant) + 10
	result := o.OptimizeContext(fullContext, "What are the payment terms for invoices?", budget)

	assert.Contains(t, result, "Payment terms")
	assert.LessOrEqual(t, EstimateTokens(result), budget)
}

func TestOptimizeContext_ZeroBudgetReturnsFullContext(t *testing.T) {
	o := NewQueryOptimizer()

	context := "Some document text."
	assert.Equal(t, context, o.OptimizeContext(context, "question", 0))
}

func TestEstimateCost_SummaryQuestion(t *testing.T) {
	o := NewQueryOptimizer()

	cost := o.EstimateCost("Summarize the document", "Some context text here.")

	assert.Equal(t, 200, cost.EstimatedOutputTokens)
	assert.Equal(t, cost.QuestionTokens+cost.ContextTokens, cost.TotalInputTokens)
	assert.Equal(t, cost.TotalInputTokens+cost.EstimatedOutputTokens, cost.TotalTokens)
}

func TestEstimateCost_ListQuestion(t *testing.T) {
	o := NewQueryOptimizer()

	cost := o.EstimateCost("List the termination clauses", "")

	assert.Equal(t, 150, cost.EstimatedOutputTokens)
	assert.Equal(t, 0, cost.ContextTokens)
}

func TestSuggestBetterQuestions_VaguePhrasing(t *testing.T) {
	o := NewQueryOptimizer()

	suggestions := o.SuggestBetterQuestions("tell me about the contract", "")

	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 3)
}

func TestSuggestBetterQuestions_LegalContract(t *testing.T) {
	o := NewQueryOptimizer()

	suggestions := o.SuggestBetterQuestions("what are my obligations", "legal_contract")

	assert.NotEmpty(t, suggestions)
}

func TestSuggestBetterQuestions_SpecificQuestionNoSuggestions(t *testing.T) {
	o := NewQueryOptimizer()

	suggestions := o.SuggestBetterQuestions("What does clause 4.2 on page 9 require?", "legal_contract")

	assert.Empty(t, suggestions)
}
