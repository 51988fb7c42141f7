package models

import "time"

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConfidenceTier expresses how well a citation (or a whole answer) is
// backed by the source document
type ConfidenceTier string

const (
	ConfidenceHigh    ConfidenceTier = "high"
	ConfidenceMedium  ConfidenceTier = "medium"
	ConfidenceLow     ConfidenceTier = "low"
	ConfidenceUnknown ConfidenceTier = "unknown"
)

// tierRanks orders tiers so they can be compared; higher is better
var tierRanks = map[ConfidenceTier]int{
	ConfidenceHigh:    3,
	ConfidenceMedium:  2,
	ConfidenceLow:     1,
	ConfidenceUnknown: 0,
}

// Rank returns the numeric ordering of the tier (high > medium > low > unknown)
func (t ConfidenceTier) Rank() int {
	return tierRanks[t]
}

// MinTier returns the weaker of two confidence tiers
func MinTier(a, b ConfidenceTier) ConfidenceTier {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// CitationClass describes how a cited span relates to the source document
type CitationClass string

const (
	ClassDirectQuote      CitationClass = "direct_quote"
	ClassParaphrase       CitationClass = "paraphrase"
	ClassInference        CitationClass = "inference"
	ClassGeneralKnowledge CitationClass = "general_knowledge"
)

// Citation represents a single cited span extracted from an assistant answer
type Citation struct {
	QuotedText     string         `json:"quoted_text"`
	LocationHint   string         `json:"location_hint,omitempty"`
	PageNumbers    []int          `json:"page_numbers,omitempty"`
	ConfidenceTier ConfidenceTier `json:"confidence_tier"`
	Classification CitationClass  `json:"classification"`
	Verified       bool           `json:"verified"`
	Similarity     float64        `json:"similarity"`
}

// Message is a single entry in the conversation history. Messages are
// immutable once appended; the conversation context owns them.
type Message struct {
	Role       Role                   `json:"role"`
	Text       string                 `json:"text"`
	CreatedAt  time.Time              `json:"created_at"`
	TokenCount int                    `json:"token_count"`
	Citations  []Citation             `json:"citations,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// DuplicateVerdict is the result of checking an incoming question against
// recent user questions
type DuplicateVerdict struct {
	IsDuplicate     bool    `json:"is_duplicate"`
	SimilarityScore float64 `json:"similarity_score"`
	MatchedQuestion string  `json:"matched_question,omitempty"`
}

// ConversationSummary is an advisory overview of the conversation so far
type ConversationSummary struct {
	MessageCount int       `json:"message_count"`
	Topics       []string  `json:"topics"`
	LastActivity time.Time `json:"last_activity"`
}

// ConversationStats aggregates read-only counters over a chat session
type ConversationStats struct {
	MessageCount      int     `json:"message_count"`
	UserMessages      int     `json:"user_messages"`
	AssistantMessages int     `json:"assistant_messages"`
	QuestionsAsked    int     `json:"questions_asked"`
	CacheHits         int     `json:"cache_hits"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	AverageQuality    float64 `json:"average_quality"`
	TokensInHistory   int     `json:"tokens_in_history"`
}

// ExportedMessage is the transcript record shape consumed by export
// renderers. A renderer must be able to reconstruct a faithful transcript
// from this shape alone.
type ExportedMessage struct {
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Citations []Citation `json:"citations,omitempty"`
}

// ConversationExport is the JSON export envelope
type ConversationExport struct {
	Messages   []ExportedMessage `json:"messages"`
	ExportedAt time.Time         `json:"exported_at"`
}

// CostEstimate reports the estimated token cost of a query
type CostEstimate struct {
	QuestionTokens        int `json:"question_tokens"`
	ContextTokens         int `json:"context_tokens"`
	TotalInputTokens      int `json:"total_input_tokens"`
	EstimatedOutputTokens int `json:"estimated_output_tokens"`
	TotalTokens           int `json:"total_tokens"`
}

// ChatRequest is the incoming chat request from the frontend
type ChatRequest struct {
	SessionID    string `json:"session_id"`              // Chat session identifier
	DocumentID   string `json:"document_id"`             // Identifier of the document being discussed
	Message      string `json:"message"`                 // The current user question
	DocumentText string `json:"document_text,omitempty"` // Extracted source text (extraction happens upstream)
}

// ChatResponse is the structured answer payload sent back to the frontend
type ChatResponse struct {
	Answer            string           `json:"answer"`
	Citations         []Citation       `json:"citations,omitempty"`
	OverallConfidence ConfidenceTier   `json:"overall_confidence"`
	CacheHit          bool             `json:"cache_hit"`
	TokensUsed        int              `json:"tokens_used"`
	Provider          string           `json:"provider,omitempty"`
	QualityScore      float64          `json:"quality_score"`
	Duplicate         DuplicateVerdict `json:"duplicate"`
	Status            string           `json:"status"` // "success" or "error"
}

// BasicResponse is a minimal status payload for health-style endpoints
type BasicResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
