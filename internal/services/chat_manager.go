package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"docchat/internal/models"
	"docchat/internal/repositories"
)

// DefaultSystemPrompt frames the assistant before the citation
// requirements are appended
const DefaultSystemPrompt = "You are a document assistant answering questions about a document the user has provided. Base your answers ONLY on the supplied document context. If the context does not answer the question, say so honestly instead of forcing it."

// DefaultContextBudget is the token budget for document context inside
// the prompt
const DefaultContextBudget = 3000

// ChatManagerConfig bundles the tunables of one chat session
type ChatManagerConfig struct {
	Context            ConversationContextConfig
	Verification       VerificationConfig
	DuplicateThreshold float64
	ContextBudget      int
	RecentQuestions    int
}

// DefaultChatManagerConfig returns the standard session configuration
func DefaultChatManagerConfig() ChatManagerConfig {
	return ChatManagerConfig{
		Context:            DefaultConversationContextConfig(),
		Verification:       DefaultVerificationConfig(),
		DuplicateThreshold: DefaultDuplicateThreshold,
		ContextBudget:      DefaultContextBudget,
		RecentQuestions:    defaultRecentQuestions,
	}
}

// UserMessageResult is everything the caller needs before deciding
// whether to skip generation
type UserMessageResult struct {
	NormalizedQuestion string                   `json:"normalized_question"`
	Quality            QualityReport            `json:"quality"`
	Duplicate          models.DuplicateVerdict  `json:"duplicate"`
	CachedEntry        *repositories.CacheEntry `json:"cached_entry,omitempty"`
	Cost               models.CostEstimate      `json:"cost"`
}

// PromptPackage is the prompt material handed to the generation
// collaborator
type PromptPackage struct {
	SystemPrompt string
	ContextText  string
	Window       []models.Message
	Question     string
}

// AIResponseResult is the structured payload assembled after generation
type AIResponseResult struct {
	FormattedAnswer   string                `json:"formatted_answer"`
	Citations         []models.Citation     `json:"citations,omitempty"`
	OverallConfidence models.ConfidenceTier `json:"overall_confidence"`
}

// ErrUnsupportedExportFormat is returned for export formats the manager
// does not know
var ErrUnsupportedExportFormat = errors.New("unsupported export format")

// ChatManager orchestrates one chat session: query optimization, cache
// lookups, context windowing, and citation verification. The LLM call
// itself happens outside, between ProcessUserMessage and
// ProcessAIResponse; a cancelled request that never reaches
// ProcessAIResponse leaves the history and cache untouched.
type ChatManager struct {
	mu        sync.Mutex
	config    ChatManagerConfig
	context   *ConversationContext
	optimizer *QueryOptimizer
	citations *CitationEngine
	formatter *ResponseFormatter
	cache     repositories.ResponseCache
	logger    *log.Logger

	questionsAsked int
	cacheHits      int
	qualitySum     float64
}

// NewChatManager creates a chat manager for one session. The response
// cache is injected so independent sessions (and tests) never
// cross-contaminate.
func NewChatManager(cache repositories.ResponseCache, config ChatManagerConfig, logger *log.Logger) *ChatManager {
	if config.ContextBudget <= 0 {
		config.ContextBudget = DefaultContextBudget
	}
	if config.RecentQuestions <= 0 {
		config.RecentQuestions = defaultRecentQuestions
	}
	if config.Verification == (VerificationConfig{}) {
		config.Verification = DefaultVerificationConfig()
	}

	return &ChatManager{
		config:    config,
		context:   NewConversationContext(config.Context),
		optimizer: NewQueryOptimizerWithThreshold(config.DuplicateThreshold),
		citations: NewCitationEngineWithConfig(config.Verification),
		formatter: NewResponseFormatter(),
		cache:     cache,
		logger:    logger,
	}
}

// ProcessUserMessage runs the pre-send pipeline: clean the question,
// score it, check for duplicates, and look for a cached answer under the
// current context window. The history is NOT mutated here, so a request
// cancelled before ProcessAIResponse contributes nothing.
func (m *ChatManager) ProcessUserMessage(ctx context.Context, question, documentID string) (*UserMessageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cleaned := m.optimizer.PreprocessQuestion(question)
	quality := m.optimizer.ScoreQuality(cleaned)
	duplicate := m.optimizer.DetectDuplicate(cleaned, m.context.RecentUserQuestions(m.config.RecentQuestions))
	window := m.context.GetContextWindow()

	entry, err := m.cache.Lookup(ctx, cleaned, documentID, window)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	m.questionsAsked++
	m.qualitySum += quality.Score
	if entry != nil {
		m.cacheHits++
		m.logger.Printf("Cache hit for question %q (hits: %d)", cleaned, entry.HitCount)
	}

	return &UserMessageResult{
		NormalizedQuestion: cleaned,
		Quality:            quality,
		Duplicate:          duplicate,
		CachedEntry:        entry,
		Cost:               m.optimizer.EstimateCost(cleaned, ""),
	}, nil
}

// PreparePrompt assembles the prompt material for the generation
// collaborator: the citation-enhanced system prompt, the budget-trimmed
// document context, and the current context window
func (m *ChatManager) PreparePrompt(question, documentText string) PromptPackage {
	m.mu.Lock()
	defer m.mu.Unlock()

	return PromptPackage{
		SystemPrompt: m.citations.EnhanceSystemPrompt(DefaultSystemPrompt),
		ContextText:  m.optimizer.OptimizeContext(documentText, question, m.config.ContextBudget),
		Window:       m.context.GetContextWindow(),
		Question:     question,
	}
}

// ProcessAIResponse runs the post-receive pipeline: extract and verify
// citations, format the answer, append the exchange to history, and
// store the result in the cache. Verification is best-effort: an answer
// the extractor cannot interpret is returned raw with confidence
// unknown, never blocked.
func (m *ChatManager) ProcessAIResponse(ctx context.Context, rawAnswer, question, documentID, sourceDocumentText string, metadata map[string]interface{}) (*AIResponseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cleaned := m.optimizer.PreprocessQuestion(question)

	extracted, err := m.citations.ExtractCitations(rawAnswer)
	if err != nil {
		var formatErr *FormatError
		if errors.As(err, &formatErr) {
			m.logger.Printf("Citation extraction skipped: %v", formatErr)
			return &AIResponseResult{
				FormattedAnswer:   rawAnswer,
				OverallConfidence: models.ConfidenceUnknown,
			}, nil
		}
		return nil, fmt.Errorf("citation extraction: %w", err)
	}

	verified := m.citations.VerifyAll(extracted, sourceDocumentText)
	overall := m.citations.ClassifyAnswer(verified)
	formatted := m.formatter.Format(rawAnswer)

	// The cache key must reflect the window the answer was generated
	// under, i.e. before this exchange is appended
	window := m.context.GetContextWindow()

	m.context.AddMessage(models.RoleUser, cleaned, nil)
	m.context.AddAssistantMessage(formatted, verified, metadata)

	if err := m.cache.Store(ctx, cleaned, documentID, window, formatted, verified); err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}

	return &AIResponseResult{
		FormattedAnswer:   formatted,
		Citations:         verified,
		OverallConfidence: overall,
	}, nil
}

// ExportConversation serializes the full history plus attached citations
// into the requested textual representation. A pure view transform.
func (m *ChatManager) ExportConversation(format string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := m.context.Messages()

	switch strings.ToLower(format) {
	case "json":
		return exportJSON(messages)
	case "markdown", "md":
		return exportMarkdown(messages), nil
	case "text", "txt", "plain":
		return exportText(messages), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExportFormat, format)
	}
}

func exportJSON(messages []models.Message) (string, error) {
	export := models.ConversationExport{
		Messages:   make([]models.ExportedMessage, len(messages)),
		ExportedAt: time.Now(),
	}
	for i, msg := range messages {
		export.Messages[i] = models.ExportedMessage{
			Role:      msg.Role,
			Text:      msg.Text,
			Timestamp: msg.CreatedAt,
			Citations: msg.Citations,
		}
	}

	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}
	return string(out), nil
}

func exportMarkdown(messages []models.Message) string {
	var b strings.Builder
	b.WriteString("# Conversation Export\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n\n---\n\n", time.Now().Format("2006-01-02 15:04:05"))

	for _, msg := range messages {
		name := "You"
		if msg.Role == models.RoleAssistant {
			name = "Assistant"
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", name, msg.Text)
		for _, c := range msg.Citations {
			fmt.Fprintf(&b, "> %q", c.QuotedText)
			if c.LocationHint != "" {
				fmt.Fprintf(&b, " — %s", c.LocationHint)
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}

	return b.String()
}

func exportText(messages []models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation Export - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, msg := range messages {
		name := "You"
		if msg.Role == models.RoleAssistant {
			name = "Assistant"
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", name, msg.Text)
		b.WriteString(strings.Repeat("-", 60) + "\n\n")
	}

	return b.String()
}

// GetStatistics returns read-only aggregates over the session
func (m *ChatManager) GetStatistics() models.ConversationStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.ConversationStats{
		MessageCount:    m.context.Len(),
		QuestionsAsked:  m.questionsAsked,
		CacheHits:       m.cacheHits,
		TokensInHistory: m.context.TokenTotal(),
	}

	for _, msg := range m.context.Messages() {
		if msg.Role == models.RoleUser {
			stats.UserMessages++
		} else {
			stats.AssistantMessages++
		}
	}

	if m.questionsAsked > 0 {
		stats.CacheHitRate = float64(m.cacheHits) / float64(m.questionsAsked)
		stats.AverageQuality = m.qualitySum / float64(m.questionsAsked)
	}

	return stats
}

// Summary returns the conversation's advisory summary
func (m *ChatManager) Summary() models.ConversationSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.context.GetSummary()
}

// Clear drops the session's history and counters. The cache is shared
// and is left alone.
func (m *ChatManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.context.Clear()
	m.questionsAsked = 0
	m.cacheHits = 0
	m.qualitySum = 0
}
