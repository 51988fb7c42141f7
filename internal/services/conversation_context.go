package services

import (
	"time"

	"docchat/internal/models"
)

const (
	// DefaultMaxHistory is the message-count ceiling kept in memory
	DefaultMaxHistory = 10
	// DefaultMaxTokens is the token budget for the prompt window
	DefaultMaxTokens = 4000
	// maxTrackedTopics bounds the topic history
	maxTrackedTopics = 20
)

// ConversationContextConfig holds the history and budget limits
type ConversationContextConfig struct {
	MaxHistory int
	MaxTokens  int
}

// DefaultConversationContextConfig returns the standard limits
func DefaultConversationContextConfig() ConversationContextConfig {
	return ConversationContextConfig{
		MaxHistory: DefaultMaxHistory,
		MaxTokens:  DefaultMaxTokens,
	}
}

// ConversationContext holds the ordered message history for one chat
// session and produces the token-budgeted prompt window sent to the model.
// It is owned by a single session and performs no I/O.
type ConversationContext struct {
	config   ConversationContextConfig
	messages []models.Message
	topics   []string
	keywords *KeywordExtractor
}

// NewConversationContext creates an empty conversation context
func NewConversationContext(config ConversationContextConfig) *ConversationContext {
	if config.MaxHistory <= 0 {
		config.MaxHistory = DefaultMaxHistory
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	return &ConversationContext{
		config:   config,
		keywords: NewKeywordExtractor(),
	}
}

// AddMessage appends a message to the history. It always succeeds: the
// token budget is enforced at read time by GetContextWindow, not here.
// History beyond MaxHistory is dropped oldest-first.
func (c *ConversationContext) AddMessage(role models.Role, text string, metadata map[string]interface{}) models.Message {
	return c.append(models.Message{
		Role:       role,
		Text:       text,
		CreatedAt:  time.Now(),
		TokenCount: EstimateTokens(text),
		Metadata:   metadata,
	})
}

// AddAssistantMessage appends an assistant message with its verified
// citations attached
func (c *ConversationContext) AddAssistantMessage(text string, citations []models.Citation, metadata map[string]interface{}) models.Message {
	return c.append(models.Message{
		Role:       models.RoleAssistant,
		Text:       text,
		CreatedAt:  time.Now(),
		TokenCount: EstimateTokens(text),
		Citations:  citations,
		Metadata:   metadata,
	})
}

func (c *ConversationContext) append(msg models.Message) models.Message {
	c.messages = append(c.messages, msg)

	// Write-time pruning: message count only, never token based
	if len(c.messages) > c.config.MaxHistory {
		c.messages = c.messages[len(c.messages)-c.config.MaxHistory:]
	}

	if msg.Role == models.RoleUser {
		c.trackTopics(msg.Text)
	}

	return msg
}

// GetContextWindow walks the history newest-first, accumulating token
// counts until adding the next older message would exceed the budget, and
// returns the kept subset in chronological order. An exact budget fit is
// included. If the single most recent message alone exceeds the budget it
// is returned by itself, so a non-empty history never yields an empty
// window.
func (c *ConversationContext) GetContextWindow() []models.Message {
	if len(c.messages) == 0 {
		return nil
	}

	total := 0
	start := len(c.messages)
	for i := len(c.messages) - 1; i >= 0; i-- {
		cost := c.messages[i].TokenCount
		if total+cost > c.config.MaxTokens {
			break
		}
		total += cost
		start = i
	}

	// The newest message alone blew the budget; return it anyway
	if start == len(c.messages) {
		start = len(c.messages) - 1
	}

	window := make([]models.Message, len(c.messages)-start)
	copy(window, c.messages[start:])
	return window
}

// GetSummary returns an advisory overview: message count, the topics seen
// so far, and the time of the last exchange. Never affects budget logic.
func (c *ConversationContext) GetSummary() models.ConversationSummary {
	summary := models.ConversationSummary{
		MessageCount: len(c.messages),
		Topics:       append([]string(nil), c.topics...),
	}
	if len(c.messages) > 0 {
		summary.LastActivity = c.messages[len(c.messages)-1].CreatedAt
	}
	return summary
}

// RecentUserQuestions returns up to n of the most recent user messages,
// newest last. Used by duplicate detection.
func (c *ConversationContext) RecentUserQuestions(n int) []string {
	var questions []string
	for _, msg := range c.messages {
		if msg.Role == models.RoleUser {
			questions = append(questions, msg.Text)
		}
	}
	if n > 0 && len(questions) > n {
		questions = questions[len(questions)-n:]
	}
	return questions
}

// Messages returns a copy of the full history in insertion order
func (c *ConversationContext) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages currently held
func (c *ConversationContext) Len() int {
	return len(c.messages)
}

// TokenTotal returns the summed token count of the full history
func (c *ConversationContext) TokenTotal() int {
	total := 0
	for _, msg := range c.messages {
		total += msg.TokenCount
	}
	return total
}

// Clear drops all history and tracked topics
func (c *ConversationContext) Clear() {
	c.messages = nil
	c.topics = nil
}

// trackTopics records salient terms from a user message, keeping the most
// recent maxTrackedTopics distinct entries
func (c *ConversationContext) trackTopics(text string) {
	for _, kw := range c.keywords.ExtractKeywordStrings(text, 3) {
		if containsString(c.topics, kw) {
			continue
		}
		c.topics = append(c.topics, kw)
	}
	if len(c.topics) > maxTrackedTopics {
		c.topics = c.topics[len(c.topics)-maxTrackedTopics:]
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
