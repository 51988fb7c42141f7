package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docchat/internal/models"
)

const (
	// DefaultLLMBaseURL points at a local LM Studio instance
	DefaultLLMBaseURL = "http://localhost:1234/v1"
	// DefaultLLMModel is the model requested by default
	DefaultLLMModel = "llama-3.2-3b-instruct"
	// ProviderName identifies this backend in response metadata
	ProviderName = "lmstudio"
)

// GenerateResult is what the generation collaborator hands back
type GenerateResult struct {
	Text       string
	TokensUsed int
	Provider   string
	Model      string
}

// Generator is the external LLM collaborator. The chat manager never
// calls it; callers invoke it between ProcessUserMessage and
// ProcessAIResponse. Retry and backoff live behind this interface, not
// in the conversation core.
type Generator interface {
	Generate(ctx context.Context, prompt PromptPackage) (*GenerateResult, error)
	HealthCheck(ctx context.Context) error
}

// chatCompletionMessage is the OpenAI-compatible wire message
type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the request format for the completions API
type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
	Stream      bool                    `json:"stream"`
}

// chatCompletionResponse is the response from the completions API
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// LLMService talks to an OpenAI-compatible chat completion endpoint
// (LM Studio by default)
type LLMService struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewLLMService creates an LLM service. Empty arguments fall back to the
// LM Studio defaults.
func NewLLMService(baseURL, model string) *LLMService {
	if baseURL == "" {
		baseURL = DefaultLLMBaseURL
	}
	if model == "" {
		model = DefaultLLMModel
	}

	return &LLMService{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // LLMs can be slow
		},
	}
}

// Generate sends the prompt package to the model and returns the raw
// answer text plus usage metadata
func (s *LLMService) Generate(ctx context.Context, prompt PromptPackage) (*GenerateResult, error) {
	messages := make([]chatCompletionMessage, 0, len(prompt.Window)+2)

	messages = append(messages, chatCompletionMessage{
		Role:    "system",
		Content: prompt.SystemPrompt,
	})

	for _, msg := range prompt.Window {
		messages = append(messages, chatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Text,
		})
	}

	userContent := prompt.Question
	if prompt.ContextText != "" {
		userContent = fmt.Sprintf("Here is relevant information from the document:\n\n%s\n\nUser question: %s", prompt.ContextText, prompt.Question)
	}
	messages = append(messages, chatCompletionMessage{
		Role:    string(models.RoleUser),
		Content: userContent,
	})

	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   -1,
		Stream:      false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to LLM backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM backend returned status %d: %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM backend")
	}

	return &GenerateResult{
		Text:       completion.Choices[0].Message.Content,
		TokensUsed: completion.Usage.TotalTokens,
		Provider:   ProviderName,
		Model:      completion.Model,
	}, nil
}

// HealthCheck verifies the LLM backend is running and has a model loaded
func (s *LLMService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LLM backend not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LLM backend returned status %d", resp.StatusCode)
	}

	return nil
}
