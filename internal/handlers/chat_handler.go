package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"docchat/internal/models"
	"docchat/internal/services"
)

// DefaultSessionID is used when the client does not name a session
const DefaultSessionID = "default"

// ChatHandler handles chat requests against a document
type ChatHandler struct {
	sessions  *services.SessionManager
	generator services.Generator
	logger    *log.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(sessions *services.SessionManager, generator services.Generator, logger *log.Logger) *ChatHandler {
	return &ChatHandler{
		sessions:  sessions,
		generator: generator,
		logger:    logger,
	}
}

// Chat godoc
// @Summary Ask a question about a document
// @Description Runs the full chat pipeline: question scoring, duplicate detection, cache lookup, LLM generation, and citation verification
// @Tags chat
// @Accept json
// @Produce json
// @Param request body models.ChatRequest true "Chat request with session, document, and message"
// @Success 200 {object} models.ChatResponse
// @Failure 400 {object} models.ChatResponse
// @Failure 500 {object} models.ChatResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var request models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeChatError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if request.Message == "" {
		h.writeChatError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if request.SessionID == "" {
		request.SessionID = DefaultSessionID
	}

	mgr := h.sessions.GetOrCreate(request.SessionID)

	userResult, err := mgr.ProcessUserMessage(r.Context(), request.Message, request.DocumentID)
	if err != nil {
		h.logger.Printf("Failed to process user message: %v", err)
		h.writeChatError(w, http.StatusInternalServerError, "Failed to process message: "+err.Error())
		return
	}

	// Cached answer short-circuits generation entirely
	if userResult.CachedEntry != nil {
		overall := models.ConfidenceUnknown
		if len(userResult.CachedEntry.Citations) > 0 {
			overall = userResult.CachedEntry.Citations[0].ConfidenceTier
			for _, c := range userResult.CachedEntry.Citations[1:] {
				overall = models.MinTier(overall, c.ConfidenceTier)
			}
		}

		h.writeJSON(w, http.StatusOK, models.ChatResponse{
			Answer:            userResult.CachedEntry.AnswerText,
			Citations:         userResult.CachedEntry.Citations,
			OverallConfidence: overall,
			CacheHit:          true,
			QualityScore:      userResult.Quality.Score,
			Duplicate:         userResult.Duplicate,
			Status:            "success",
		})
		return
	}

	prompt := mgr.PreparePrompt(userResult.NormalizedQuestion, request.DocumentText)

	generated, err := h.generator.Generate(r.Context(), prompt)
	if err != nil {
		h.logger.Printf("LLM generation failed: %v", err)
		h.writeChatError(w, http.StatusInternalServerError, "Failed to get response from LLM: "+err.Error())
		return
	}

	metadata := map[string]interface{}{
		"provider": generated.Provider,
		"model":    generated.Model,
	}
	aiResult, err := mgr.ProcessAIResponse(r.Context(), generated.Text, request.Message, request.DocumentID, request.DocumentText, metadata)
	if err != nil {
		h.logger.Printf("Failed to process AI response: %v", err)
		h.writeChatError(w, http.StatusInternalServerError, "Failed to process response: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, models.ChatResponse{
		Answer:            aiResult.FormattedAnswer,
		Citations:         aiResult.Citations,
		OverallConfidence: aiResult.OverallConfidence,
		CacheHit:          false,
		TokensUsed:        generated.TokensUsed,
		Provider:          generated.Provider,
		QualityScore:      userResult.Quality.Score,
		Duplicate:         userResult.Duplicate,
		Status:            "success",
	})
}

// Export godoc
// @Summary Export a conversation
// @Description Exports the session transcript in json, markdown, or text format
// @Tags sessions
// @Produce plain
// @Param id path string true "Session ID"
// @Param format query string false "Export format (json, markdown, text)" default(json)
// @Success 200 {string} string "Exported transcript"
// @Failure 400 {object} models.BasicResponse
// @Failure 404 {object} models.BasicResponse
// @Router /sessions/{id}/export [get]
func (h *ChatHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	mgr, ok := h.sessions.Get(sessionID)
	if !ok {
		h.writeBasicError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	out, err := mgr.ExportConversation(format)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedExportFormat) {
			h.writeBasicError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Printf("Export failed for session %q: %v", sessionID, err)
		h.writeBasicError(w, http.StatusInternalServerError, "Export failed: "+err.Error())
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}

// Stats godoc
// @Summary Session statistics
// @Description Returns message counts, cache hit rate, and average question quality for a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ConversationStats
// @Failure 404 {object} models.BasicResponse
// @Router /sessions/{id}/stats [get]
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	mgr, ok := h.sessions.Get(sessionID)
	if !ok {
		h.writeBasicError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}

	h.writeJSON(w, http.StatusOK, mgr.GetStatistics())
}

// Summary godoc
// @Summary Session summary
// @Description Returns an advisory overview of the session: message count, tracked topics, last activity
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ConversationSummary
// @Failure 404 {object} models.BasicResponse
// @Router /sessions/{id}/summary [get]
func (h *ChatHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	mgr, ok := h.sessions.Get(sessionID)
	if !ok {
		h.writeBasicError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}

	h.writeJSON(w, http.StatusOK, mgr.Summary())
}

// ClearSession godoc
// @Summary Delete a session
// @Description Drops a session and its conversation history. The shared response cache is unaffected.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.BasicResponse
// @Failure 404 {object} models.BasicResponse
// @Router /sessions/{id} [delete]
func (h *ChatHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if !h.sessions.Delete(sessionID) {
		h.writeBasicError(w, http.StatusNotFound, "Session not found: "+sessionID)
		return
	}

	h.writeJSON(w, http.StatusOK, models.BasicResponse{
		Message: "Session deleted: " + sessionID,
		Status:  "success",
	})
}

// LLMHealth godoc
// @Summary Check LLM health
// @Description Check if the LLM backend is available
// @Tags chat
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Failure 503 {object} models.BasicResponse
// @Router /llm/health [get]
func (h *ChatHandler) LLMHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.generator.HealthCheck(r.Context()); err != nil {
		h.writeBasicError(w, http.StatusServiceUnavailable, "LLM backend is not available: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, models.BasicResponse{
		Message: "LLM backend is available",
		Status:  "success",
	})
}

// writeJSON writes a JSON response with the given status code
func (h *ChatHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Printf("Failed to encode response: %v", err)
	}
}

// writeChatError writes an error as a ChatResponse envelope
func (h *ChatHandler) writeChatError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, models.ChatResponse{
		Answer: message,
		Status: "error",
	})
}

// writeBasicError writes an error as a BasicResponse envelope
func (h *ChatHandler) writeBasicError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, models.BasicResponse{
		Message: message,
		Status:  "error",
	})
}
