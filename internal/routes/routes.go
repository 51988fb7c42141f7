package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"docchat/internal/handlers"
)

// Handlers bundles the handlers wired into the router
type Handlers struct {
	Health http.HandlerFunc
	Home   http.HandlerFunc
	Chat   *handlers.ChatHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Chat pipeline
	router.HandleFunc("/chat", h.Chat.Chat).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/llm/health", h.Chat.LLMHealth).Methods(http.MethodGet)

	// Session management
	router.HandleFunc("/sessions/{id}/export", h.Chat.Export).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}/stats", h.Chat.Stats).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}/summary", h.Chat.Summary).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}", h.Chat.ClearSession).Methods(http.MethodDelete, http.MethodOptions)

	// Main routes
	router.HandleFunc("/", h.Home).Methods(http.MethodGet)
}
