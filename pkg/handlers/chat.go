package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/services"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserInput string `json:"user_input"`
}

// ChatHandler serves the logistics assistant.
type ChatHandler struct {
	chat   services.ChatService
	logger *zap.Logger
}

func NewChatHandler(chat services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// RegisterRoutes registers the chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.Chat)
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "user_input is required")
		return
	}

	resp, err := h.chat.Answer(r.Context(), req.UserInput)
	if err != nil {
		h.logger.Error("Chat answer failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "answer_failed", "Failed to answer the question")
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode chat response", zap.Error(err))
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
