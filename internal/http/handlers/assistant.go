package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/easygopharm/internal/sourcing"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// ChatAssistant answers help-desk questions.
type ChatAssistant interface {
	Chat(ctx context.Context, history []sourcing.ChatMessage, message string) (sourcing.ChatReply, error)
}

// AssistantHandler serves the public help-desk chat.
type AssistantHandler struct {
	assistant ChatAssistant
	logger    *logging.Logger
}

// NewAssistantHandler creates the chat handler.
func NewAssistantHandler(assistant ChatAssistant, logger *logging.Logger) *AssistantHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AssistantHandler{assistant: assistant, logger: logger}
}

type chatRequest struct {
	History []sourcing.ChatMessage `json:"history"`
	Message string                 `json:"message"`
}

// Chat returns the assistant's next turn.
// POST /api/assistant/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var in chatRequest
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	reply, err := h.assistant.Chat(r.Context(), in.History, in.Message)
	if err != nil {
		if errors.Is(err, sourcing.ErrEmptyMessage) {
			jsonError(w, "message is required", http.StatusBadRequest)
			return
		}
		h.logger.Warn("assistant chat failed", "error", err)
		jsonError(w, "assistant is currently unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
