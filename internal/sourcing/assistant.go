package sourcing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/easygopharm/internal/observability/metrics"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

const assistantInstruction = "You are the EasygoPharm AI Assistant. You help patients and doctors identify the generic names of rare medications, explain what those medications are used for from a logistics point of view, and walk them through the sourcing request process. Keep a professional, helpful and SOC-2 compliant tone. Never write prescriptions or give clinical diagnoses."

const (
	RoleUser  = "user"
	RoleModel = "model"

	maxChatHistory = 40
)

// ErrEmptyMessage is returned when the caller sends a blank chat message.
var ErrEmptyMessage = errors.New("sourcing: message is required")

// ChatMessage is one turn of assistant history as exchanged with the browser.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest is the provider-neutral completion input.
type ChatRequest struct {
	System   string
	Messages []ChatMessage
}

// ChatClient completes a conversation. Implementations return the reply text.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (ChatReply, error)
}

// ChatReply carries the reply and the provider that produced it.
type ChatReply struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// Assistant is the public help-desk chat.
type Assistant struct {
	client  ChatClient
	metrics *metrics.AIMetrics
	logger  *logging.Logger
}

// NewAssistant wraps a chat client. A nil client makes Chat return an error.
func NewAssistant(client ChatClient, m *metrics.AIMetrics, logger *logging.Logger) *Assistant {
	if logger == nil {
		logger = logging.Default()
	}
	return &Assistant{client: client, metrics: m, logger: logger}
}

// Enabled reports whether a provider is wired.
func (a *Assistant) Enabled() bool {
	return a != nil && a.client != nil
}

// Chat appends message to history and asks the provider for the next turn.
func (a *Assistant) Chat(ctx context.Context, history []ChatMessage, message string) (ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatReply{}, ErrEmptyMessage
	}
	if !a.Enabled() {
		return ChatReply{}, errors.New("sourcing: assistant is not configured")
	}

	msgs := normalizeHistory(history)
	msgs = appendTurn(msgs, ChatMessage{Role: RoleUser, Text: message})

	reply, err := a.client.Complete(ctx, ChatRequest{System: assistantInstruction, Messages: msgs})
	if err != nil {
		a.metrics.ObserveChat("none", "error")
		return ChatReply{}, fmt.Errorf("sourcing: assistant chat failed: %w", err)
	}
	a.metrics.ObserveChat(reply.Provider, "ok")
	return reply, nil
}

// normalizeHistory drops blank turns, maps unknown roles to user, merges
// adjacent turns from the same role and keeps the most recent turns. The
// result alternates roles and opens with a user turn.
func normalizeHistory(history []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		role := RoleUser
		switch strings.ToLower(strings.TrimSpace(msg.Role)) {
		case RoleModel, "assistant":
			role = RoleModel
		}
		out = appendTurn(out, ChatMessage{Role: role, Text: text})
	}
	if len(out) > maxChatHistory {
		out = out[len(out)-maxChatHistory:]
	}
	// Converse rejects conversations that open with a model turn.
	for len(out) > 0 && out[0].Role == RoleModel {
		out = out[1:]
	}
	return out
}

// appendTurn adds msg, folding it into the last turn when the role repeats.
func appendTurn(msgs []ChatMessage, msg ChatMessage) []ChatMessage {
	if n := len(msgs); n > 0 && msgs[n-1].Role == msg.Role {
		msgs[n-1].Text += "\n\n" + msg.Text
		return msgs
	}
	return append(msgs, msg)
}

// FallbackChatClient tries the primary provider and then the fallback.
type FallbackChatClient struct {
	primary  ChatClient
	fallback ChatClient
	logger   *logging.Logger
}

// NewFallbackChatClient returns primary alone when fallback is nil, and
// fallback alone when primary is nil.
func NewFallbackChatClient(primary, fallback ChatClient, logger *logging.Logger) ChatClient {
	switch {
	case primary == nil && fallback == nil:
		return nil
	case primary == nil:
		return fallback
	case fallback == nil:
		return primary
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackChatClient{primary: primary, fallback: fallback, logger: logger}
}

// Complete implements ChatClient.
func (c *FallbackChatClient) Complete(ctx context.Context, req ChatRequest) (ChatReply, error) {
	reply, err := c.primary.Complete(ctx, req)
	if err == nil {
		return reply, nil
	}
	c.logger.Warn("primary chat provider failed, attempting fallback", "error", err)

	reply, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback chat provider also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return ChatReply{}, fallbackErr
	}
	return reply, nil
}
