package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"seodesk/internal/assistant"
	"seodesk/internal/metrics"
	"seodesk/internal/models"
)

// Chatter answers a conversation for a user.
type Chatter interface {
	Chat(ctx context.Context, userID uuid.UUID, history []assistant.Message) (*assistant.Reply, error)
}

// HistoryStore reads persisted chat turns.
type HistoryStore interface {
	ListChatHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

// ChatHandler serves the SEO assistant.
type ChatHandler struct {
	assistant Chatter
	history   HistoryStore
}

// NewChatHandler creates a new handler. chatter is nil when no model is configured.
func NewChatHandler(chatter Chatter, history HistoryStore) *ChatHandler {
	return &ChatHandler{assistant: chatter, history: history}
}

// Chat runs one assistant turn over the posted conversation.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.assistant == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "the assistant is not configured")
	}

	var body struct {
		Messages []assistant.Message `json:"messages"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := h.assistant.Chat(c.Context(), user.ID, body.Messages)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrNoMessages),
			errors.Is(err, assistant.ErrInvalidRole),
			errors.Is(err, assistant.ErrLastNotUser):
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		slog.Error("assistant chat failed", "user_id", user.ID, "error", err)
		return jsonErrorDetails(c, fiber.StatusBadGateway, "the assistant could not answer", err.Error())
	}

	tokens := 0
	if reply.Usage != nil {
		tokens = reply.Usage.TotalTokens
	}
	metrics.RecordUsage(&user.ID, models.APIAssistant, "chat", 1, map[string]int{
		"messages":   len(body.Messages),
		"tool_calls": reply.ToolCalls,
		"tokens":     tokens,
	})
	return jsonSuccess(c, reply)
}

// History returns the user's most recent chat messages, oldest first.
func (h *ChatHandler) History(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	messages, err := h.history.ListChatHistory(c.Context(), user.ID, assistant.HistoryLimit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch chat history")
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return jsonSuccess(c, messages)
}
