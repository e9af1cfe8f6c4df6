package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/services/ai"
	"go.uber.org/zap"
)

// ChatHistoryWindow is how many recent messages seed a general chat reply.
const ChatHistoryWindow = 3

// ErrEmptyReply is returned when the generator produced no usable text.
var ErrEmptyReply = errors.New("empty chat reply")

const chatInstruction = `You are a friendly Turkish assistant inside a personal budget and activity planner.
Answer in Turkish, briefly and warmly. You can help with daily plans, recommendations and discounts.`

// ChatResponder produces free-form replies. It has no fallback; errors go to the caller.
type ChatResponder struct {
	gen    ai.TextGenerator
	logger *zap.Logger
}

// NewChatResponder creates a chat responder.
func NewChatResponder(gen ai.TextGenerator, log *zap.Logger) *ChatResponder {
	return &ChatResponder{gen: gen, logger: logger.Component(log, "chat")}
}

// Respond answers the conversation, using only the last ChatHistoryWindow messages.
func (c *ChatResponder) Respond(ctx context.Context, history []models.Message) (string, error) {
	if len(history) > ChatHistoryWindow {
		history = history[len(history)-ChatHistoryWindow:]
	}

	var (
		reply string
		err   error
	)
	if chat, ok := c.gen.(ai.ChatCompleter); ok {
		messages := make([]ai.ChatMessage, 0, len(history))
		for _, m := range history {
			messages = append(messages, ai.ChatMessage{Role: string(m.Role), Content: m.Text})
		}
		reply, err = chat.Chat(ctx, chatInstruction, messages, ai.WithOperation(ai.OpChat))
	} else {
		reply, err = c.gen.Complete(ctx, flatten(history),
			ai.WithOperation(ai.OpChat),
			ai.WithSystem(chatInstruction),
		)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate chat reply: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	c.logger.Debug("chat_reply_generated", zap.Int("history", len(history)), zap.Int("reply_length", len(reply)))
	return reply, nil
}

func flatten(history []models.Message) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text)
	}
	b.WriteString("assistant:")
	return b.String()
}
