package ports

import (
	"context"

	"github.com/printease/printease/internal/core/domain"
)

// ConversationFilter selects conversations by participant. Empty fields are ignored.
type ConversationFilter struct {
	OwnerID    string
	CustomerID string
}

// ChatRepository persists conversations and messages.
type ChatRepository interface {
	// FindOrCreateConversation returns the single conversation between the pair,
	// creating it when absent.
	FindOrCreateConversation(ctx context.Context, ownerID, customerID string) (*domain.Conversation, error)
	FindConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, filter ConversationFilter) ([]*domain.Conversation, error)
	// InsertMessage stores m and records it as the conversation's last message.
	InsertMessage(ctx context.Context, m *domain.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
}

// ChatService exposes the chat use cases. The caller identity always comes
// from a verified token.
type ChatService interface {
	StartConversation(ctx context.Context, caller domain.Identity, ownerID, customerID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, caller domain.Identity, ownerID string) ([]*domain.Conversation, error)
	ListMessages(ctx context.Context, caller domain.Identity, conversationID string) ([]*domain.Message, error)
	SendMessage(ctx context.Context, caller domain.Identity, conversationID, text string) (*domain.Message, error)
}
