package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

// ChatService implements owner/customer conversations.
type ChatService struct {
	chats    ports.ChatRepository
	accounts ports.AccountRepository
	notifier ports.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewChatService(chats ports.ChatRepository, accounts ports.AccountRepository, notifier ports.Notifier, log zerolog.Logger) *ChatService {
	return &ChatService{chats: chats, accounts: accounts, notifier: notifier, log: log, now: time.Now}
}

// StartConversation returns the conversation between ownerID and customerID,
// creating it on first contact. The caller must be one of the two.
func (s *ChatService) StartConversation(ctx context.Context, caller domain.Identity, ownerID, customerID string) (*domain.Conversation, error) {
	ownerID, customerID = strings.TrimSpace(ownerID), strings.TrimSpace(customerID)

	// The caller fills its own side when omitted.
	switch caller.Role {
	case domain.RoleOwner:
		if ownerID == "" {
			ownerID = caller.AccountID
		}
	case domain.RoleCustomer, domain.RoleGuest:
		if customerID == "" {
			customerID = caller.AccountID
		}
	}

	if ownerID == "" || customerID == "" {
		return nil, domain.Invalid("ownerId and customerId are required")
	}
	if ownerID == customerID {
		return nil, domain.Invalid("a conversation needs two different participants")
	}
	if !caller.IsAdmin() && caller.AccountID != ownerID && caller.AccountID != customerID {
		return nil, domain.ErrForbidden
	}

	owner, err := s.accounts.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.Invalid("owner does not exist")
		}
		return nil, err
	}
	if owner.Role != domain.RoleOwner {
		return nil, domain.Invalid("ownerId must reference a shop owner")
	}

	return s.chats.FindOrCreateConversation(ctx, ownerID, customerID)
}

func (s *ChatService) ListConversations(ctx context.Context, caller domain.Identity, ownerID string) ([]*domain.Conversation, error) {
	ownerID = strings.TrimSpace(ownerID)

	var filter ports.ConversationFilter
	switch {
	case caller.IsAdmin():
		filter.OwnerID = ownerID
	case caller.Role == domain.RoleOwner:
		if ownerID != "" && ownerID != caller.AccountID {
			return nil, domain.ErrForbidden
		}
		filter.OwnerID = caller.AccountID
	default:
		filter.CustomerID = caller.AccountID
		filter.OwnerID = ownerID
	}

	return s.chats.ListConversations(ctx, filter)
}

func (s *ChatService) ListMessages(ctx context.Context, caller domain.Identity, conversationID string) ([]*domain.Message, error) {
	if _, err := s.participantConversation(ctx, caller, conversationID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, conversationID)
}

// SendMessage stores a message and notifies the other participant.
func (s *ChatService) SendMessage(ctx context.Context, caller domain.Identity, conversationID, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Invalid("text is required")
	}
	if utf8.RuneCountInString(text) > domain.MaxMessageLength {
		return nil, domain.Invalid(fmt.Sprintf("text must be at most %d characters", domain.MaxMessageLength))
	}

	conv, err := s.participantConversation(ctx, caller, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       caller.AccountID,
		Text:           text,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.chats.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	if s.notifier != nil && conv.HasParticipant(caller.AccountID) {
		s.notifier.Enqueue(ports.NotificationInput{
			RecipientID: conv.Counterpart(caller.AccountID),
			Kind:        domain.NotificationMessage,
			Title:       "New message",
			Body:        preview(text),
			RefID:       conv.ID,
		})
	}

	s.log.Debug().Str("conversation_id", conv.ID).Str("sender_id", caller.AccountID).Msg("message sent")
	return msg, nil
}

func (s *ChatService) participantConversation(ctx context.Context, caller domain.Identity, conversationID string) (*domain.Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, domain.Invalid("conversationId is required")
	}
	conv, err := s.chats.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !conv.HasParticipant(caller.AccountID) {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

func preview(text string) string {
	const max = 80
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max]) + "…"
}
