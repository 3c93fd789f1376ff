package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

type notificationService struct {
	repo ports.NotificationRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewNotificationService returns a NotificationService implementation.
func NewNotificationService(repo ports.NotificationRepository, log zerolog.Logger) ports.NotificationService {
	return &notificationService{repo: repo, log: log, now: time.Now}
}

// Publish persists a notification. Called from dispatcher workers.
func (s *notificationService) Publish(ctx context.Context, in ports.NotificationInput) error {
	if in.RecipientID == "" || in.Title == "" {
		return domain.Invalid("notification needs a recipient and a title")
	}

	n := &domain.Notification{
		RecipientID: in.RecipientID,
		Kind:        in.Kind,
		Title:       in.Title,
		Body:        in.Body,
		RefID:       in.RefID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	s.log.Debug().
		Str("recipient_id", in.RecipientID).
		Str("kind", string(in.Kind)).
		Msg("notification stored")
	return nil
}

func (s *notificationService) List(ctx context.Context, caller domain.Identity, recipientID string, unreadOnly bool) ([]*domain.Notification, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		recipientID = caller.AccountID
	}
	if recipientID != caller.AccountID && !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListByRecipient(ctx, recipientID, unreadOnly)
}

func (s *notificationService) MarkRead(ctx context.Context, caller domain.Identity, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Invalid("notification id is required")
	}
	return s.repo.MarkRead(ctx, id, caller.AccountID)
}
