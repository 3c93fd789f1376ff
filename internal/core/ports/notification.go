package ports

import (
	"context"

	"github.com/printease/printease/internal/core/domain"
)

// NotificationInput is what producers hand to the dispatcher.
type NotificationInput struct {
	RecipientID string
	Kind        domain.NotificationKind
	Title       string
	Body        string
	RefID       string
}

// NotificationRepository persists notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*domain.Notification, error)
	// MarkRead flags the notification as read when it belongs to recipientID.
	MarkRead(ctx context.Context, id, recipientID string) error
}

// NotificationService serves notification reads and stores published ones.
type NotificationService interface {
	Publish(ctx context.Context, in NotificationInput) error
	List(ctx context.Context, caller domain.Identity, recipientID string, unreadOnly bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, caller domain.Identity, id string) error
}

// Notifier queues notifications for asynchronous delivery.
type Notifier interface {
	Enqueue(in NotificationInput)
}
