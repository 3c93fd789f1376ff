package domain

import "time"

// NotificationKind classifies notifications for client-side rendering.
type NotificationKind string

const (
	NotificationMessage NotificationKind = "message"
	NotificationAccount NotificationKind = "account"
)

// Notification is an in-app notice addressed to one account.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Body        string           `json:"body,omitempty"`
	RefID       string           `json:"ref_id,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}
