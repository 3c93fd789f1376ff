package domain

import "time"

// MaxMessageLength bounds the text of a single chat message, in runes.
const MaxMessageLength = 2000

// Conversation is the chat thread between one owner and one customer.
type Conversation struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	CustomerID  string    `json:"customer_id"`
	LastMessage string    `json:"last_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasParticipant reports whether accountID is the owner or the customer.
func (c *Conversation) HasParticipant(accountID string) bool {
	return accountID != "" && (c.OwnerID == accountID || c.CustomerID == accountID)
}

// Counterpart returns the other participant of the conversation.
func (c *Conversation) Counterpart(accountID string) string {
	if c.OwnerID == accountID {
		return c.CustomerID
	}
	return c.OwnerID
}

// Message is a single chat entry.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}
