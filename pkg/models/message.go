package models

import (
	"time"

	"github.com/google/uuid"
)

// Message content is immutable once sent; only IsRead changes.
type Message struct {
	Base
	MatchID    uuid.UUID `db:"match_id" json:"match_id" validate:"required"`
	SenderID   uuid.UUID `db:"sender_id" json:"sender_id" validate:"required"`
	ReceiverID uuid.UUID `db:"receiver_id" json:"receiver_id" validate:"required"`
	Content    string    `db:"content" json:"content" validate:"required,max=5000"`
	IsRead     bool      `db:"is_read" json:"is_read"`
}

func (Message) TableName() string {
	return MessagesTable
}

// NoMessagesYet is shown for conversations without any message.
const NoMessagesYet = "No messages yet"

// Conversation is a confirmed match seen from one participant.
type Conversation struct {
	MatchID        uuid.UUID `json:"match_id"`
	Counterpart    Profile   `json:"counterpart"`
	LastMessage    *Message  `json:"last_message,omitempty"`
	Preview        string    `json:"preview"`
	LastActivityAt time.Time `json:"last_activity_at"`
	LastActivity   string    `json:"last_activity"`
	UnreadCount    int       `json:"unread_count"`
}
