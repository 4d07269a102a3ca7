package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind distinguishes user text from generated notices.
type MessageKind string

const (
	KindUser          MessageKind = "user"
	KindSystem        MessageKind = "system"
	KindOfferActivity MessageKind = "offer_activity"
)

// Message represents one entry in a chat's append-only history.
type Message struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	ChatID    uuid.UUID   `json:"chatId" db:"chat_id"`
	SenderID  uuid.UUID   `json:"senderId" db:"sender_id"`
	Text      string      `json:"text" db:"text"`
	Kind      MessageKind `json:"kind" db:"kind"`
	OfferID   *uuid.UUID  `json:"offerId,omitempty" db:"offer_id"`
	IsRead    bool        `json:"isRead" db:"is_read"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`

	Sender *PublicUser `json:"sender,omitempty" db:"-"`
}

// SendMessageRequest captures the payload for sending a user message.
type SendMessageRequest struct {
	ChatID uuid.UUID `json:"chatId" binding:"required"`
	Text   string    `json:"text" binding:"required,max=4096"`
}

// MarkReadRequest captures the payload for marking a chat's messages read.
type MarkReadRequest struct {
	ChatID uuid.UUID `json:"chatId" binding:"required"`
}
