package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole identifies which side of the negotiation an actor is on.
type ChatRole string

const (
	RoleBuyer  ChatRole = "buyer"
	RoleSeller ChatRole = "seller"
)

// Chat represents one buyer-seller negotiation thread for a single listing.
// At most one chat exists per (listing, buyer) pair.
type Chat struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ListingID       uuid.UUID `json:"listingId" db:"listing_id"`
	BuyerID         uuid.UUID `json:"buyerId" db:"buyer_id"`
	SellerID        uuid.UUID `json:"sellerId" db:"seller_id"`
	LastMessageAt   time.Time `json:"lastMessageAt" db:"last_message_at"`
	LastMessageText string    `json:"lastMessageText" db:"last_message_text"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`

	// Enrichment for chat-list rendering; not persisted on the chat row.
	Listing     *Listing         `json:"listing,omitempty" db:"-"`
	OtherUser   *ChatParticipant `json:"otherUser,omitempty" db:"-"`
	IsSeller    bool             `json:"isSeller" db:"-"`
	UnreadCount int              `json:"unreadCount" db:"-"`
}

// RoleOf returns the chat role of userID, or "" when the user is not a
// participant.
func (c *Chat) RoleOf(userID uuid.UUID) ChatRole {
	switch userID {
	case c.BuyerID:
		return RoleBuyer
	case c.SellerID:
		return RoleSeller
	default:
		return ""
	}
}

// StartChatRequest captures the payload for opening a chat on a listing.
type StartChatRequest struct {
	ListingID uuid.UUID `json:"listingId" binding:"required"`
}
