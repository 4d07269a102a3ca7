package models

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus is the lifecycle state of a negotiation offer.
// Buyer cancellation and seller decline share the terminal "declined" status;
// they are distinguished only by the offer-activity message emitted.
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
)

// Terminal reports whether the status admits no further transitions.
func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferDeclined
}

// Offer represents one negotiated price proposal inside a chat.
// At most one pending offer exists per chat: making an offer while one is
// pending edits it in place rather than inserting a new row.
type Offer struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	ChatID     uuid.UUID   `json:"chatId" db:"chat_id"`
	ListingID  uuid.UUID   `json:"listingId" db:"listing_id"`
	BuyerID    uuid.UUID   `json:"buyerId" db:"buyer_id"`
	SellerID   uuid.UUID   `json:"sellerId" db:"seller_id"`
	Amount     float64     `json:"amount" db:"amount"`
	Message    *string     `json:"message,omitempty" db:"message"`
	Status     OfferStatus `json:"status" db:"status"`
	ResolvedAt *time.Time  `json:"resolvedAt,omitempty" db:"resolved_at"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time   `json:"updatedAt" db:"updated_at"`
}

// OfferView is an offer annotated with viewer-relative flags.
type OfferView struct {
	Offer
	IsBuyer  bool `json:"isBuyer"`
	IsSeller bool `json:"isSeller"`
}

// ViewFor annotates the offer for the given viewer.
func (o *Offer) ViewFor(userID uuid.UUID) *OfferView {
	return &OfferView{
		Offer:    *o,
		IsBuyer:  o.BuyerID == userID,
		IsSeller: o.SellerID == userID,
	}
}

// MakeOfferRequest captures the payload for proposing or editing an offer.
type MakeOfferRequest struct {
	ChatID  uuid.UUID `json:"chatId" binding:"required"`
	Amount  float64   `json:"amount" binding:"required"`
	Message *string   `json:"message,omitempty" binding:"omitempty,max=500"`
}
