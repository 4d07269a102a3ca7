package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus is the sale state of a listing.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingReserved ListingStatus = "reserved"
	ListingSold     ListingStatus = "sold"
)

// Listing represents an item offered for sale by a seller.
type Listing struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	SellerID    uuid.UUID     `json:"sellerId" db:"seller_id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	Price       float64       `json:"price" db:"price"`
	Status      ListingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`

	Seller *PublicUser `json:"seller,omitempty" db:"-"`
}

// CreateListingRequest captures listing creation input.
type CreateListingRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=120"`
	Description string  `json:"description" binding:"max=2000"`
	Price       float64 `json:"price" binding:"required,gt=0"`
}
