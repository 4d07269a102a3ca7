package store

import (
	"context"
	"fmt"
	"time"

	"tradenest-backend/internal/models"

	"github.com/google/uuid"
)

// UserStore defines the interface for user data operations.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, displayName, bio, avatarURL *string) (*models.User, error)
}

// ListingStore defines persistence operations for listings.
type ListingStore interface {
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListListingsBySeller(ctx context.Context, sellerID uuid.UUID) ([]*models.Listing, error)
	UpdateListingStatus(ctx context.Context, id uuid.UUID, status models.ListingStatus, now time.Time) error
}

// ChatStore defines persistence operations for negotiation threads.
type ChatStore interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	// GetChatForUpdate reads the chat row under a row lock; only meaningful
	// inside WithinTx.
	GetChatForUpdate(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	GetChatByListingAndBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*models.Chat, error)
	GetUserChats(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error)
	// TouchChat refreshes the denormalized last-activity cache.
	TouchChat(ctx context.Context, id uuid.UUID, previewText string, now time.Time) error
}

// MessageStore defines persistence operations for the append-only message log.
type MessageStore interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessagesByChatID(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error)
	// MarkMessagesRead flips is_read for all messages in the chat not sent by
	// readerID. Idempotent.
	MarkMessagesRead(ctx context.Context, chatID, readerID uuid.UUID) error
	GetUnreadCountForChat(ctx context.Context, chatID, readerID uuid.UUID) (int, error)
	GetUnreadCountForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// OfferStore defines persistence operations for negotiation offers.
type OfferStore interface {
	CreateOffer(ctx context.Context, offer *models.Offer) error
	GetOfferByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	// GetOfferForUpdate reads the offer row under a row lock; only meaningful
	// inside WithinTx.
	GetOfferForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	// GetPendingOfferForUpdate locks and returns the chat's pending offer, or
	// ErrOfferNotFound when there is none.
	GetPendingOfferForUpdate(ctx context.Context, chatID uuid.UUID) (*models.Offer, error)
	UpdatePendingOffer(ctx context.Context, id uuid.UUID, amount float64, message *string, now time.Time) error
	// ResolveOffer moves the offer into a terminal status and stamps the
	// resolution time.
	ResolveOffer(ctx context.Context, id uuid.UUID, status models.OfferStatus, now time.Time) error
	GetLatestOfferByChat(ctx context.Context, chatID uuid.UUID) (*models.Offer, error)
	GetOffersByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Offer, error)
}

// TxStore groups the per-entity stores sharing one execution scope, either
// the pool or a single transaction.
type TxStore interface {
	Users() UserStore
	Listings() ListingStore
	Chats() ChatStore
	Messages() MessageStore
	Offers() OfferStore
}

// Store is the root persistence handle. WithinTx runs fn against a
// transaction-bound TxStore; the transaction commits only when fn returns
// nil, otherwise every write in fn is rolled back.
type Store interface {
	TxStore
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
}

// --- Custom Errors ---

var (
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrEmailExists     = fmt.Errorf("email already exists")
	ErrUsernameExists  = fmt.Errorf("username already exists")
	ErrListingNotFound = fmt.Errorf("listing not found")
	ErrChatNotFound    = fmt.Errorf("chat not found")
	ErrChatExists      = fmt.Errorf("chat already exists for this listing and buyer")
	ErrOfferNotFound   = fmt.Errorf("offer not found")
)
