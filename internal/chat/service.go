package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tradenest-backend/internal/models"
	"tradenest-backend/internal/store"

	"github.com/google/uuid"
)

var (
	// ErrNotParticipant is returned when the actor is neither the buyer nor
	// the seller of the chat.
	ErrNotParticipant = fmt.Errorf("not a participant in this chat")
	// ErrOwnListing is returned when a user tries to open a chat on their own
	// listing.
	ErrOwnListing = fmt.Errorf("cannot start a chat with your own listing")
)

// Service owns chat threads and their append-only message log: thread
// identity per (listing, buyer), participant authorization, and the
// denormalized last-activity cache used for chat-list rendering.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// StartChat returns the existing chat for (listing, buyer) or creates one
// with the seller derived from the listing owner.
func (s *Service) StartChat(ctx context.Context, actorID, listingID uuid.UUID) (*models.Chat, error) {
	listing, err := s.store.Listings().GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == actorID {
		return nil, ErrOwnListing
	}

	existing, err := s.store.Chats().GetChatByListingAndBuyer(ctx, listingID, actorID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrChatNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	chat := &models.Chat{
		ID:            uuid.New(),
		ListingID:     listingID,
		BuyerID:       actorID,
		SellerID:      listing.SellerID,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Chats().CreateChat(ctx, chat); err != nil {
		// Two concurrent starts for the same pair: the loser of the unique
		// constraint picks up the winner's chat.
		if errors.Is(err, store.ErrChatExists) {
			return s.store.Chats().GetChatByListingAndBuyer(ctx, listingID, actorID)
		}
		return nil, err
	}
	return chat, nil
}

// authorize loads the chat and verifies the actor is a participant.
func (s *Service) authorize(ctx context.Context, actorID, chatID uuid.UUID) (*models.Chat, models.ChatRole, error) {
	chat, err := s.store.Chats().GetChatByID(ctx, chatID)
	if err != nil {
		return nil, "", err
	}
	role := chat.RoleOf(actorID)
	if role == "" {
		return nil, "", ErrNotParticipant
	}
	return chat, role, nil
}

// SendMessage appends a user message and refreshes the chat's last-activity
// cache in one transaction. Returns the stored message and the updated chat.
func (s *Service) SendMessage(ctx context.Context, actorID, chatID uuid.UUID, text string) (*models.Message, *models.Chat, error) {
	var (
		msg  *models.Message
		chat *models.Chat
	)
	err := s.store.WithinTx(ctx, func(tx store.TxStore) error {
		var err error
		chat, err = tx.Chats().GetChatByID(ctx, chatID)
		if err != nil {
			return err
		}
		if chat.RoleOf(actorID) == "" {
			return ErrNotParticipant
		}

		now := time.Now().UTC()
		msg = &models.Message{
			ID:        uuid.New(),
			ChatID:    chatID,
			SenderID:  actorID,
			Text:      text,
			Kind:      models.KindUser,
			IsRead:    false,
			CreatedAt: now,
		}
		if err := tx.Messages().CreateMessage(ctx, msg); err != nil {
			return err
		}
		if err := tx.Chats().TouchChat(ctx, chatID, text, now); err != nil {
			return err
		}
		chat.LastMessageAt = now
		chat.LastMessageText = text
		chat.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return msg, chat, nil
}

// Messages returns the chat's full history, oldest first.
func (s *Service) Messages(ctx context.Context, actorID, chatID uuid.UUID) ([]*models.Message, error) {
	if _, _, err := s.authorize(ctx, actorID, chatID); err != nil {
		return nil, err
	}
	return s.store.Messages().GetMessagesByChatID(ctx, chatID)
}

// MarkRead flips is_read on every message in the chat not sent by the actor.
// Idempotent.
func (s *Service) MarkRead(ctx context.Context, actorID, chatID uuid.UUID) error {
	if _, _, err := s.authorize(ctx, actorID, chatID); err != nil {
		return err
	}
	return s.store.Messages().MarkMessagesRead(ctx, chatID, actorID)
}

// UnreadCount returns the actor's unread message count across all chats.
func (s *Service) UnreadCount(ctx context.Context, actorID uuid.UUID) (int, error) {
	return s.store.Messages().GetUnreadCountForUser(ctx, actorID)
}

// ChatByID returns one chat, enriched, for a participant.
func (s *Service) ChatByID(ctx context.Context, actorID, chatID uuid.UUID) (*models.Chat, error) {
	chat, _, err := s.authorize(ctx, actorID, chatID)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, chat, actorID)
	return chat, nil
}

// UserChats returns all chats the actor participates in, most recent activity
// first, enriched with listing and other-participant display info.
func (s *Service) UserChats(ctx context.Context, actorID uuid.UUID) ([]*models.Chat, error) {
	chats, err := s.store.Chats().GetUserChats(ctx, actorID)
	if err != nil {
		return nil, err
	}
	for _, chat := range chats {
		s.enrich(ctx, chat, actorID)
	}
	return chats, nil
}

// enrich fills the cosmetic fields for chat-list rendering. Enrichment
// failures are logged and skipped; they never fail the read.
func (s *Service) enrich(ctx context.Context, chat *models.Chat, actorID uuid.UUID) {
	chat.IsSeller = chat.SellerID == actorID

	listing, err := s.store.Listings().GetListingByID(ctx, chat.ListingID)
	if err != nil {
		log.Printf("Chat enrich: could not fetch listing %s for chat %s: %v", chat.ListingID, chat.ID, err)
	} else {
		chat.Listing = listing
	}

	otherID := chat.BuyerID
	if actorID == chat.BuyerID {
		otherID = chat.SellerID
	}
	other, err := s.store.Users().GetUserByID(ctx, otherID)
	if err != nil {
		log.Printf("Chat enrich: could not fetch user %s for chat %s: %v", otherID, chat.ID, err)
		chat.OtherUser = &models.ChatParticipant{ID: otherID, Name: "Unknown"}
	} else {
		pub := other.ToPublicUser()
		chat.OtherUser = &models.ChatParticipant{ID: other.ID, Name: pub.DisplayName, AvatarURL: other.AvatarURL}
	}

	unread, err := s.store.Messages().GetUnreadCountForChat(ctx, chat.ID, actorID)
	if err != nil {
		log.Printf("Chat enrich: could not fetch unread count for chat %s: %v", chat.ID, err)
		return
	}
	chat.UnreadCount = unread
}
