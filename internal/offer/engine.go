package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradenest-backend/internal/models"
	"tradenest-backend/internal/store"

	"github.com/google/uuid"
)

// System message texts emitted on offer transitions. The chat preview is set
// to the same text, so clients render transition and summary consistently.
const (
	textOfferMade      = "Buyer made an offer"
	textOfferEdited    = "Buyer edited the offer"
	textOfferAccepted  = "Seller accepted the offer"
	textOfferDeclined  = "Seller declined the offer"
	textOfferCancelled = "Buyer cancelled the offer"
)

var (
	// ErrUnauthorized is returned when the actor is not a participant of the
	// chat or lacks the role a transition requires (buyer-only vs seller-only).
	ErrUnauthorized = fmt.Errorf("not allowed to perform this offer action")
	// ErrInvalidAmount is returned for non-positive offer amounts.
	ErrInvalidAmount = fmt.Errorf("offer amount must be positive")
	// ErrOfferNotPending is returned when a transition is attempted on an
	// offer that already reached a terminal status.
	ErrOfferNotPending = fmt.Errorf("offer is no longer pending")
)

// Activity is the result of a successful offer transition: the offer after
// the transition, the offer-activity message appended for it, and the chat
// with its refreshed last-activity cache.
type Activity struct {
	Offer   *models.Offer
	Message *models.Message
	Chat    *models.Chat
}

// Engine enforces the negotiation state machine: at most one pending offer
// per chat, buyer-only propose/edit/cancel, seller-only accept/decline, and
// terminal statuses that never change again. Every transition, its
// offer-activity message, and the chat cache update commit as one
// transaction.
type Engine struct {
	store store.Store
}

func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// MakeOffer proposes a price on behalf of the chat's buyer. If a pending
// offer already exists for the chat it is edited in place (same identifier);
// otherwise a new pending offer is created.
func (e *Engine) MakeOffer(ctx context.Context, actorID, chatID uuid.UUID, amount float64, message *string) (*Activity, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var act *Activity
	err := e.store.WithinTx(ctx, func(tx store.TxStore) error {
		// Locking the chat row serializes concurrent makeOffer calls for the
		// same chat, so two proposals cannot both insert a pending row.
		chat, err := tx.Chats().GetChatForUpdate(ctx, chatID)
		if err != nil {
			return err
		}
		if chat.BuyerID != actorID {
			return ErrUnauthorized
		}

		now := time.Now().UTC()
		var off *models.Offer
		var text string

		existing, err := tx.Offers().GetPendingOfferForUpdate(ctx, chatID)
		switch {
		case err == nil:
			if err := tx.Offers().UpdatePendingOffer(ctx, existing.ID, amount, message, now); err != nil {
				return err
			}
			existing.Amount = amount
			existing.Message = message
			existing.UpdatedAt = now
			off = existing
			text = textOfferEdited
		case errors.Is(err, store.ErrOfferNotFound):
			off = &models.Offer{
				ID:        uuid.New(),
				ChatID:    chat.ID,
				ListingID: chat.ListingID,
				BuyerID:   chat.BuyerID,
				SellerID:  chat.SellerID,
				Amount:    amount,
				Message:   message,
				Status:    models.OfferPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Offers().CreateOffer(ctx, off); err != nil {
				return err
			}
			text = textOfferMade
		default:
			return err
		}

		msg, err := appendActivity(ctx, tx, chat, actorID, off.ID, text, now)
		if err != nil {
			return err
		}
		act = &Activity{Offer: off, Message: msg, Chat: chat}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return act, nil
}

// Accept resolves a pending offer as accepted (seller only) and marks the
// listing reserved.
func (e *Engine) Accept(ctx context.Context, actorID, offerID uuid.UUID) (*Activity, error) {
	return e.resolve(ctx, actorID, offerID, models.RoleSeller, models.OfferAccepted, textOfferAccepted)
}

// Decline resolves a pending offer as declined (seller only).
func (e *Engine) Decline(ctx context.Context, actorID, offerID uuid.UUID) (*Activity, error) {
	return e.resolve(ctx, actorID, offerID, models.RoleSeller, models.OfferDeclined, textOfferDeclined)
}

// Cancel withdraws a pending offer (buyer only). Cancellation shares the
// terminal declined status with seller decline; the emitted message is what
// tells the two apart.
func (e *Engine) Cancel(ctx context.Context, actorID, offerID uuid.UUID) (*Activity, error) {
	return e.resolve(ctx, actorID, offerID, models.RoleBuyer, models.OfferDeclined, textOfferCancelled)
}

func (e *Engine) resolve(ctx context.Context, actorID, offerID uuid.UUID, role models.ChatRole, status models.OfferStatus, text string) (*Activity, error) {
	var act *Activity
	err := e.store.WithinTx(ctx, func(tx store.TxStore) error {
		// The row lock makes the pending check a compare-and-set: of two
		// concurrent transitions, exactly one commits and the other observes
		// a terminal status here.
		off, err := tx.Offers().GetOfferForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		switch role {
		case models.RoleSeller:
			if off.SellerID != actorID {
				return ErrUnauthorized
			}
		case models.RoleBuyer:
			if off.BuyerID != actorID {
				return ErrUnauthorized
			}
		}
		if off.Status != models.OfferPending {
			return ErrOfferNotPending
		}

		now := time.Now().UTC()
		if err := tx.Offers().ResolveOffer(ctx, off.ID, status, now); err != nil {
			return err
		}
		off.Status = status
		off.ResolvedAt = &now
		off.UpdatedAt = now

		if status == models.OfferAccepted {
			if err := tx.Listings().UpdateListingStatus(ctx, off.ListingID, models.ListingReserved, now); err != nil {
				return err
			}
		}

		chat, err := tx.Chats().GetChatByID(ctx, off.ChatID)
		if err != nil {
			return err
		}
		msg, err := appendActivity(ctx, tx, chat, actorID, off.ID, text, now)
		if err != nil {
			return err
		}
		act = &Activity{Offer: off, Message: msg, Chat: chat}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return act, nil
}

// appendActivity inserts the offer-activity message and refreshes the chat's
// last-activity cache within the caller's transaction.
func appendActivity(ctx context.Context, tx store.TxStore, chat *models.Chat, senderID, offerID uuid.UUID, text string, now time.Time) (*models.Message, error) {
	offRef := offerID
	msg := &models.Message{
		ID:       uuid.New(),
		ChatID:   chat.ID,
		SenderID: senderID,
		Text:     text,
		Kind:     models.KindOfferActivity,
		OfferID:  &offRef,
		// Offer-activity notices are not counted toward unread badges.
		IsRead:    true,
		CreatedAt: now,
	}
	if err := tx.Messages().CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := tx.Chats().TouchChat(ctx, chat.ID, text, now); err != nil {
		return nil, err
	}
	chat.LastMessageAt = now
	chat.LastMessageText = text
	chat.UpdatedAt = now
	return msg, nil
}

// ActiveOffer returns the chat's most recently created offer regardless of
// status, annotated for the viewer, or nil when no offer was ever made.
func (e *Engine) ActiveOffer(ctx context.Context, actorID, chatID uuid.UUID) (*models.OfferView, error) {
	chat, err := e.store.Chats().GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.RoleOf(actorID) == "" {
		return nil, ErrUnauthorized
	}

	off, err := e.store.Offers().GetLatestOfferByChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrOfferNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return off.ViewFor(actorID), nil
}

// ChatOffers returns all offers for the chat, newest first, annotated for
// the viewer.
func (e *Engine) ChatOffers(ctx context.Context, actorID, chatID uuid.UUID) ([]*models.OfferView, error) {
	chat, err := e.store.Chats().GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.RoleOf(actorID) == "" {
		return nil, ErrUnauthorized
	}

	offers, err := e.store.Offers().GetOffersByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	views := make([]*models.OfferView, 0, len(offers))
	for _, off := range offers {
		views = append(views, off.ViewFor(actorID))
	}
	return views, nil
}
