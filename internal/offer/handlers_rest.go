package offer

import (
	"context"
	"errors"
	"log"
	"net/http"

	"tradenest-backend/internal/middleware"
	"tradenest-backend/internal/models"
	"tradenest-backend/internal/store"
	"tradenest-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RestHandler exposes the offer engine over REST.
type RestHandler struct {
	engine *Engine
	hub    *websocket.Hub
}

// NewRestHandler creates a new RestHandler.
func NewRestHandler(engine *Engine, hub *websocket.Hub) *RestHandler {
	return &RestHandler{engine: engine, hub: hub}
}

// MakeOffer proposes or edits an offer as the chat's buyer.
// POST /offers
func (h *RestHandler) MakeOffer(c *gin.Context) {
	var req models.MakeOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	act, err := h.engine.MakeOffer(c.Request.Context(), actorID, req.ChatID, req.Amount, req.Message)
	if err != nil {
		h.respondOfferError(c, "MakeOffer", err)
		return
	}

	h.notifyCounterparty(act, actorID)
	c.JSON(http.StatusCreated, gin.H{
		"offerId": act.Offer.ID,
		"offer":   act.Offer.ViewFor(actorID),
	})
}

// AcceptOffer resolves a pending offer as accepted (seller only).
// POST /offers/:id/accept
func (h *RestHandler) AcceptOffer(c *gin.Context) {
	h.transition(c, "AcceptOffer", h.engine.Accept)
}

// DeclineOffer resolves a pending offer as declined (seller only).
// POST /offers/:id/decline
func (h *RestHandler) DeclineOffer(c *gin.Context) {
	h.transition(c, "DeclineOffer", h.engine.Decline)
}

// CancelOffer withdraws a pending offer (buyer only).
// POST /offers/:id/cancel
func (h *RestHandler) CancelOffer(c *gin.Context) {
	h.transition(c, "CancelOffer", h.engine.Cancel)
}

func (h *RestHandler) transition(c *gin.Context, op string, fn func(ctx context.Context, actorID, offerID uuid.UUID) (*Activity, error)) {
	offerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offer ID format"})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	act, err := fn(c.Request.Context(), actorID, offerID)
	if err != nil {
		h.respondOfferError(c, op, err)
		return
	}

	h.notifyCounterparty(act, actorID)
	c.JSON(http.StatusOK, gin.H{"offer": act.Offer.ViewFor(actorID)})
}

// GetActiveOffer returns the chat's most recent offer (any status) for the
// pinned offer card, or null when no offer was ever made.
// GET /offers/active?chatId=<uuid>
func (h *RestHandler) GetActiveOffer(c *gin.Context) {
	chatID, err := uuid.Parse(c.Query("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid chatId query parameter is required"})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	view, err := h.engine.ActiveOffer(c.Request.Context(), actorID, chatID)
	if err != nil {
		h.respondOfferError(c, "GetActiveOffer", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetChatOffers returns all offers for a chat, newest first.
// GET /offers?chatId=<uuid>
func (h *RestHandler) GetChatOffers(c *gin.Context) {
	chatID, err := uuid.Parse(c.Query("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid chatId query parameter is required"})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	views, err := h.engine.ChatOffers(c.Request.Context(), actorID, chatID)
	if err != nil {
		h.respondOfferError(c, "GetChatOffers", err)
		return
	}
	if views == nil {
		views = make([]*models.OfferView, 0)
	}
	c.JSON(http.StatusOK, views)
}

// notifyCounterparty pushes the offer update to the other participant,
// annotated from their perspective.
func (h *RestHandler) notifyCounterparty(act *Activity, actorID uuid.UUID) {
	if h.hub == nil {
		return
	}
	other := act.Chat.SellerID
	if actorID == act.Chat.SellerID {
		other = act.Chat.BuyerID
	}
	h.hub.BroadcastToUser(other, websocket.MessageTypeOfferUpdate, websocket.OfferUpdatePayload{
		Offer:   act.Offer.ViewFor(other),
		Message: act.Message,
	})
}

func (h *RestHandler) respondOfferError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to perform this offer action"})
	case errors.Is(err, ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Offer amount must be positive"})
	case errors.Is(err, ErrOfferNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Offer is no longer pending"})
	case errors.Is(err, store.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
	case errors.Is(err, store.ErrOfferNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
	case errors.Is(err, store.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	default:
		log.Printf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Request failed"})
	}
}
