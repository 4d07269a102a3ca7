package chat

import (
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

// RestHandler handles REST API requests for chats and messages.
type RestHandler struct {
	svc *Service
	hub *websocket.Hub
}

// NewRestHandler creates a new RestHandler.
func NewRestHandler(svc *Service, hub *websocket.Hub) *RestHandler {
	return &RestHandler{svc: svc, hub: hub}
}

// StartChat opens (or returns) the chat for a listing and the current buyer.
// POST /chats
func (h *RestHandler) StartChat(c *gin.Context) {
	var req models.StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	chat, err := h.svc.StartChat(c.Request.Context(), actorID, req.ListingID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrListingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		case errors.Is(err, ErrOwnListing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot start a chat with your own listing"})
		default:
			log.Printf("StartChat: Failed for user %s on listing %s: %v", actorID, req.ListingID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start chat"})
		}
		return
	}

	c.JSON(http.StatusOK, chat)
}

// GetChats lists all conversations for the authenticated user.
// GET /chats
func (h *RestHandler) GetChats(c *gin.Context) {
	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	chats, err := h.svc.UserChats(c.Request.Context(), actorID)
	if err != nil {
		log.Printf("GetChats: Failed to get chats for user %s: %v", actorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve chats"})
		return
	}
	if chats == nil {
		chats = make([]*models.Chat, 0)
	}
	c.JSON(http.StatusOK, chats)
}

// GetChatByID returns one chat with its enrichment.
// GET /chats/:id
func (h *RestHandler) GetChatByID(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat ID format"})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	chat, err := h.svc.ChatByID(c.Request.Context(), actorID, chatID)
	if err != nil {
		h.respondChatError(c, "GetChatByID", chatID, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// PostMessage sends a user message in a chat.
// POST /messages
func (h *RestHandler) PostMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	msg, chat, err := h.svc.SendMessage(c.Request.Context(), actorID, req.ChatID, req.Text)
	if err != nil {
		h.respondChatError(c, "PostMessage", req.ChatID, err)
		return
	}

	if h.hub != nil {
		other := chat.SellerID
		if actorID == chat.SellerID {
			other = chat.BuyerID
		}
		h.hub.BroadcastToUser(other, websocket.MessageTypeNewMessage, msg)
	}

	c.JSON(http.StatusCreated, msg)
}

// GetMessagesByChatID returns a chat's full history, oldest first.
// GET /messages?chatId=<uuid>
func (h *RestHandler) GetMessagesByChatID(c *gin.Context) {
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

	messages, err := h.svc.Messages(c.Request.Context(), actorID, chatID)
	if err != nil {
		h.respondChatError(c, "GetMessagesByChatID", chatID, err)
		return
	}
	if messages == nil {
		messages = make([]*models.Message, 0)
	}
	c.JSON(http.StatusOK, messages)
}

// MarkMessagesRead flips the read flag on all messages from the other
// participant. POST /messages/read
func (h *RestHandler) MarkMessagesRead(c *gin.Context) {
	var req models.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), actorID, req.ChatID); err != nil {
		h.respondChatError(c, "MarkMessagesRead", req.ChatID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUnreadCount returns the user's unread message count across all chats.
// GET /messages/unread-count
func (h *RestHandler) GetUnreadCount(c *gin.Context) {
	actorID, err := middleware.UserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user session"})
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), actorID)
	if err != nil {
		log.Printf("GetUnreadCount: Failed for user %s: %v", actorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve unread count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

func (h *RestHandler) respondChatError(c *gin.Context, op string, chatID uuid.UUID, err error) {
	switch {
	case errors.Is(err, store.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
	case errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant in this chat"})
	default:
		log.Printf("%s: Failed for chat %s: %v", op, chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Request failed"})
	}
}
