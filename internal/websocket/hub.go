package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"tradenest-backend/internal/models"

	"github.com/google/uuid"
)

// ChatService is the slice of the chat layer the hub needs to process
// inbound frames.
type ChatService interface {
	SendMessage(ctx context.Context, actorID, chatID uuid.UUID, text string) (*models.Message, *models.Chat, error)
	ChatByID(ctx context.Context, actorID, chatID uuid.UUID) (*models.Chat, error)
}

// Hub maintains active WebSocket clients and pushes chat/offer events to the
// participants of a negotiation.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	clientsMux sync.RWMutex

	processMessage chan HubMessage
	register       chan *Client
	unregister     chan *Client

	chatSvc ChatService
}

// NewHub returns a Hub wired to the provided chat service.
func NewHub(chatSvc ChatService) *Hub {
	return &Hub{
		clients:        make(map[uuid.UUID]map[*Client]bool),
		processMessage: make(chan HubMessage),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		chatSvc:        chatSvc,
	}
}

// Run processes hub events until the process exits.
func (h *Hub) Run() {
	log.Println("WebSocket Hub: Starting...")
	for {
		select {
		case client := <-h.register:
			h.clientsMux.Lock()
			if _, ok := h.clients[client.userID]; !ok {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			log.Printf("WebSocket Hub: Client registered (User: %s). Total for user: %d", client.userID, len(h.clients[client.userID]))
			h.clientsMux.Unlock()

		case client := <-h.unregister:
			h.clientsMux.Lock()
			if userClients, ok := h.clients[client.userID]; ok {
				if _, clientExists := userClients[client]; clientExists {
					close(client.send)
					delete(userClients, client)
					if len(userClients) == 0 {
						delete(h.clients, client.userID)
					}
					log.Printf("WebSocket Hub: Client unregistered (User: %s). Remaining for user: %d", client.userID, len(userClients))
				}
			}
			h.clientsMux.Unlock()

		case hubMsg := <-h.processMessage:
			h.handleIncomingMessage(hubMsg.client, hubMsg.rawJSON)
		}
	}
}

func (h *Hub) handleIncomingMessage(senderClient *Client, rawJSON []byte) {
	var wsMsg WebSocketMessage
	if err := json.Unmarshal(rawJSON, &wsMsg); err != nil {
		log.Printf("WebSocket Hub: Error unmarshalling message from User %s: %v", senderClient.userID, err)
		senderClient.SendMessage(MessageTypeError, ErrorPayload{Message: "Invalid message format"})
		return
	}

	ctx := context.Background()

	switch wsMsg.Type {
	case MessageTypeNewMessage:
		var payload NewMessagePayload
		payloadBytes, _ := json.Marshal(wsMsg.Payload)
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			senderClient.SendMessage(MessageTypeError, ErrorPayload{Message: "Invalid new_message payload"})
			return
		}
		h.handleNewChatMessage(ctx, senderClient, payload)

	case MessageTypeTypingIndicator:
		var payload TypingIndicatorPayload
		payloadBytes, _ := json.Marshal(wsMsg.Payload)
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			senderClient.SendMessage(MessageTypeError, ErrorPayload{Message: "Invalid typing_indicator payload"})
			return
		}
		h.handleTypingIndicator(ctx, senderClient, payload)

	default:
		log.Printf("WebSocket Hub: Unknown message type '%s' from User %s", wsMsg.Type, senderClient.userID)
		senderClient.SendMessage(MessageTypeError, ErrorPayload{Message: "Unknown message type"})
	}
}

func (h *Hub) handleNewChatMessage(ctx context.Context, senderClient *Client, payload NewMessagePayload) {
	if payload.ChatID == uuid.Nil || payload.Text == "" {
		senderClient.SendMessage(MessageTypeError, ErrorPayload{Message: "new_message requires chatId and text"})
		return
	}

	msg, chat, err := h.chatSvc.SendMessage(ctx, senderClient.userID, payload.ChatID, payload.Text)
	if err != nil {
		log.Printf("WebSocket Hub: Error sending message for user %s in chat %s: %v", senderClient.userID, payload.ChatID, err)
		senderClient.SendMessage(MessageTypeError, ErrorPayload{Message: "Failed to send message"})
		return
	}

	senderClient.SendMessage(MessageTypeMessageSentAck, MessageSentAckPayload{
		ClientTempID: payload.ClientTempID,
		ServerMsgID:  msg.ID,
		ChatID:       chat.ID,
		Timestamp:    models.JSONTime(msg.CreatedAt),
	})

	h.BroadcastToUser(otherParticipant(chat, senderClient.userID), MessageTypeNewMessage, msg)
}

func (h *Hub) handleTypingIndicator(ctx context.Context, senderClient *Client, payload TypingIndicatorPayload) {
	chat, err := h.chatSvc.ChatByID(ctx, senderClient.userID, payload.ChatID)
	if err != nil {
		senderClient.SendMessage(MessageTypeError, ErrorPayload{Message: "Chat not found for typing indicator"})
		return
	}

	payload.UserID = senderClient.userID
	h.BroadcastToUser(otherParticipant(chat, senderClient.userID), MessageTypeTypingIndicator, payload)
}

// BroadcastToUser sends an event to all connected clients for a user. Users
// without an open socket are skipped silently.
func (h *Hub) BroadcastToUser(userID uuid.UUID, msgType string, payload interface{}) {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	if userClients, found := h.clients[userID]; found {
		for client := range userClients {
			client.SendMessage(msgType, payload)
		}
	}
}

func otherParticipant(chat *models.Chat, userID uuid.UUID) uuid.UUID {
	if chat.BuyerID == userID {
		return chat.SellerID
	}
	return chat.BuyerID
}
