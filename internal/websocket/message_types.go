package websocket

import (
	"tradenest-backend/internal/models"

	"github.com/google/uuid"
)

// WebSocket event types exchanged with clients.
const (
	MessageTypeNewMessage      = "new_message"      // chat message sent/received
	MessageTypeMessageSentAck  = "message_sent_ack" // server confirms a client send
	MessageTypeOfferUpdate     = "offer_update"     // offer state changed in one of the user's chats
	MessageTypeTypingIndicator = "typing_indicator"
	MessageTypeError           = "error"
)

// WebSocketMessage is the generic frame wrapper; Type determines how Payload
// is interpreted.
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewMessagePayload is what a client sends to post a chat message over the
// socket. ClientTempID lets the client reconcile its optimistic insert with
// the server-assigned message.
type NewMessagePayload struct {
	ChatID       uuid.UUID `json:"chatId"`
	Text         string    `json:"text"`
	ClientTempID *string   `json:"clientTempId,omitempty"`
}

// MessageSentAckPayload confirms the server stored a client-sent message.
type MessageSentAckPayload struct {
	ClientTempID *string         `json:"clientTempId,omitempty"`
	ServerMsgID  uuid.UUID       `json:"serverMsgId"`
	ChatID       uuid.UUID       `json:"chatId"`
	Timestamp    models.JSONTime `json:"timestamp"`
}

// OfferUpdatePayload notifies a participant that an offer in one of their
// chats changed state. The offer is annotated from the recipient's
// perspective.
type OfferUpdatePayload struct {
	Offer   *models.OfferView `json:"offer"`
	Message *models.Message   `json:"message"`
}

// TypingIndicatorPayload relays typing status to the other participant.
type TypingIndicatorPayload struct {
	ChatID   uuid.UUID `json:"chatId"`
	UserID   uuid.UUID `json:"userId"`
	IsTyping bool      `json:"isTyping"`
}

// ErrorPayload carries error details over the socket.
type ErrorPayload struct {
	Message string `json:"message"`
}

// HubMessage holds raw JSON from a client awaiting processing.
type HubMessage struct {
	client  *Client
	rawJSON []byte
}
