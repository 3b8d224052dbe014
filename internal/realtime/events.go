package realtime

import (
	"encoding/json"
	"time"
)

// Event names on the wire. Inbound events arrive from clients, outbound
// events are emitted by the dispatcher and reconciler.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
	EventMessageRead = "message_read"

	EventNewMessage       = "new_message"
	EventMessageDelivered = "message_delivered"
	EventMessagesRead     = "messages_read"
	EventNotification     = "notification"
	EventError            = "error"
)

// Envelope wraps every frame exchanged over a connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound frame. Marshal failures are a programming
// error on our own payload types, so the error is not propagated further
// than the caller's log.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// JoinPayload binds a connection to a user identity.
type JoinPayload struct {
	UserID int64 `json:"user_id"`
}

// Message is the persisted message as it travels over the socket. The
// dispatcher never mutates it; status side effects go through the reconciler.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	SenderID       int64       `json:"sender_id"`
	Content        string      `json:"content"`
	Type           string      `json:"type"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	Sender         *UserDetail `json:"sender,omitempty"`
}

// UserDetail is the denormalized sender block clients render from.
type UserDetail struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// DeliveredPayload confirms to the sender that one online recipient was
// reachable at dispatch time.
type DeliveredPayload struct {
	MessageID      int64 `json:"messageId"`
	ConversationID int64 `json:"conversationId"`
}

// ReadPayload is the per-message read acknowledgement broadcast to the
// conversation room.
type ReadPayload struct {
	MessageID      int64 `json:"messageId"`
	ConversationID int64 `json:"conversationId"`
	ReadBy         int64 `json:"readBy,omitempty"`
}

// ConversationReadPayload announces a catch-up read of a whole conversation.
type ConversationReadPayload struct {
	ConversationID int64 `json:"conversationId"`
	ReadBy         int64 `json:"readBy"`
}

// ErrorPayload is the socket-safe error frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
