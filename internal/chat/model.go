package chat

import "time"

type Conversation struct {
	ID           int64         `json:"id"`
	Type         string        `json:"type"` // 'direct' or 'group'
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Participants []Participant `json:"participants,omitempty"`
	LastMessage  *Message      `json:"last_message,omitempty"`
}

type Participant struct {
	ConversationID int64        `json:"conversation_id"`
	UserID         int64        `json:"user_id"`
	LastReadAt     *time.Time   `json:"last_read_at"`
	CreatedAt      time.Time    `json:"created_at"`
	User           *UserSummary `json:"user,omitempty"`
}

// UserSummary is denormalized into message and conversation payloads so the
// UI never needs a second lookup.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversation_id"`
	SenderID       int64        `json:"sender_id"`
	Content        string       `json:"content"`
	Type           string       `json:"type"`   // text, image, file
	Status         string       `json:"status"` // sent, delivered, read
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Sender         *UserSummary `json:"sender,omitempty"`
}

type CreateConversationRequest struct {
	Type           string  `json:"type" validate:"required,oneof=direct group"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"required,min=1"`
}

type CreateMessageRequest struct {
	ConversationID int64  `json:"conversation_id" validate:"required"`
	Content        string `json:"content" validate:"required,max=4000"`
	Type           string `json:"type" validate:"omitempty,oneof=text image file"`
}
