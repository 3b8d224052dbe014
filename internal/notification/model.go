package notification

import "time"

// Types mirror what actors can do to each other: like, comment, follow,
// mention, message.
const (
	TypeLike    = "like"
	TypeComment = "comment"
	TypeFollow  = "follow"
	TypeMention = "mention"
	TypeMessage = "message"
)

type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	Actor     Actor     `json:"user"`
	Post      *PostRef  `json:"post,omitempty"`
}

// Actor is the user whose action produced the notification.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type PostRef struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

type CreateInput struct {
	UserID    int64  // recipient
	ActorID   int64
	Type      string
	Message   string
	PostID    *int64
	CommentID *int64
}

type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	HasMore       bool           `json:"hasMore"`
	Page          int            `json:"page"`
}
