package post

import "time"

type Post struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	UserID     int64     `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	LikesCount int64     `json:"likes_count"`
	Liked      bool      `json:"user_has_liked"`
	Author     Author    `json:"user"`
}

type Author struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type CreatePostRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type Page struct {
	Posts   []Post `json:"posts"`
	Total   int64  `json:"total"`
	HasMore bool   `json:"hasMore"`
	Page    int    `json:"page"`
}
