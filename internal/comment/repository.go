package comment

import (
	"context"
	"database/sql"
	"errors"
)

var ErrPostNotFound = errors.New("post not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ByPost(ctx context.Context, postID int64) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.content, c.post_id, c.user_id, c.created_at,
		       u.username, u.email, u.name
		FROM comments c
		JOIN users u ON c.user_id = u.id
		WHERE c.post_id = $1
		ORDER BY c.created_at DESC`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.PostID, &c.UserID, &c.CreatedAt,
			&c.Author.Username, &c.Author.Email, &c.Author.Name); err != nil {
			return nil, err
		}
		c.Author.ID = c.UserID
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// PostAuthor returns the user who owns the post, for notification routing.
func (r *Repository) PostAuthor(ctx context.Context, postID int64) (int64, error) {
	var authorID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM posts WHERE id = $1`, postID,
	).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPostNotFound
	}
	return authorID, err
}

func (r *Repository) Create(ctx context.Context, userID, postID int64, content string) (*Comment, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (content, post_id, user_id) VALUES ($1, $2, $3) RETURNING id`,
		content, postID, userID,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	c := &Comment{}
	err = r.db.QueryRowContext(ctx, `
		SELECT c.id, c.content, c.post_id, c.user_id, c.created_at,
		       u.username, u.email, u.name
		FROM comments c
		JOIN users u ON c.user_id = u.id
		WHERE c.id = $1`,
		id,
	).Scan(&c.ID, &c.Content, &c.PostID, &c.UserID, &c.CreatedAt,
		&c.Author.Username, &c.Author.Email, &c.Author.Name)
	if err != nil {
		return nil, err
	}
	c.Author.ID = c.UserID
	return c, nil
}
