package post

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("post not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Posts are always read through the likes join so every payload carries the
// like count and whether the viewer has liked it.
const selectWithLikes = `
	SELECT p.id, p.content, p.user_id, p.created_at,
	       u.username, u.email, u.name,
	       COUNT(DISTINCT l.id) AS likes_count,
	       MAX(CASE WHEN l.user_id = $1 THEN 1 ELSE 0 END) AS user_has_liked
	FROM posts p
	JOIN users u ON p.user_id = u.id
	LEFT JOIN likes l ON l.likeable_id = p.id AND l.likeable_type = 'post'`

const groupByPost = ` GROUP BY p.id, p.content, p.user_id, p.created_at, u.username, u.email, u.name`

func scanPost(rows interface{ Scan(...any) error }) (*Post, error) {
	var (
		p     Post
		liked int
	)
	err := rows.Scan(&p.ID, &p.Content, &p.UserID, &p.CreatedAt,
		&p.Author.Username, &p.Author.Email, &p.Author.Name,
		&p.LikesCount, &liked)
	if err != nil {
		return nil, err
	}
	p.Author.ID = p.UserID
	p.Liked = liked == 1
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, userID int64, content string) (*Post, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO posts (content, user_id) VALUES ($1, $2) RETURNING id`,
		content, userID,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.ByID(ctx, id, userID)
}

func (r *Repository) ByID(ctx context.Context, postID, viewerID int64) (*Post, error) {
	row := r.db.QueryRowContext(ctx,
		selectWithLikes+` WHERE p.id = $2`+groupByPost,
		viewerID, postID,
	)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *Repository) All(ctx context.Context, viewerID int64, limit, offset int) ([]Post, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		selectWithLikes+groupByPost+` ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`,
		viewerID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return collect(rows, total)
}

func (r *Repository) ByUser(ctx context.Context, authorID, viewerID int64, limit, offset int) ([]Post, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE user_id = $1`, authorID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		selectWithLikes+` WHERE p.user_id = $2`+groupByPost+` ORDER BY p.created_at DESC LIMIT $3 OFFSET $4`,
		viewerID, authorID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return collect(rows, total)
}

// LikedBy pages through posts a user has liked.
func (r *Repository) LikedBy(ctx context.Context, userID, viewerID int64, limit, offset int) ([]Post, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE user_id = $1 AND likeable_type = 'post'`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.content, p.user_id, p.created_at,
		       u.username, u.email, u.name,
		       COUNT(DISTINCT l.id) AS likes_count,
		       MAX(CASE WHEN l.user_id = $1 THEN 1 ELSE 0 END) AS user_has_liked
		FROM posts p
		JOIN users u ON p.user_id = u.id
		JOIN likes l ON l.likeable_id = p.id AND l.likeable_type = 'post'
		WHERE p.id IN (
			SELECT likeable_id FROM likes WHERE user_id = $2 AND likeable_type = 'post'
		)`+groupByPost+` ORDER BY p.created_at DESC LIMIT $3 OFFSET $4`,
		viewerID, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return collect(rows, total)
}

// HasLiked reports whether userID currently likes postID.
func (r *Repository) HasLiked(ctx context.Context, postID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM likes WHERE user_id = $1 AND likeable_id = $2 AND likeable_type = 'post'
		)`,
		userID, postID,
	).Scan(&exists)
	return exists, err
}

func (r *Repository) AddLike(ctx context.Context, postID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO likes (user_id, likeable_id, likeable_type) VALUES ($1, $2, 'post')
		 ON CONFLICT DO NOTHING`,
		userID, postID,
	)
	return err
}

func (r *Repository) RemoveLike(ctx context.Context, postID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND likeable_id = $2 AND likeable_type = 'post'`,
		userID, postID,
	)
	return err
}

func collect(rows *sql.Rows, total int64) ([]Post, int64, error) {
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	return posts, total, rows.Err()
}
