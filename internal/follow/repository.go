package follow

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2
		)`,
		followerID, followingID,
	).Scan(&exists)
	return exists, err
}

func (r *Repository) Follow(ctx context.Context, followerID, followingID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, following_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		followerID, followingID,
	)
	return err
}

func (r *Repository) Unfollow(ctx context.Context, followerID, followingID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID,
	)
	return err
}

func (r *Repository) Followers(ctx context.Context, userID int64) ([]User, error) {
	return r.queryUsers(ctx, `
		SELECT u.id, u.username, u.email, u.name
		FROM users u
		JOIN follows f ON u.id = f.follower_id
		WHERE f.following_id = $1`,
		userID,
	)
}

func (r *Repository) Following(ctx context.Context, userID int64) ([]User, error) {
	return r.queryUsers(ctx, `
		SELECT u.id, u.username, u.email, u.name
		FROM users u
		JOIN follows f ON u.id = f.following_id
		WHERE f.follower_id = $1`,
		userID,
	)
}

// Suggested returns users the given user does not follow yet, excluding
// themselves, in random order.
func (r *Repository) Suggested(ctx context.Context, userID int64, limit int) ([]User, error) {
	return r.queryUsers(ctx, `
		SELECT u.id, u.username, u.email, u.name
		FROM users u
		WHERE u.id != $1
		AND u.id NOT IN (
			SELECT following_id FROM follows WHERE follower_id = $1
		)
		ORDER BY RANDOM()
		LIMIT $2`,
		userID, limit,
	)
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
