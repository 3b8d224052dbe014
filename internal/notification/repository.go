package notification

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("notification not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `
	SELECT n.id, n.type, n.message, n.read, n.created_at,
	       u.id, u.username, u.email, u.name,
	       p.id, p.content
	FROM notifications n
	JOIN users u ON n.actor_id = u.id
	LEFT JOIN posts p ON n.post_id = p.id`

func scanNotification(row interface{ Scan(...any) error }) (*Notification, error) {
	var (
		n           Notification
		postID      sql.NullInt64
		postContent sql.NullString
	)
	err := row.Scan(&n.ID, &n.Type, &n.Message, &n.Read, &n.CreatedAt,
		&n.Actor.ID, &n.Actor.Username, &n.Actor.Email, &n.Actor.Name,
		&postID, &postContent)
	if err != nil {
		return nil, err
	}
	if postID.Valid {
		n.Post = &PostRef{ID: postID.Int64, Content: postContent.String}
	}
	return &n, nil
}

func (r *Repository) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, actor_id, type, message, post_id, comment_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		in.UserID, in.ActorID, in.Type, in.Message, in.PostID, in.CommentID,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r *Repository) ByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, selectColumns+` WHERE n.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

func (r *Repository) ForUser(ctx context.Context, userID int64, limit, offset int) ([]Notification, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE n.user_id = $1 ORDER BY n.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, total, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, id, userID int64) (*Notification, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return r.ByID(ctx, id)
}

func (r *Repository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1`, userID,
	)
	return err
}

func (r *Repository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID,
	).Scan(&count)
	return count, err
}
