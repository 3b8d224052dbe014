package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateConversation inserts the conversation and its participant rows in a
// single transaction and returns the conversation with participant details.
func (r *Repository) CreateConversation(ctx context.Context, convType string, participantIDs []int64) (*Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	conv := &Conversation{Type: convType}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO conversations (type) VALUES ($1) RETURNING id, created_at, updated_at`,
		convType,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, userID := range participantIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`,
			conv.ID, userID,
		); err != nil {
			return nil, err
		}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT cp.user_id, cp.last_read_at, cp.created_at, u.username, u.email, u.name
		FROM conversation_participants cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.conversation_id = $1`,
		conv.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p := Participant{ConversationID: conv.ID, User: &UserSummary{}}
		if err := rows.Scan(&p.UserID, &p.LastReadAt, &p.CreatedAt,
			&p.User.Username, &p.User.Email, &p.User.Name); err != nil {
			return nil, err
		}
		p.User.ID = p.UserID
		conv.Participants = append(conv.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateMessage persists a message, bumps the conversation's updated_at and
// returns the row joined with sender details.
func (r *Repository) CreateMessage(ctx context.Context, conversationID, senderID int64, content, msgType string) (*Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var messageID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content, type) VALUES ($1, $2, $3, $4) RETURNING id`,
		conversationID, senderID, content, msgType,
	).Scan(&messageID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		conversationID,
	); err != nil {
		return nil, err
	}

	msg := &Message{Sender: &UserSummary{}}
	err = tx.QueryRowContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.type, m.status,
		       m.created_at, m.updated_at, u.username, u.email, u.name
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`,
		messageID,
	).Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.Type,
		&msg.Status, &msg.CreatedAt, &msg.UpdatedAt,
		&msg.Sender.Username, &msg.Sender.Email, &msg.Sender.Name)
	if err != nil {
		return nil, err
	}
	msg.Sender.ID = msg.SenderID

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ConversationMessages pages through history, oldest first, optionally
// bounded by a before-timestamp cursor.
func (r *Repository) ConversationMessages(ctx context.Context, conversationID int64, limit int, before *time.Time) ([]Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.type, m.status,
		       m.created_at, m.updated_at, u.username, u.email, u.name
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id = $1`
	args := []any{conversationID}
	if before != nil {
		query += ` AND m.created_at < $2 ORDER BY m.created_at ASC LIMIT $3`
		args = append(args, *before, limit)
	} else {
		query += ` ORDER BY m.created_at ASC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg := Message{Sender: &UserSummary{}}
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content,
			&msg.Type, &msg.Status, &msg.CreatedAt, &msg.UpdatedAt,
			&msg.Sender.Username, &msg.Sender.Email, &msg.Sender.Name); err != nil {
			return nil, err
		}
		msg.Sender.ID = msg.SenderID
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// UserConversations lists the user's conversations ordered by latest
// activity, each carrying its participant set and last message.
func (r *Repository) UserConversations(ctx context.Context, userID int64, limit, offset int) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.type, c.created_at, c.updated_at,
		       cp.user_id, cp.last_read_at, cp.created_at,
		       u.username, u.email, u.name,
		       m.id, m.sender_id, m.content, m.type, m.status, m.created_at,
		       sender.username, sender.email, sender.name
		FROM conversations c
		JOIN conversation_participants cp ON c.id = cp.conversation_id
		JOIN users u ON cp.user_id = u.id
		LEFT JOIN LATERAL (
			SELECT m1.id, m1.sender_id, m1.content, m1.type, m1.status, m1.created_at
			FROM messages m1
			WHERE m1.conversation_id = c.id
			ORDER BY m1.created_at DESC
			LIMIT 1
		) m ON true
		LEFT JOIN users sender ON m.sender_id = sender.id
		WHERE c.id IN (
			SELECT conversation_id FROM conversation_participants WHERE user_id = $1
		)
		ORDER BY m.created_at DESC NULLS LAST
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Rows arrive one per (conversation, participant); group them while
	// keeping the activity ordering of first appearance.
	byID := make(map[int64]*Conversation)
	var order []int64

	for rows.Next() {
		var (
			conv Conversation
			p    = Participant{User: &UserSummary{}}

			lastID        sql.NullInt64
			lastSenderID  sql.NullInt64
			lastContent   sql.NullString
			lastType      sql.NullString
			lastStatus    sql.NullString
			lastCreatedAt sql.NullTime
			senderUser    sql.NullString
			senderEmail   sql.NullString
			senderName    sql.NullString
		)

		if err := rows.Scan(&conv.ID, &conv.Type, &conv.CreatedAt, &conv.UpdatedAt,
			&p.UserID, &p.LastReadAt, &p.CreatedAt,
			&p.User.Username, &p.User.Email, &p.User.Name,
			&lastID, &lastSenderID, &lastContent, &lastType, &lastStatus, &lastCreatedAt,
			&senderUser, &senderEmail, &senderName); err != nil {
			return nil, err
		}

		existing, ok := byID[conv.ID]
		if !ok {
			if lastID.Valid {
				conv.LastMessage = &Message{
					ID:             lastID.Int64,
					ConversationID: conv.ID,
					SenderID:       lastSenderID.Int64,
					Content:        lastContent.String,
					Type:           lastType.String,
					Status:         lastStatus.String,
					CreatedAt:      lastCreatedAt.Time,
					UpdatedAt:      lastCreatedAt.Time,
					Sender: &UserSummary{
						ID:       lastSenderID.Int64,
						Username: senderUser.String,
						Email:    senderEmail.String,
						Name:     senderName.String,
					},
				}
			}
			existing = &conv
			byID[conv.ID] = existing
			order = append(order, conv.ID)
		}

		p.ConversationID = existing.ID
		p.User.ID = p.UserID
		existing.Participants = append(existing.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conversations := make([]Conversation, 0, len(order))
	for _, id := range order {
		conversations = append(conversations, *byID[id])
	}
	return conversations, nil
}

// ConversationParticipants returns the authoritative member IDs. This is the
// membership lookup the realtime dispatcher depends on.
func (r *Repository) ConversationParticipants(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM conversation_participants WHERE conversation_id = $1`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2
		)`,
		conversationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Recipients returns every participant except excludeUserID with the details
// needed for notification text.
func (r *Repository) Recipients(ctx context.Context, conversationID, excludeUserID int64) ([]UserSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.name
		FROM conversation_participants cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.conversation_id = $1 AND cp.user_id != $2`,
		conversationID, excludeUserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// MarkConversationRead performs the catch-up-to-now read transition: the
// reader's last-read marker moves to the current time and every message from
// other senders that is not already read becomes read. The status guard makes
// the operation idempotent and keeps transitions monotonic; a read row is
// never written back to sent or delivered.
func (r *Repository) MarkConversationRead(ctx context.Context, conversationID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversation_participants SET last_read_at = CURRENT_TIMESTAMP
		 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	); err != nil {
		return fmt.Errorf("update last read marker: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET status = 'read', updated_at = CURRENT_TIMESTAMP
		 WHERE conversation_id = $1 AND sender_id != $2 AND status != 'read'`,
		conversationID, userID,
	); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	return tx.Commit()
}
