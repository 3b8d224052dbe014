package chat

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestMarkConversationRead(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE conversation_participants SET last_read_at = CURRENT_TIMESTAMP`)).
		WithArgs(int64(42), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The status guard excludes the reader's own messages and rows already
	// read, so the transition never regresses.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET status = 'read', updated_at = CURRENT_TIMESTAMP`)).
		WithArgs(int64(42), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.MarkConversationRead(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkConversationReadRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE conversation_participants SET last_read_at = CURRENT_TIMESTAMP`)).
		WithArgs(int64(42), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE messages SET status = 'read'`)).
		WithArgs(int64(42), int64(2)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.MarkConversationRead(context.Background(), 42, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark messages read")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsParticipant(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(int64(42), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsParticipant(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsParticipantFalseForOutsider(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(int64(42), int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.IsParticipant(context.Background(), 42, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConversationParticipants(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM conversation_participants WHERE conversation_id = $1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1).AddRow(2).AddRow(3))

	ids, err := repo.ConversationParticipants(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestCreateMessageTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages`)).
		WithArgs(int64(42), int64(1), "hello", "text").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE conversations SET updated_at = CURRENT_TIMESTAMP`)).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT m\.id, m\.conversation_id`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "sender_id", "content", "type", "status",
			"created_at", "updated_at", "username", "email", "name",
		}).AddRow(10, 42, 1, "hello", "text", "sent", now, now, "alice", "alice@example.com", "Alice"))
	mock.ExpectCommit()

	msg, err := repo.CreateMessage(context.Background(), 42, 1, "hello", "text")
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.ID)
	assert.Equal(t, "sent", msg.Status)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, int64(1), msg.Sender.ID)
	assert.Equal(t, "alice", msg.Sender.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationMessagesWithCursor(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	before := now.Add(-time.Hour)

	mock.ExpectQuery(`SELECT m\.id, m\.conversation_id`).
		WithArgs(int64(42), before, 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "sender_id", "content", "type", "status",
			"created_at", "updated_at", "username", "email", "name",
		}).
			AddRow(8, 42, 1, "first", "text", "read", now.Add(-3*time.Hour), now, "alice", "a@example.com", "Alice").
			AddRow(9, 42, 2, "second", "text", "read", now.Add(-2*time.Hour), now, "bob", "b@example.com", "Bob"))

	messages, err := repo.ConversationMessages(context.Background(), 42, 50, &before)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, int64(8), messages[0].ID)
	assert.Equal(t, "bob", messages[1].Sender.Username)
}

func TestRecipientsExcludesSender(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT u\.id, u\.username`).
		WithArgs(int64(42), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "name"}).
			AddRow(2, "bob", "b@example.com", "Bob"))

	recipients, err := repo.Recipients(context.Background(), 42, 1)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, int64(2), recipients[0].ID)
}
