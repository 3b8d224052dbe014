package comment

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-social/internal/notification"
)

type fakeStore struct {
	authors  map[int64]int64
	comments []Comment
}

func (s *fakeStore) ByPost(ctx context.Context, postID int64) ([]Comment, error) {
	return s.comments, nil
}

func (s *fakeStore) PostAuthor(ctx context.Context, postID int64) (int64, error) {
	authorID, ok := s.authors[postID]
	if !ok {
		return 0, ErrPostNotFound
	}
	return authorID, nil
}

func (s *fakeStore) Create(ctx context.Context, userID, postID int64, content string) (*Comment, error) {
	c := Comment{ID: int64(len(s.comments) + 1), PostID: postID, UserID: userID, Content: content}
	s.comments = append(s.comments, c)
	return &c, nil
}

type fakeNotifier struct {
	sent []notification.CreateInput
}

func (n *fakeNotifier) Notify(ctx context.Context, in notification.CreateInput) (*notification.Notification, error) {
	n.sent = append(n.sent, in)
	return &notification.Notification{}, nil
}

type fakeActors struct{}

func (fakeActors) ActorName(ctx context.Context, userID int64) (string, error) {
	return "Alice", nil
}

func newTestService(authors map[int64]int64) (*Service, *fakeStore, *fakeNotifier) {
	store := &fakeStore{authors: authors}
	notifier := &fakeNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, store, notifier, fakeActors{}), store, notifier
}

func TestCreateNotifiesPostAuthor(t *testing.T) {
	svc, store, notifier := newTestService(map[int64]int64{5: 2})

	c, err := svc.Create(context.Background(), 1, &CreateCommentRequest{PostID: 5, Content: "nice"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.PostID)
	require.Len(t, store.comments, 1)

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, int64(2), sent.UserID)
	assert.Equal(t, notification.TypeComment, sent.Type)
	assert.Equal(t, "Alice commented on your post", sent.Message)
	require.NotNil(t, sent.PostID)
	assert.Equal(t, int64(5), *sent.PostID)
	require.NotNil(t, sent.CommentID)
	assert.Equal(t, c.ID, *sent.CommentID)
}

func TestCreateOwnPostStaysSilent(t *testing.T) {
	svc, _, notifier := newTestService(map[int64]int64{5: 1})

	_, err := svc.Create(context.Background(), 1, &CreateCommentRequest{PostID: 5, Content: "note to self"})
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestCreateUnknownPost(t *testing.T) {
	svc, store, _ := newTestService(map[int64]int64{})

	_, err := svc.Create(context.Background(), 1, &CreateCommentRequest{PostID: 99, Content: "hello"})
	require.ErrorIs(t, err, ErrPostNotFound)
	assert.Empty(t, store.comments)
}
