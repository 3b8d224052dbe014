package post

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
	posts map[int64]*Post
	likes map[[2]int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: make(map[int64]*Post), likes: make(map[[2]int64]bool)}
}

func (s *fakeStore) Create(ctx context.Context, userID int64, content string) (*Post, error) {
	p := &Post{ID: int64(len(s.posts) + 1), UserID: userID, Content: content}
	s.posts[p.ID] = p
	return p, nil
}

func (s *fakeStore) ByID(ctx context.Context, postID, viewerID int64) (*Post, error) {
	p, ok := s.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	view := *p
	view.Liked = s.likes[[2]int64{postID, viewerID}]
	for pair, liked := range s.likes {
		if pair[0] == postID && liked {
			view.LikesCount++
		}
	}
	return &view, nil
}

func (s *fakeStore) All(ctx context.Context, viewerID int64, limit, offset int) ([]Post, int64, error) {
	return nil, 0, nil
}

func (s *fakeStore) ByUser(ctx context.Context, authorID, viewerID int64, limit, offset int) ([]Post, int64, error) {
	return nil, 0, nil
}

func (s *fakeStore) LikedBy(ctx context.Context, userID, viewerID int64, limit, offset int) ([]Post, int64, error) {
	return nil, 0, nil
}

func (s *fakeStore) HasLiked(ctx context.Context, postID, userID int64) (bool, error) {
	return s.likes[[2]int64{postID, userID}], nil
}

func (s *fakeStore) AddLike(ctx context.Context, postID, userID int64) error {
	s.likes[[2]int64{postID, userID}] = true
	return nil
}

func (s *fakeStore) RemoveLike(ctx context.Context, postID, userID int64) error {
	delete(s.likes, [2]int64{postID, userID})
	return nil
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

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, store, notifier, fakeActors{}), store, notifier
}

func TestToggleLikeNotifiesAuthor(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	authored, err := store.Create(ctx, 2, "hello world")
	require.NoError(t, err)

	p, err := svc.ToggleLike(ctx, authored.ID, 1)
	require.NoError(t, err)
	assert.True(t, p.Liked)
	assert.Equal(t, int64(1), p.LikesCount)

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, int64(2), sent.UserID)
	assert.Equal(t, int64(1), sent.ActorID)
	assert.Equal(t, notification.TypeLike, sent.Type)
	assert.Equal(t, "Alice liked your post", sent.Message)
}

func TestToggleLikeOwnPostStaysSilent(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	authored, err := store.Create(ctx, 1, "my own post")
	require.NoError(t, err)

	p, err := svc.ToggleLike(ctx, authored.ID, 1)
	require.NoError(t, err)
	assert.True(t, p.Liked)
	assert.Empty(t, notifier.sent)
}

func TestToggleLikeUnlikesWithoutNotifying(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	authored, err := store.Create(ctx, 2, "hello")
	require.NoError(t, err)

	_, err = svc.ToggleLike(ctx, authored.ID, 1)
	require.NoError(t, err)

	p, err := svc.ToggleLike(ctx, authored.ID, 1)
	require.NoError(t, err)
	assert.False(t, p.Liked)
	assert.Zero(t, p.LikesCount)
	// Only the original like produced a notification.
	assert.Len(t, notifier.sent, 1)
}

func TestToggleLikeUnknownPost(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ToggleLike(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedPagination(t *testing.T) {
	svc, _, _ := newTestService()

	page, err := svc.Feed(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Posts)
	assert.False(t, page.HasMore)
	assert.Equal(t, 1, page.Page)
}
