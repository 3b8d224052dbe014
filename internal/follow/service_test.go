package follow

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
	edges map[[2]int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{edges: make(map[[2]int64]bool)}
}

func (s *fakeStore) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	return s.edges[[2]int64{followerID, followingID}], nil
}

func (s *fakeStore) Follow(ctx context.Context, followerID, followingID int64) error {
	s.edges[[2]int64{followerID, followingID}] = true
	return nil
}

func (s *fakeStore) Unfollow(ctx context.Context, followerID, followingID int64) error {
	delete(s.edges, [2]int64{followerID, followingID})
	return nil
}

func (s *fakeStore) Followers(ctx context.Context, userID int64) ([]User, error) {
	return nil, nil
}

func (s *fakeStore) Following(ctx context.Context, userID int64) ([]User, error) {
	return nil, nil
}

func (s *fakeStore) Suggested(ctx context.Context, userID int64, limit int) ([]User, error) {
	return nil, nil
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

func TestToggleFollowsAndNotifies(t *testing.T) {
	svc, store, notifier := newTestService()

	following, err := svc.Toggle(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, following)
	assert.True(t, store.edges[[2]int64{1, 2}])

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, int64(2), sent.UserID)
	assert.Equal(t, int64(1), sent.ActorID)
	assert.Equal(t, notification.TypeFollow, sent.Type)
	assert.Equal(t, "Alice started following you", sent.Message)
}

func TestToggleUnfollowsSilently(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 1, 2)
	require.NoError(t, err)

	following, err := svc.Toggle(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, following)
	assert.False(t, store.edges[[2]int64{1, 2}])
	// Only the follow notified; the unfollow is silent.
	assert.Len(t, notifier.sent, 1)
}

func TestToggleIsDirectional(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 1, 2)
	require.NoError(t, err)

	following, err := svc.Toggle(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, following)
	assert.True(t, store.edges[[2]int64{1, 2}])
	assert.True(t, store.edges[[2]int64{2, 1}])
}
