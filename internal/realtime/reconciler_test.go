package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReadStore struct {
	participant    bool
	participantErr error
	markErr        error
	marked         [][2]int64
}

func (s *fakeReadStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	if s.participantErr != nil {
		return false, s.participantErr
	}
	return s.participant, nil
}

func (s *fakeReadStore) MarkConversationRead(ctx context.Context, conversationID, userID int64) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, [2]int64{conversationID, userID})
	return nil
}

func newTestReconciler(store *fakeReadStore, source *fakeSource) (*Reconciler, *Presence) {
	presence := NewPresence()
	rooms := NewRooms(source, time.Second)
	dispatcher := NewDispatcher(discardLogger(), presence, rooms, nil)
	return NewReconciler(discardLogger(), store, dispatcher), presence
}

func TestReadConversationPersistsAndBroadcasts(t *testing.T) {
	store := &fakeReadStore{participant: true}
	source := &fakeSource{participants: []int64{1, 2}}
	r, presence := newTestReconciler(store, source)

	reader := newFakeConn("reader")
	peer := newFakeConn("peer")
	presence.Register(2, reader)
	presence.Register(1, peer)

	err := r.ReadConversation(context.Background(), 42, 2)
	require.NoError(t, err)

	require.Len(t, store.marked, 1)
	assert.Equal(t, [2]int64{42, 2}, store.marked[0])

	require.Equal(t, 1, peer.count(EventMessagesRead, t))
	var env Envelope
	require.NoError(t, json.Unmarshal(peer.frames[0], &env))
	var payload ConversationReadPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, int64(42), payload.ConversationID)
	assert.Equal(t, int64(2), payload.ReadBy)
}

func TestReadConversationRejectsNonParticipant(t *testing.T) {
	store := &fakeReadStore{participant: false}
	source := &fakeSource{participants: []int64{1, 3}}
	r, presence := newTestReconciler(store, source)

	peer := newFakeConn("peer")
	presence.Register(1, peer)

	err := r.ReadConversation(context.Background(), 42, 2)
	require.ErrorIs(t, err, ErrNotAParticipant)

	// Rejection leaves no trace: nothing persisted, nothing broadcast.
	assert.Empty(t, store.marked)
	assert.Empty(t, peer.frames)
}

func TestReadConversationParticipantCheckFailure(t *testing.T) {
	store := &fakeReadStore{participantErr: errors.New("db down")}
	r, _ := newTestReconciler(store, &fakeSource{})

	err := r.ReadConversation(context.Background(), 42, 2)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Empty(t, store.marked)
}

func TestReadConversationPersistFailureSkipsBroadcast(t *testing.T) {
	store := &fakeReadStore{participant: true, markErr: errors.New("deadlock")}
	source := &fakeSource{participants: []int64{1, 2}}
	r, presence := newTestReconciler(store, source)

	peer := newFakeConn("peer")
	presence.Register(1, peer)

	err := r.ReadConversation(context.Background(), 42, 2)
	require.Error(t, err)
	assert.Empty(t, peer.frames)
}

func TestReadConversationIsIdempotent(t *testing.T) {
	store := &fakeReadStore{participant: true}
	source := &fakeSource{participants: []int64{1, 2}}
	r, _ := newTestReconciler(store, source)

	ctx := context.Background()
	require.NoError(t, r.ReadConversation(ctx, 42, 2))
	require.NoError(t, r.ReadConversation(ctx, 42, 2))
	assert.Len(t, store.marked, 2)
}

func TestBroadcastMessageReadReachesRoom(t *testing.T) {
	source := &fakeSource{participants: []int64{1, 2}}
	r, presence := newTestReconciler(&fakeReadStore{}, source)

	sender := newFakeConn("sender")
	reader := newFakeConn("reader")
	presence.Register(1, sender)
	presence.Register(2, reader)

	r.BroadcastMessageRead(context.Background(), 10, 42, 2)

	require.Equal(t, 1, sender.count(EventMessageRead, t))
	var env Envelope
	require.NoError(t, json.Unmarshal(sender.frames[0], &env))
	var payload ReadPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, int64(10), payload.MessageID)
	assert.Equal(t, int64(2), payload.ReadBy)
}

func TestBroadcastMessageReadSwallowsLookupFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("db down")}
	r, _ := newTestReconciler(&fakeReadStore{}, source)

	assert.NotPanics(t, func() {
		r.BroadcastMessageRead(context.Background(), 10, 42, 2)
	})
}
