package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-social/internal/notification"
	"go-social/internal/realtime"
)

type fakeStore struct {
	participants map[int64][]int64
	created      []Message
	conversation *Conversation
}

func newFakeStore() *fakeStore {
	return &fakeStore{participants: make(map[int64][]int64)}
}

func (s *fakeStore) CreateConversation(ctx context.Context, convType string, participantIDs []int64) (*Conversation, error) {
	conv := &Conversation{ID: 42, Type: convType}
	for _, id := range participantIDs {
		conv.Participants = append(conv.Participants, Participant{ConversationID: 42, UserID: id})
	}
	s.participants[42] = participantIDs
	s.conversation = conv
	return conv, nil
}

func (s *fakeStore) CreateMessage(ctx context.Context, conversationID, senderID int64, content, msgType string) (*Message, error) {
	msg := Message{
		ID:             int64(len(s.created) + 1),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
		Status:         "sent",
		Sender:         &UserSummary{ID: senderID, Name: "Alice"},
	}
	s.created = append(s.created, msg)
	return &msg, nil
}

func (s *fakeStore) ConversationMessages(ctx context.Context, conversationID int64, limit int, before *time.Time) ([]Message, error) {
	return s.created, nil
}

func (s *fakeStore) UserConversations(ctx context.Context, userID int64, limit, offset int) ([]Conversation, error) {
	return nil, nil
}

func (s *fakeStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	for _, id := range s.participants[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Recipients(ctx context.Context, conversationID, excludeUserID int64) ([]UserSummary, error) {
	var users []UserSummary
	for _, id := range s.participants[conversationID] {
		if id != excludeUserID {
			users = append(users, UserSummary{ID: id})
		}
	}
	return users, nil
}

type fakeNotifier struct {
	sent []notification.CreateInput
}

func (n *fakeNotifier) Notify(ctx context.Context, in notification.CreateInput) (*notification.Notification, error) {
	n.sent = append(n.sent, in)
	return &notification.Notification{}, nil
}

type fakeReconciler struct {
	reads [][2]int64
}

func (r *fakeReconciler) ReadConversation(ctx context.Context, conversationID, userID int64) error {
	r.reads = append(r.reads, [2]int64{conversationID, userID})
	return nil
}

func newTestService() (*Service, *fakeStore, *fakeNotifier, *fakeReconciler) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	reconciler := &fakeReconciler{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, store, notifier, reconciler), store, notifier, reconciler
}

func TestCreateConversationAlwaysIncludesCreator(t *testing.T) {
	svc, store, _, _ := newTestService()

	conv, err := svc.CreateConversation(context.Background(), 1, &CreateConversationRequest{
		Type:           "direct",
		ParticipantIDs: []int64{2},
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", conv.Type)
	assert.ElementsMatch(t, []int64{1, 2}, store.participants[42])
}

func TestCreateConversationDedupesParticipants(t *testing.T) {
	svc, store, _, _ := newTestService()

	_, err := svc.CreateConversation(context.Background(), 1, &CreateConversationRequest{
		Type:           "group",
		ParticipantIDs: []int64{2, 2, 1, 3},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, store.participants[42])
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	svc, store, notifier, _ := newTestService()
	store.participants[42] = []int64{1, 2}

	_, err := svc.SendMessage(context.Background(), 99, &CreateMessageRequest{
		ConversationID: 42,
		Content:        "hello",
	})
	require.ErrorIs(t, err, realtime.ErrNotAParticipant)
	assert.Empty(t, store.created)
	assert.Empty(t, notifier.sent)
}

func TestSendMessageDefaultsToText(t *testing.T) {
	svc, store, _, _ := newTestService()
	store.participants[42] = []int64{1, 2}

	msg, err := svc.SendMessage(context.Background(), 1, &CreateMessageRequest{
		ConversationID: 42,
		Content:        "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "sent", msg.Status)
	require.Len(t, store.created, 1)
}

func TestSendMessageNotifiesRecipients(t *testing.T) {
	svc, store, notifier, _ := newTestService()
	store.participants[42] = []int64{1, 2, 3}

	_, err := svc.SendMessage(context.Background(), 1, &CreateMessageRequest{
		ConversationID: 42,
		Content:        "hello",
	})
	require.NoError(t, err)

	require.Len(t, notifier.sent, 2)
	assert.ElementsMatch(t, []int64{2, 3},
		[]int64{notifier.sent[0].UserID, notifier.sent[1].UserID})
	for _, sent := range notifier.sent {
		assert.Equal(t, notification.TypeMessage, sent.Type)
		assert.Contains(t, sent.Message, "Alice sent you a message")
	}
}

func TestSendMessageTruncatesPreview(t *testing.T) {
	svc, store, notifier, _ := newTestService()
	store.participants[42] = []int64{1, 2}

	long := strings.Repeat("x", 120)
	_, err := svc.SendMessage(context.Background(), 1, &CreateMessageRequest{
		ConversationID: 42,
		Content:        long,
	})
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Message, strings.Repeat("x", 50)+"...")
	assert.NotContains(t, notifier.sent[0].Message, strings.Repeat("x", 51))
}

func TestMessagesRejectsNonParticipant(t *testing.T) {
	svc, store, _, _ := newTestService()
	store.participants[42] = []int64{1, 2}

	_, err := svc.Messages(context.Background(), 42, 99, 50, nil)
	assert.ErrorIs(t, err, realtime.ErrNotAParticipant)
}

func TestMarkReadDelegatesToReconciler(t *testing.T) {
	svc, _, _, reconciler := newTestService()

	err := svc.MarkRead(context.Background(), 42, 2)
	require.NoError(t, err)
	require.Len(t, reconciler.reads, 1)
	assert.Equal(t, [2]int64{42, 2}, reconciler.reads[0])
}
