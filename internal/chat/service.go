package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"go-social/internal/notification"
	"go-social/internal/realtime"
)

// Store is the persistence surface the service needs; *Repository satisfies it.
type Store interface {
	CreateConversation(ctx context.Context, convType string, participantIDs []int64) (*Conversation, error)
	CreateMessage(ctx context.Context, conversationID, senderID int64, content, msgType string) (*Message, error)
	ConversationMessages(ctx context.Context, conversationID int64, limit int, before *time.Time) ([]Message, error)
	UserConversations(ctx context.Context, userID int64, limit, offset int) ([]Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	Recipients(ctx context.Context, conversationID, excludeUserID int64) ([]UserSummary, error)
}

// Notifier persists message notifications; *notification.Service satisfies it.
type Notifier interface {
	Notify(ctx context.Context, in notification.CreateInput) (*notification.Notification, error)
}

// ReadReconciler performs the mark-read transition and re-broadcast as one
// logical unit; *realtime.Reconciler satisfies it.
type ReadReconciler interface {
	ReadConversation(ctx context.Context, conversationID, userID int64) error
}

type Service struct {
	store      Store
	notifier   Notifier
	reconciler ReadReconciler
	log        *slog.Logger
}

func NewService(log *slog.Logger, store Store, notifier Notifier, reconciler ReadReconciler) *Service {
	return &Service{store: store, notifier: notifier, reconciler: reconciler, log: log}
}

// CreateConversation starts a direct or group conversation. The creator is
// always a participant; duplicate IDs collapse to one membership row.
func (s *Service) CreateConversation(ctx context.Context, userID int64, req *CreateConversationRequest) (*Conversation, error) {
	participantIDs := lo.Uniq(append(req.ParticipantIDs, userID))
	return s.store.CreateConversation(ctx, req.Type, participantIDs)
}

func (s *Service) Conversations(ctx context.Context, userID int64, limit, offset int) ([]Conversation, error) {
	return s.store.UserConversations(ctx, userID, limit, offset)
}

// Messages returns conversation history for a participant; non-members get
// ErrNotAParticipant and no rows.
func (s *Service) Messages(ctx context.Context, conversationID, userID int64, limit int, before *time.Time) ([]Message, error) {
	ok, err := s.store.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, realtime.ErrNotAParticipant
	}
	return s.store.ConversationMessages(ctx, conversationID, limit, before)
}

// SendMessage persists a message from a verified participant and notifies
// the other members. Realtime fan-out of the persisted message is the
// dispatcher's job, driven over the socket; this path only writes.
func (s *Service) SendMessage(ctx context.Context, userID int64, req *CreateMessageRequest) (*Message, error) {
	ok, err := s.store.IsParticipant(ctx, req.ConversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, realtime.ErrNotAParticipant
	}

	msgType := req.Type
	if msgType == "" {
		msgType = "text"
	}

	msg, err := s.store.CreateMessage(ctx, req.ConversationID, userID, req.Content, msgType)
	if err != nil {
		return nil, err
	}

	recipients, err := s.store.Recipients(ctx, req.ConversationID, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "recipients lookup failed, notifications skipped",
			"conversation_id", req.ConversationID, "error", err)
		return msg, nil
	}

	preview := msg.Content
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	for _, recipient := range recipients {
		_, err := s.notifier.Notify(ctx, notification.CreateInput{
			UserID:  recipient.ID,
			ActorID: userID,
			Type:    notification.TypeMessage,
			Message: fmt.Sprintf("%s sent you a message: %s", msg.Sender.Name, preview),
		})
		if err != nil {
			s.log.ErrorContext(ctx, "message notification failed",
				"recipient_id", recipient.ID, "message_id", msg.ID, "error", err)
		}
	}

	return msg, nil
}

// MarkRead delegates to the reconciler: one logical unit covering the
// persisted catch-up read and the room broadcast.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID int64) error {
	return s.reconciler.ReadConversation(ctx, conversationID, userID)
}
