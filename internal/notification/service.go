package notification

import (
	"context"
	"log/slog"

	"go-social/internal/realtime"
)

// Store is the persistence surface the service needs; *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, in CreateInput) (*Notification, error)
	ForUser(ctx context.Context, userID int64, limit, offset int) ([]Notification, int64, error)
	MarkRead(ctx context.Context, id, userID int64) (*Notification, error)
	MarkAllRead(ctx context.Context, userID int64) error
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

// RealtimePublisher pushes an event to a user's live connections. Implemented
// by the realtime dispatcher; offline recipients are skipped silently.
type RealtimePublisher interface {
	EmitToUser(userID int64, event string, data any)
}

type Service struct {
	store     Store
	publisher RealtimePublisher // optional
	log       *slog.Logger
}

func NewService(log *slog.Logger, store Store, publisher RealtimePublisher) *Service {
	return &Service{store: store, publisher: publisher, log: log}
}

// Notify persists the notification and pushes it to the recipient's live
// connections. The push is best-effort: a recipient without open connections
// sees the notification on their next list fetch.
func (s *Service) Notify(ctx context.Context, in CreateInput) (*Notification, error) {
	n, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.EmitToUser(in.UserID, realtime.EventNotification, n)
	}
	return n, nil
}

func (s *Service) ForUser(ctx context.Context, userID int64, limit, offset int) (*ListResponse, error) {
	notifications, total, err := s.store.ForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListResponse{
		Notifications: notifications,
		Total:         total,
		HasMore:       int64(offset+len(notifications)) < total,
		Page:          offset/limit + 1,
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, id, userID int64) (*Notification, error) {
	return s.store.MarkRead(ctx, id, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}
