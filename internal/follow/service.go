package follow

import (
	"context"
	"fmt"
	"log/slog"

	"go-social/internal/notification"
)

type Store interface {
	IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error)
	Follow(ctx context.Context, followerID, followingID int64) error
	Unfollow(ctx context.Context, followerID, followingID int64) error
	Followers(ctx context.Context, userID int64) ([]User, error)
	Following(ctx context.Context, userID int64) ([]User, error)
	Suggested(ctx context.Context, userID int64, limit int) ([]User, error)
}

type Notifier interface {
	Notify(ctx context.Context, in notification.CreateInput) (*notification.Notification, error)
}

type ActorSource interface {
	ActorName(ctx context.Context, userID int64) (string, error)
}

type Service struct {
	store    Store
	notifier Notifier
	actors   ActorSource
	log      *slog.Logger
}

func NewService(log *slog.Logger, store Store, notifier Notifier, actors ActorSource) *Service {
	return &Service{store: store, notifier: notifier, actors: actors, log: log}
}

// Toggle follows or unfollows and reports the resulting state. A fresh
// follow notifies the followed user; unfollowing is silent.
func (s *Service) Toggle(ctx context.Context, followerID, followingID int64) (bool, error) {
	following, err := s.store.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return false, err
	}

	if following {
		if err := s.store.Unfollow(ctx, followerID, followingID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.store.Follow(ctx, followerID, followingID); err != nil {
		return false, err
	}

	name, err := s.actors.ActorName(ctx, followerID)
	if err != nil {
		s.log.ErrorContext(ctx, "actor lookup failed, follow notification skipped",
			"follower_id", followerID, "error", err)
		return true, nil
	}
	_, err = s.notifier.Notify(ctx, notification.CreateInput{
		UserID:  followingID,
		ActorID: followerID,
		Type:    notification.TypeFollow,
		Message: fmt.Sprintf("%s started following you", name),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "follow notification failed",
			"follower_id", followerID, "following_id", followingID, "error", err)
	}
	return true, nil
}

func (s *Service) Followers(ctx context.Context, userID int64) ([]User, error) {
	return s.store.Followers(ctx, userID)
}

func (s *Service) Following(ctx context.Context, userID int64) ([]User, error) {
	return s.store.Following(ctx, userID)
}

func (s *Service) Suggested(ctx context.Context, userID int64, limit int) ([]User, error) {
	return s.store.Suggested(ctx, userID, limit)
}
