package comment

import (
	"context"
	"fmt"
	"log/slog"

	"go-social/internal/notification"
)

type Store interface {
	ByPost(ctx context.Context, postID int64) ([]Comment, error)
	PostAuthor(ctx context.Context, postID int64) (int64, error)
	Create(ctx context.Context, userID, postID int64, content string) (*Comment, error)
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

func (s *Service) ByPost(ctx context.Context, postID int64) ([]Comment, error) {
	return s.store.ByPost(ctx, postID)
}

// Create verifies the post exists, stores the comment and notifies the post
// author unless they commented on their own post.
func (s *Service) Create(ctx context.Context, userID int64, req *CreateCommentRequest) (*Comment, error) {
	authorID, err := s.store.PostAuthor(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Create(ctx, userID, req.PostID, req.Content)
	if err != nil {
		return nil, err
	}

	if authorID != userID {
		name, err := s.actors.ActorName(ctx, userID)
		if err != nil {
			s.log.ErrorContext(ctx, "actor lookup failed, comment notification skipped",
				"post_id", req.PostID, "commenter_id", userID, "error", err)
			return c, nil
		}
		_, err = s.notifier.Notify(ctx, notification.CreateInput{
			UserID:    authorID,
			ActorID:   userID,
			Type:      notification.TypeComment,
			Message:   fmt.Sprintf("%s commented on your post", name),
			PostID:    &req.PostID,
			CommentID: &c.ID,
		})
		if err != nil {
			s.log.ErrorContext(ctx, "comment notification failed",
				"post_id", req.PostID, "comment_id", c.ID, "error", err)
		}
	}

	return c, nil
}
