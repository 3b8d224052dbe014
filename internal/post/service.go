package post

import (
	"context"
	"fmt"
	"log/slog"

	"go-social/internal/notification"
)

// Store is the persistence surface the service needs; *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, userID int64, content string) (*Post, error)
	ByID(ctx context.Context, postID, viewerID int64) (*Post, error)
	All(ctx context.Context, viewerID int64, limit, offset int) ([]Post, int64, error)
	ByUser(ctx context.Context, authorID, viewerID int64, limit, offset int) ([]Post, int64, error)
	LikedBy(ctx context.Context, userID, viewerID int64, limit, offset int) ([]Post, int64, error)
	HasLiked(ctx context.Context, postID, userID int64) (bool, error)
	AddLike(ctx context.Context, postID, userID int64) error
	RemoveLike(ctx context.Context, postID, userID int64) error
}

type Notifier interface {
	Notify(ctx context.Context, in notification.CreateInput) (*notification.Notification, error)
}

// ActorSource resolves the display name used in notification text.
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

func (s *Service) Create(ctx context.Context, userID int64, req *CreatePostRequest) (*Post, error) {
	return s.store.Create(ctx, userID, req.Content)
}

func (s *Service) Feed(ctx context.Context, viewerID int64, limit, offset int) (*Page, error) {
	posts, total, err := s.store.All(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return page(posts, total, limit, offset), nil
}

func (s *Service) ByID(ctx context.Context, postID, viewerID int64) (*Post, error) {
	return s.store.ByID(ctx, postID, viewerID)
}

func (s *Service) UserPosts(ctx context.Context, authorID, viewerID int64, limit, offset int) (*Page, error) {
	posts, total, err := s.store.ByUser(ctx, authorID, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return page(posts, total, limit, offset), nil
}

func (s *Service) UserLikes(ctx context.Context, userID, viewerID int64, limit, offset int) (*Page, error) {
	posts, total, err := s.store.LikedBy(ctx, userID, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return page(posts, total, limit, offset), nil
}

// ToggleLike flips the viewer's like on a post. A fresh like on someone
// else's post notifies the author; unliking never does.
func (s *Service) ToggleLike(ctx context.Context, postID, userID int64) (*Post, error) {
	p, err := s.store.ByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	liked, err := s.store.HasLiked(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if liked {
		if err := s.store.RemoveLike(ctx, postID, userID); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.AddLike(ctx, postID, userID); err != nil {
			return nil, err
		}
		if p.UserID != userID {
			s.notifyLike(ctx, p, userID)
		}
	}

	return s.store.ByID(ctx, postID, userID)
}

func (s *Service) notifyLike(ctx context.Context, p *Post, likerID int64) {
	name, err := s.actors.ActorName(ctx, likerID)
	if err != nil {
		s.log.ErrorContext(ctx, "actor lookup failed, like notification skipped",
			"post_id", p.ID, "liker_id", likerID, "error", err)
		return
	}
	_, err = s.notifier.Notify(ctx, notification.CreateInput{
		UserID:  p.UserID,
		ActorID: likerID,
		Type:    notification.TypeLike,
		Message: fmt.Sprintf("%s liked your post", name),
		PostID:  &p.ID,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "like notification failed",
			"post_id", p.ID, "liker_id", likerID, "error", err)
	}
}

func page(posts []Post, total int64, limit, offset int) *Page {
	if posts == nil {
		posts = []Post{}
	}
	return &Page{
		Posts:   posts,
		Total:   total,
		HasMore: int64(offset+len(posts)) < total,
		Page:    offset/limit + 1,
	}
}
