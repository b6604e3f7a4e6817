// Package shelf is LibroVision's domain service: reading statuses, reviews,
// likes, follows, lists, feeds, and notifications, all expressed as cached
// queries and optimistic mutations against the remote store.
package shelf

import (
	"context"
	"encoding/json"
	"time"

	"github.com/librovision/librovision/model"
	"github.com/librovision/librovision/querycache"
)

// Service executes the social book-tracking operations on behalf of one
// authenticated user.
type Service struct {
	client *querycache.Client
	userID string
	now    func() time.Time
}

// NewService creates a Service bound to the given user.
func NewService(client *querycache.Client, userID string) *Service {
	return &Service{
		client: client,
		userID: userID,
		now:    time.Now,
	}
}

// UserID returns the bound user.
func (s *Service) UserID() string { return s.userID }

// GetBook fetches a book, served from cache inside its freshness window.
func (s *Service) GetBook(ctx context.Context, bookID string) (model.Book, error) {
	return querycache.Fetch[model.Book](ctx, s.client, bookQuery(bookID))
}

// GetReview fetches a single review.
func (s *Service) GetReview(ctx context.Context, reviewID string) (model.Review, error) {
	return querycache.Fetch[model.Review](ctx, s.client, reviewQuery(reviewID))
}

// GetProfile fetches a user profile.
func (s *Service) GetProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	return querycache.Fetch[model.UserProfile](ctx, s.client, profileQuery(userID))
}

// Interaction fetches the current user's interaction record for a book. A
// book the user has never touched yields a zero-valued record rather than an
// error.
func (s *Service) Interaction(ctx context.Context, bookID string) (model.UserBookInteraction, error) {
	inter, err := querycache.Fetch[model.UserBookInteraction](ctx, s.client, interactionQuery(s.userID, bookID))
	if querycache.IsNotFound(err) {
		return model.UserBookInteraction{UserID: s.userID, BookID: bookID}, nil
	}
	return inter, err
}

// BookReviews fetches one page of a book's reviews, returning the
// accumulated rows and whether more pages remain.
func (s *Service) BookReviews(ctx context.Context, bookID string, page, pageSize int) ([]model.Review, bool, error) {
	result, err := s.client.FetchPage(ctx, bookReviewsQuery(bookID), page, pageSize)
	if err != nil {
		return nil, false, err
	}
	reviews, err := querycache.DecodeItems[model.Review](result)
	return reviews, result.HasMore, err
}

// ActivityFeed fetches one page of the activity feed.
func (s *Service) ActivityFeed(ctx context.Context, page, pageSize int) ([]model.ActivityItem, bool, error) {
	result, err := s.client.FetchPage(ctx, activityFeedQuery(), page, pageSize)
	if err != nil {
		return nil, false, err
	}
	items, err := querycache.DecodeItems[model.ActivityItem](result)
	return items, result.HasMore, err
}

// Notifications fetches the current user's recent notifications.
func (s *Service) Notifications(ctx context.Context) ([]model.Notification, error) {
	return querycache.Fetch[[]model.Notification](ctx, s.client, notificationsQuery(s.userID))
}

// GetList fetches a single list.
func (s *Service) GetList(ctx context.Context, listID string) (model.ListCollection, error) {
	return querycache.Fetch[model.ListCollection](ctx, s.client, listQuery(listID))
}

// UserLists fetches the lists owned by the current user.
func (s *Service) UserLists(ctx context.Context) ([]model.ListCollection, error) {
	return querycache.Fetch[[]model.ListCollection](ctx, s.client, userListsQuery(s.userID))
}

// Logout drops the whole cache. The store is created at app start and
// cleared here so nothing from one session leaks into the next.
func (s *Service) Logout(ctx context.Context) {
	s.client.Store().Clear(ctx)
}

// applyTo adapts a typed predictor into the raw KeyUpdate.Apply shape.
// present=false hands the predictor a zero value; returning keep=false
// removes the cached key.
func applyTo[T any](fn func(v T, present bool) (T, bool, error)) func([]byte, bool) ([]byte, bool, error) {
	return func(current []byte, present bool) ([]byte, bool, error) {
		var v T
		if present {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, false, err
			}
		}
		next, keep, err := fn(v, present)
		if err != nil || !keep {
			return nil, keep, err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
}

// dropKey is the KeyUpdate.Apply that removes a cached value outright.
func dropKey(current []byte, present bool) ([]byte, bool, error) {
	return nil, false, nil
}
