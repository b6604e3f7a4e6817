package shelf

import (
	"context"

	"github.com/google/uuid"

	"github.com/librovision/librovision/model"
	"github.com/librovision/librovision/querycache"
)

// LikeReview optimistically bumps the review's like counter and flips the
// current-user flag, then records the like remotely. The prediction is exact
// for the viewing user, so the optimistic value stays on success.
func (s *Service) LikeReview(ctx context.Context, reviewID, bookID string) error {
	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "like_review",
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(reviewQuery(reviewID)),
			Apply: applyTo(func(r model.Review, present bool) (model.Review, bool, error) {
				if !present {
					return r, false, nil
				}
				if r.CurrentUserHasLiked {
					return r, true, nil
				}
				r.LikeCount++
				r.CurrentUserHasLiked = true
				return r, true, nil
			}),
		}},
		Write: querycache.WriteOp{
			Resource: querycache.Resource{Collection: "review_likes"},
			Action:   querycache.ActionInsert,
			Payload:  map[string]string{"review_id": reviewID, "user_id": s.userID},
		},
		Settle: querycache.SettleKeepOptimistic,
	})
	return err
}

// UnlikeReview reverses LikeReview.
func (s *Service) UnlikeReview(ctx context.Context, reviewID, bookID string) error {
	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "unlike_review",
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(reviewQuery(reviewID)),
			Apply: applyTo(func(r model.Review, present bool) (model.Review, bool, error) {
				if !present {
					return r, false, nil
				}
				if !r.CurrentUserHasLiked {
					return r, true, nil
				}
				if r.LikeCount > 0 {
					r.LikeCount--
				}
				r.CurrentUserHasLiked = false
				return r, true, nil
			}),
		}},
		Write: querycache.WriteOp{
			Resource: querycache.Resource{
				Collection: "review_likes",
				Filters:    map[string]string{"review_id": reviewID, "user_id": s.userID},
			},
			Action: querycache.ActionDelete,
		},
		Settle: querycache.SettleKeepOptimistic,
	})
	return err
}

// FollowUser optimistically bumps the target's follower counter and records
// the follow remotely.
func (s *Service) FollowUser(ctx context.Context, targetID string) error {
	return s.setFollow(ctx, targetID, true)
}

// UnfollowUser reverses FollowUser.
func (s *Service) UnfollowUser(ctx context.Context, targetID string) error {
	return s.setFollow(ctx, targetID, false)
}

func (s *Service) setFollow(ctx context.Context, targetID string, follow bool) error {
	name := "unfollow_user"
	write := querycache.WriteOp{
		Resource: querycache.Resource{
			Collection: "follows",
			Filters:    map[string]string{"follower_id": s.userID, "followee_id": targetID},
		},
		Action: querycache.ActionDelete,
	}
	if follow {
		name = "follow_user"
		write = querycache.WriteOp{
			Resource: querycache.Resource{Collection: "follows"},
			Action:   querycache.ActionInsert,
			Payload:  map[string]string{"follower_id": s.userID, "followee_id": targetID},
		}
	}

	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: name,
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(profileQuery(targetID)),
			Apply: applyTo(func(p model.UserProfile, present bool) (model.UserProfile, bool, error) {
				if !present {
					return p, false, nil
				}
				if p.CurrentUserFollows == follow {
					return p, true, nil
				}
				if follow {
					p.FollowerCount++
				} else if p.FollowerCount > 0 {
					p.FollowerCount--
				}
				p.CurrentUserFollows = follow
				return p, true, nil
			}),
		}},
		Write:  write,
		Settle: querycache.SettleKeepOptimistic,
	})
	return err
}

// RateBook records the user's rating. The interaction stays optimistic; the
// book's aggregate rating is server-computed, so its key is invalidated for
// refetch instead of predicted.
func (s *Service) RateBook(ctx context.Context, bookID string, rating int) error {
	now := s.now()
	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "rate_book",
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(interactionQuery(s.userID, bookID)),
			Apply: applyTo(func(i model.UserBookInteraction, present bool) (model.UserBookInteraction, bool, error) {
				if !present {
					i = model.UserBookInteraction{UserID: s.userID, BookID: bookID, CreatedAt: now}
				}
				i.Rating = rating
				i.UpdatedAt = now
				return i, true, nil
			}),
		}},
		Write: querycache.WriteOp{
			Resource: querycache.Resource{Collection: "user_book_interactions"},
			Action:   querycache.ActionUpsert,
			Payload: map[string]any{
				"user_id": s.userID,
				"book_id": bookID,
				"rating":  rating,
			},
			OnConflict: "user_id,book_id",
		},
		Settle:     querycache.SettleInvalidate,
		Invalidate: []string{s.client.Key(bookQuery(bookID))},
	})
	return err
}

// CreateReview publishes a review under a client-generated id so it can be
// shown immediately. Server-side triggers stamp timestamps and counters, so
// the review fan-out is invalidated once the write lands.
func (s *Service) CreateReview(ctx context.Context, bookID, content string, rating int) (model.Review, error) {
	now := s.now()
	review := model.Review{
		ID:        uuid.NewString(),
		BookID:    bookID,
		UserID:    s.userID,
		Content:   content,
		Rating:    rating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "create_review",
		Updates: []querycache.KeyUpdate{
			{
				Key: s.client.Key(reviewQuery(review.ID)),
				Apply: applyTo(func(_ model.Review, _ bool) (model.Review, bool, error) {
					return review, true, nil
				}),
			},
			{
				Key: s.client.Key(interactionQuery(s.userID, bookID)),
				Apply: applyTo(func(i model.UserBookInteraction, present bool) (model.UserBookInteraction, bool, error) {
					if !present {
						i = model.UserBookInteraction{UserID: s.userID, BookID: bookID, CreatedAt: now}
					}
					i.ReviewID = review.ID
					i.Rating = rating
					i.UpdatedAt = now
					return i, true, nil
				}),
			},
		},
		Write: querycache.WriteOp{
			Resource: querycache.Resource{Collection: "reviews"},
			Action:   querycache.ActionInsert,
			Payload:  review,
		},
		Settle: querycache.SettleInvalidate,
		// The review itself is predicted exactly (the id is ours), so only
		// the lists it appears in are dropped for refetch.
		Invalidate: []string{
			s.client.Key(bookReviewsQuery(bookID)),
			s.client.Key(activityFeedQuery()),
		},
	})
	if err != nil {
		return model.Review{}, err
	}
	return review, nil
}

// DeleteReview removes a review and detaches it from the user's interaction
// record in one optimistic update.
func (s *Service) DeleteReview(ctx context.Context, reviewID, bookID string) error {
	now := s.now()
	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "delete_review",
		Updates: []querycache.KeyUpdate{
			{Key: s.client.Key(reviewQuery(reviewID)), Apply: dropKey},
			{Key: s.client.Key(bookReviewsQuery(bookID)), Apply: dropKey},
			{
				Key: s.client.Key(interactionQuery(s.userID, bookID)),
				Apply: applyTo(func(i model.UserBookInteraction, present bool) (model.UserBookInteraction, bool, error) {
					if !present {
						return i, false, nil
					}
					i.ReviewID = ""
					i.UpdatedAt = now
					return i, true, nil
				}),
			},
		},
		Write: querycache.WriteOp{
			Resource: querycache.Resource{Collection: "reviews", ID: reviewID},
			Action:   querycache.ActionDelete,
		},
		Settle:     querycache.SettleInvalidate,
		Invalidate: s.reviewFanout(reviewID, bookID),
	})
	return err
}

// SetReadingStatus sets the user's reading status for a book, enforcing the
// mutual-exclusivity rules in a single optimistic update: currently-reading
// clears the watchlist flag atomically, and clearing a read status cascades
// to removal of the associated review. The server cascades authoritatively;
// the review fan-out is invalidated so reads converge on its result.
func (s *Service) SetReadingStatus(ctx context.Context, bookID string, status model.ReadingStatus) error {
	prior, err := s.Interaction(ctx, bookID)
	if err != nil {
		return err
	}

	clearingRead := prior.Status == model.StatusRead && status == model.StatusNone
	now := s.now()

	updates := []querycache.KeyUpdate{{
		Key: s.client.Key(interactionQuery(s.userID, bookID)),
		Apply: applyTo(func(i model.UserBookInteraction, present bool) (model.UserBookInteraction, bool, error) {
			if !present {
				i = model.UserBookInteraction{UserID: s.userID, BookID: bookID, CreatedAt: now}
			}
			i.Status = status
			if status == model.StatusCurrentlyReading {
				i.OnWatchlist = false
			}
			if clearingRead {
				i.ReviewID = ""
			}
			i.UpdatedAt = now
			return i, true, nil
		}),
	}}

	settle := querycache.SettleKeepOptimistic
	var invalidate []string
	if clearingRead && prior.ReviewID != "" {
		updates = append(updates, querycache.KeyUpdate{
			Key:   s.client.Key(reviewQuery(prior.ReviewID)),
			Apply: dropKey,
		})
		settle = querycache.SettleInvalidate
		invalidate = s.reviewFanout(prior.ReviewID, bookID)
	}

	payload := map[string]any{
		"user_id": s.userID,
		"book_id": bookID,
		"status":  string(status),
	}
	if status == model.StatusCurrentlyReading {
		payload["on_watchlist"] = false
	}

	_, err = s.client.Mutate(ctx, querycache.Mutation{
		Name:    "set_reading_status",
		Updates: updates,
		Write: querycache.WriteOp{
			Resource:   querycache.Resource{Collection: "user_book_interactions"},
			Action:     querycache.ActionUpsert,
			Payload:    payload,
			OnConflict: "user_id,book_id",
		},
		Settle:     settle,
		Invalidate: invalidate,
	})
	return err
}

// SetWatchlist flags or unflags a book on the user's watchlist. Flagging
// clears a currently-reading status in the same update; the two states are
// never simultaneously true.
func (s *Service) SetWatchlist(ctx context.Context, bookID string, on bool) error {
	now := s.now()
	payload := map[string]any{
		"user_id":      s.userID,
		"book_id":      bookID,
		"on_watchlist": on,
	}
	if on {
		payload["status"] = string(model.StatusNone)
	}

	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "set_watchlist",
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(interactionQuery(s.userID, bookID)),
			Apply: applyTo(func(i model.UserBookInteraction, present bool) (model.UserBookInteraction, bool, error) {
				if !present {
					i = model.UserBookInteraction{UserID: s.userID, BookID: bookID, CreatedAt: now}
				}
				i.OnWatchlist = on
				if on && i.Status == model.StatusCurrentlyReading {
					i.Status = model.StatusNone
				}
				i.UpdatedAt = now
				return i, true, nil
			}),
		}},
		Write: querycache.WriteOp{
			Resource:   querycache.Resource{Collection: "user_book_interactions"},
			Action:     querycache.ActionUpsert,
			Payload:    payload,
			OnConflict: "user_id,book_id",
		},
		Settle: querycache.SettleKeepOptimistic,
	})
	return err
}

// CreateList creates a shareable list under a client-generated id.
func (s *Service) CreateList(ctx context.Context, title, description string, public bool) (model.ListCollection, error) {
	now := s.now()
	lst := model.ListCollection{
		ID:          uuid.NewString(),
		OwnerID:     s.userID,
		Title:       title,
		Description: description,
		Public:      public,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "create_list",
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(listQuery(lst.ID)),
			Apply: applyTo(func(_ model.ListCollection, _ bool) (model.ListCollection, bool, error) {
				return lst, true, nil
			}),
		}},
		Write: querycache.WriteOp{
			Resource: querycache.Resource{Collection: "lists"},
			Action:   querycache.ActionInsert,
			Payload:  lst,
		},
		Settle:     querycache.SettleInvalidate,
		Invalidate: []string{s.client.Key(userListsQuery(s.userID))},
	})
	if err != nil {
		return model.ListCollection{}, err
	}
	return lst, nil
}

// AddToList appends a book to a list.
func (s *Service) AddToList(ctx context.Context, listID, bookID string) error {
	return s.updateListMembership(ctx, listID, bookID, true)
}

// RemoveFromList removes a book from a list.
func (s *Service) RemoveFromList(ctx context.Context, listID, bookID string) error {
	return s.updateListMembership(ctx, listID, bookID, false)
}

func (s *Service) updateListMembership(ctx context.Context, listID, bookID string, add bool) error {
	name := "remove_from_list"
	write := querycache.WriteOp{
		Resource: querycache.Resource{
			Collection: "list_books",
			Filters:    map[string]string{"list_id": listID, "book_id": bookID},
		},
		Action: querycache.ActionDelete,
	}
	if add {
		name = "add_to_list"
		write = querycache.WriteOp{
			Resource: querycache.Resource{Collection: "list_books"},
			Action:   querycache.ActionInsert,
			Payload:  map[string]string{"list_id": listID, "book_id": bookID},
		}
	}

	now := s.now()
	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: name,
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(listQuery(listID)),
			Apply: applyTo(func(l model.ListCollection, present bool) (model.ListCollection, bool, error) {
				if !present {
					return l, false, nil
				}
				ids := make([]string, 0, len(l.BookIDs)+1)
				for _, id := range l.BookIDs {
					if id != bookID {
						ids = append(ids, id)
					}
				}
				if add {
					ids = append(ids, bookID)
				}
				l.BookIDs = ids
				l.BookCount = len(ids)
				l.UpdatedAt = now
				return l, true, nil
			}),
		}},
		Write:  write,
		Settle: querycache.SettleKeepOptimistic,
	})
	return err
}

// MarkNotificationRead flips one notification to read in the cached feed and
// persists the flag.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := s.client.Mutate(ctx, querycache.Mutation{
		Name: "mark_notification_read",
		Updates: []querycache.KeyUpdate{{
			Key: s.client.Key(notificationsQuery(s.userID)),
			Apply: applyTo(func(items []model.Notification, present bool) ([]model.Notification, bool, error) {
				if !present {
					return items, false, nil
				}
				for i := range items {
					if items[i].ID == notificationID {
						items[i].Read = true
					}
				}
				return items, true, nil
			}),
		}},
		Write: querycache.WriteOp{
			Resource: querycache.Resource{Collection: "notifications", ID: notificationID},
			Action:   querycache.ActionUpdate,
			Payload:  map[string]bool{"read": true},
		},
		Settle: querycache.SettleKeepOptimistic,
	})
	return err
}
