package shelf

import "github.com/librovision/librovision/querycache"

// Query constructors. Mutations and reads build the same queries, so a key
// is always derived from one canonical descriptor.

func bookQuery(bookID string) querycache.Query {
	return querycache.Query{
		Type:     "book",
		Resource: querycache.Resource{Collection: "books", ID: bookID, Single: true},
	}
}

func reviewQuery(reviewID string) querycache.Query {
	return querycache.Query{
		Type:     "review",
		Resource: querycache.Resource{Collection: "reviews", ID: reviewID, Single: true},
	}
}

func bookReviewsQuery(bookID string) querycache.Query {
	return querycache.Query{
		Type: "book_reviews",
		Resource: querycache.Resource{
			Collection: "reviews",
			Filters:    map[string]string{"book_id": bookID},
			OrderBy:    "created_at",
			Descending: true,
		},
	}
}

func activityFeedQuery() querycache.Query {
	return querycache.Query{
		Type: "activity_feed",
		Resource: querycache.Resource{
			Collection: "activity",
			OrderBy:    "created_at",
			Descending: true,
		},
	}
}

func profileQuery(userID string) querycache.Query {
	return querycache.Query{
		Type:     "user_profile",
		Resource: querycache.Resource{Collection: "profiles", ID: userID, Single: true},
	}
}

func interactionQuery(userID, bookID string) querycache.Query {
	return querycache.Query{
		Type: "user_book_interaction",
		Resource: querycache.Resource{
			Collection: "user_book_interactions",
			Filters:    map[string]string{"user_id": userID, "book_id": bookID},
			Limit:      1,
			Single:     true,
		},
	}
}

func notificationsQuery(userID string) querycache.Query {
	return querycache.Query{
		Type: "notifications",
		Resource: querycache.Resource{
			Collection: "notifications",
			Filters:    map[string]string{"user_id": userID},
			OrderBy:    "created_at",
			Descending: true,
			Limit:      50,
		},
	}
}

func listQuery(listID string) querycache.Query {
	return querycache.Query{
		Type:     "list",
		Resource: querycache.Resource{Collection: "lists", ID: listID, Single: true},
	}
}

func userListsQuery(ownerID string) querycache.Query {
	return querycache.Query{
		Type: "user_lists",
		Resource: querycache.Resource{
			Collection: "lists",
			Filters:    map[string]string{"owner_id": ownerID},
			OrderBy:    "updated_at",
			Descending: true,
		},
	}
}

// Invalidation fan-out. Each domain event maps to a fixed list of keys that
// must be dropped so the next read refetches authoritative data.

func (s *Service) reviewFanout(reviewID, bookID string) []string {
	return []string{
		s.client.Key(reviewQuery(reviewID)),
		s.client.Key(bookReviewsQuery(bookID)),
		s.client.Key(activityFeedQuery()),
	}
}
