// Package model holds the domain records mirrored from the remote store.
// Denormalized counters (like_count, follower_count, ...) are adjusted
// speculatively by the optimistic layer and recomputed authoritatively by
// server-side triggers; the client never treats its speculative counter as
// durable truth.
package model

import "time"

// ReadingStatus is the user's relationship to a book. A book is also
// independently flaggable as on-watchlist, but never simultaneously
// on-watchlist and currently reading.
type ReadingStatus string

const (
	StatusNone             ReadingStatus = ""
	StatusCurrentlyReading ReadingStatus = "currently_reading"
	StatusRead             ReadingStatus = "read"
)

// Book is a catalog record persisted after a user first interacts with it.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Description   string    `json:"description,omitempty"`
	CoverURL      string    `json:"cover_url,omitempty"`
	PublishedYear int       `json:"published_year,omitempty"`
	RatingAvg     float64   `json:"rating_avg"`
	RatingCount   int       `json:"rating_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// BookSummary is the normalized shape returned by the search proxy.
type BookSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	PublishedYear int      `json:"published_year,omitempty"`
}

// Review is a user's review of a book.
type Review struct {
	ID                  string    `json:"id"`
	BookID              string    `json:"book_id"`
	UserID              string    `json:"user_id"`
	Content             string    `json:"content"`
	Rating              int       `json:"rating"`
	LikeCount           int       `json:"like_count"`
	CommentCount        int       `json:"comment_count"`
	CurrentUserHasLiked bool      `json:"current_user_has_liked"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Comment is a reply on a review.
type Comment struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ListCollection is a user-built, shareable list of books.
type ListCollection struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Public      bool      `json:"public"`
	BookIDs     []string  `json:"book_ids"`
	BookCount   int       `json:"book_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserProfile is another user as seen by the current one.
type UserProfile struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	DisplayName        string    `json:"display_name,omitempty"`
	Bio                string    `json:"bio,omitempty"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	FollowerCount      int       `json:"follower_count"`
	FollowingCount     int       `json:"following_count"`
	ReviewCount        int       `json:"review_count"`
	CurrentUserFollows bool      `json:"current_user_follows"`
	CreatedAt          time.Time `json:"created_at"`
}

// Notification is a social event delivered to a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id"`
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityItem is one row of the activity feed.
type ActivityItem struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Kind      string    `json:"kind"`
	EntityID  string    `json:"entity_id,omitempty"`
	BookID    string    `json:"book_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserBookInteraction tracks one user's state for one book: reading status,
// watchlist flag, rating, and the associated review if any.
type UserBookInteraction struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	BookID      string        `json:"book_id"`
	Status      ReadingStatus `json:"status"`
	OnWatchlist bool          `json:"on_watchlist"`
	Rating      int           `json:"rating,omitempty"`
	ReviewID    string        `json:"review_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
