package model

import "time"

// FeedPost is the HTTP response shape for a single ranked post.
type FeedPost struct {
	PostID      PostID    `json:"post_id"`
	UserID      UserID    `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Content     string    `json:"content,omitempty"`
	MediaURL    string    `json:"media_url,omitempty"`
	MediaType   string    `json:"media_type,omitempty"`
	LikeCount   int64     `json:"like_count"`
	CreatedAt   time.Time `json:"created_at"`
	RankScore   float64   `json:"rank_score"`
	Source      Source    `json:"source"`
}

// MailboxEntry is one row of a user's precomputed feed mailbox, stored
// as the member of a Redis sorted set keyed by author-post recency.
type MailboxEntry struct {
	PostID    PostID
	AuthorID  UserID
	CreatedAt time.Time
}
