// Package events defines the subjects and payload shapes carried over NATS
// between the write path (post creation) and the fan-out worker, and between
// the read path and the impression sink.
package events

import (
	"time"

	"feedcore/model"
)

// Subjects (topics)
const (
	SubjectNewPost   = "new-posts"
	SubjectImpression = "impressions"
)

// NewPostEvent is published once per created post and drives the fan-out
// worker.
type NewPostEvent struct {
	PostID    model.PostID `json:"post_id"`
	UserID    model.UserID `json:"user_id"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// ImpressionEvent is published fire-and-forget whenever the feed pipeline
// serves a post, and consumed asynchronously by the impression store.
type ImpressionEvent struct {
	UserID      model.UserID `json:"user_id"`
	PostID      model.PostID `json:"post_id"`
	TimestampMs int64        `json:"timestamp_ms"`
}
