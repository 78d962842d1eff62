// Package relational provides viewer validation and batch post hydration
// against the Postgres store, using sqlx.In for batched lookups.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"feedcore/model"
)

// ErrViewerNotFound is returned when the requested viewer does not exist.
var ErrViewerNotFound = errors.New("relational: viewer not found")

// ErrUnavailable wraps a database failure the caller should surface as a
// 503, rather than a 404.
var ErrUnavailable = errors.New("relational: store unavailable")

// Viewer is the minimal record needed to validate a feed request.
type Viewer struct {
	UserID model.UserID `db:"id"`
}

// postRow mirrors the author-joined query used by BatchLoadPosts.
type postRow struct {
	PostID      model.PostID `db:"id"`
	AuthorID    model.UserID `db:"author_id"`
	Username    string       `db:"username"`
	DisplayName string       `db:"display_name"`
	Content     string       `db:"content"`
	MediaKey    sql.NullString `db:"media_key"`
	MediaType   sql.NullString `db:"media_type"`
	LikeCount   int64        `db:"like_count"`
}

// PostRecord is a fully hydrated post row, author fields joined in.
type PostRecord struct {
	PostID      model.PostID
	AuthorID    model.UserID
	Username    string
	DisplayName string
	Content     string
	MediaKey    string
	MediaType   string
	LikeCount   int64
}

// Repository is the relational-store contract the ranking pipeline depends
// on for viewer validation and post hydration.
type Repository interface {
	GetViewer(ctx context.Context, userID model.UserID) (*Viewer, error)
	BatchLoadPosts(ctx context.Context, postIDs []model.PostID) (map[model.PostID]PostRecord, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository builds a relational.Repository over db.
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// GetViewer confirms userID exists, distinguishing "not found" from a
// transient store failure.
func (r *repository) GetViewer(ctx context.Context, userID model.UserID) (*Viewer, error) {
	var v Viewer
	err := r.db.GetContext(ctx, &v, `SELECT id FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrViewerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &v, nil
}

// BatchLoadPosts loads every postID's content, author, and engagement
// fields in one round trip via sqlx.In, rather than one query per post.
func (r *repository) BatchLoadPosts(ctx context.Context, postIDs []model.PostID) (map[model.PostID]PostRecord, error) {
	if len(postIDs) == 0 {
		return map[model.PostID]PostRecord{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT p.id, p.author_id, u.username, u.display_name, p.content,
		       p.media_key, p.media_type, p.like_count
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id IN (?)
	`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch post query: %w", err)
	}

	rows := []postRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%w: batch post load failed: %v", ErrUnavailable, err)
	}

	out := make(map[model.PostID]PostRecord, len(rows))
	for _, row := range rows {
		out[row.PostID] = PostRecord{
			PostID:      row.PostID,
			AuthorID:    row.AuthorID,
			Username:    row.Username,
			DisplayName: row.DisplayName,
			Content:     row.Content,
			MediaKey:    row.MediaKey.String,
			MediaType:   row.MediaType.String,
			LikeCount:   row.LikeCount,
		}
	}
	return out, nil
}
