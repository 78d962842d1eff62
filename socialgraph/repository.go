// Package socialgraph provides read access to the follow relationships the
// fan-out worker depends on to resolve an author's followers.
package socialgraph

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"feedcore/model"
)

// Repository resolves followers for fan-out and follow counts for the
// celebrity-bypass decision.
type Repository interface {
	// FollowerIDs returns up to maxFollowers+1 follower IDs of author, newest
	// relationship first. The caller compares len(result) to cap to detect
	// whether the true count reaches the celebrity threshold without a
	// separate COUNT(*) query.
	FollowerIDs(ctx context.Context, author model.UserID, maxFollowers int) ([]model.UserID, error)

	// FollowerCount returns the exact follower count, used once a caller
	// already knows (from FollowerIDs) that author is at or above the cap.
	FollowerCount(ctx context.Context, author model.UserID) (int64, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository builds a socialgraph.Repository over db.
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FollowerIDs(ctx context.Context, author model.UserID, maxFollowers int) ([]model.UserID, error) {
	query := `
		SELECT follower_id
		FROM follows
		WHERE followee_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var ids []model.UserID
	if err := r.db.SelectContext(ctx, &ids, query, author, maxFollowers+1); err != nil {
		return nil, fmt.Errorf("failed to fetch followers for %s: %w", author, err)
	}
	return ids, nil
}

func (r *repository) FollowerCount(ctx context.Context, author model.UserID) (int64, error) {
	query := `SELECT COUNT(*) FROM follows WHERE followee_id = $1`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, author); err != nil {
		return 0, fmt.Errorf("failed to count followers for %s: %w", author, err)
	}
	return count, nil
}

