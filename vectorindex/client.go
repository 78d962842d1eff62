// Package vectorindex is a thin client for the discovery ANN-search service
// the candidate generator calls to fill out candidates beyond the social
// graph.
package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"feedcore/model"
)

// searchRequest is the wire body for a nearest-neighbor query.
type searchRequest struct {
	Vector        []float64 `json:"vector"`
	Limit         int       `json:"limit"`
	ExcludeUserID string    `json:"exclude_user_id,omitempty"`
}

type searchResponse struct {
	Results []struct {
		PostID string `json:"post_id"`
	} `json:"results"`
}

// Client searches the vector index for posts near a viewer's interest vector.
type Client struct {
	http *resty.Client
}

// NewClient builds a vectorindex.Client against baseURL with a per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// Search returns up to limit PostIDs nearest to vector, excluding posts
// authored by viewerID so discovery never surfaces a viewer's own posts
// back to them. On any transport or decode failure it returns an error —
// callers degrade to an empty discovery list rather than fail the whole
// candidate fetch.
func (c *Client) Search(ctx context.Context, vector []float64, limit int, viewerID model.UserID) ([]model.PostID, error) {
	var out searchResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(searchRequest{Vector: vector, Limit: limit, ExcludeUserID: string(viewerID)}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("vector index request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vector index returned %s", resp.Status())
	}

	ids := make([]model.PostID, 0, len(out.Results))
	for _, r := range out.Results {
		ids = append(ids, model.PostID(r.PostID))
	}
	return ids, nil
}
