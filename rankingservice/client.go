// Package rankingservice is a thin client for the external model-scoring
// service the ranking pipeline calls before falling back to a local
// heuristic.
package rankingservice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ScoreCandidate is one entry in the ranking request's candidates array.
type ScoreCandidate struct {
	PostID       string             `json:"post_id"`
	PostFeatures map[string]float64 `json:"post_features"`
}

// ScoreRequest is the body the ranking service's /rank endpoint expects:
// the viewer's feature map once, plus one entry per candidate.
type ScoreRequest struct {
	UserFeatures map[string]float64 `json:"user_features"`
	Candidates   []ScoreCandidate   `json:"candidates"`
}

type scoredEntry struct {
	PostID string  `json:"post_id"`
	Score  float64 `json:"score"`
}

type scoreResponse struct {
	Scores []scoredEntry `json:"scores"`
}

// Client calls the ranking service's scoring endpoint.
type Client struct {
	http *resty.Client
}

// NewClient builds a rankingservice.Client against baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// Rank returns a score per requested post ID. Callers fall back to a local
// heuristic on any error.
func (c *Client) Rank(ctx context.Context, req ScoreRequest) (map[string]float64, error) {
	var out scoreResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/rank")
	if err != nil {
		return nil, fmt.Errorf("ranking service request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ranking service returned %s", resp.Status())
	}

	scores := make(map[string]float64, len(out.Scores))
	for _, entry := range out.Scores {
		scores[entry.PostID] = entry.Score
	}
	return scores, nil
}
