// Package featurestore is a thin client for the online feature store,
// queried twice per request: ranking features (per-post, per-user) and
// user-author affinity scores. Both calls share the same generic,
// column-oriented /get-online-features contract.
package featurestore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Feature-view column prefixes. The wire format names every column
// <feature_view>__<feature_name>; callers strip the relevant prefix to
// recover the bare feature name.
const (
	UserFeaturePrefix     = "user_stats__"
	PostFeaturePrefix     = "post_stats__"
	AffinityFeaturePrefix = "user_author_affinity__"
)

type entityLists map[string][]string

type onlineFeaturesRequest struct {
	FeatureService string      `json:"feature_service,omitempty"`
	Features       []string    `json:"features,omitempty"`
	Entities       entityLists `json:"entities"`
}

type resultColumn struct {
	Values []any `json:"values"`
}

type onlineFeaturesResponse struct {
	Metadata struct {
		FeatureNames []string `json:"feature_names"`
	} `json:"metadata"`
	Results []resultColumn `json:"results"`
}

// Row is one entity's feature values, keyed by the full wire column name
// (e.g. "user_stats__follower_count"). Values decode as float64, bool,
// string, or nil, per encoding/json's default interface{} mapping.
type Row map[string]any

// Client queries the online feature store over JSON HTTP.
type Client struct {
	http *resty.Client
}

// NewClient builds a featurestore.Client against baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// GetRankingFeatures calls the ranking_features feature service for userID
// against postIDs, one row per candidate post, row order matching postIDs.
func (c *Client) GetRankingFeatures(ctx context.Context, userID string, postIDs []string) ([]Row, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	userIDs := make([]string, len(postIDs))
	for i := range userIDs {
		userIDs[i] = userID
	}
	req := onlineFeaturesRequest{
		FeatureService: "ranking_features",
		Entities: entityLists{
			"user_id": userIDs,
			"post_id": postIDs,
		},
	}
	return c.fetchRows(ctx, req, len(postIDs))
}

// GetAffinity calls the user_author_affinity feature view for userID across
// authorIDs, one row per author, row order matching authorIDs.
func (c *Client) GetAffinity(ctx context.Context, userID string, authorIDs []string) ([]Row, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	userIDs := make([]string, len(authorIDs))
	for i := range userIDs {
		userIDs[i] = userID
	}
	req := onlineFeaturesRequest{
		Features: []string{"user_author_affinity:affinity_score"},
		Entities: entityLists{
			"user_id":   userIDs,
			"author_id": authorIDs,
		},
	}
	return c.fetchRows(ctx, req, len(authorIDs))
}

// fetchRows posts req to /get-online-features and pivots the column-oriented
// response (metadata.feature_names[i] aligned to results[i].values[j]) into
// n row maps, one per entity.
func (c *Client) fetchRows(ctx context.Context, req onlineFeaturesRequest, n int) ([]Row, error) {
	var out onlineFeaturesResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/get-online-features")
	if err != nil {
		return nil, fmt.Errorf("feature store request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feature store returned %s", resp.Status())
	}

	rows := make([]Row, n)
	for i := range rows {
		rows[i] = make(Row, len(out.Metadata.FeatureNames))
	}
	for colIdx, name := range out.Metadata.FeatureNames {
		if colIdx >= len(out.Results) {
			continue
		}
		values := out.Results[colIdx].Values
		for rowIdx := 0; rowIdx < n && rowIdx < len(values); rowIdx++ {
			rows[rowIdx][name] = values[rowIdx]
		}
	}
	return rows, nil
}
