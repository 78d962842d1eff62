// Package impressionstore is a thin client for the read-side impression
// query the impression filter uses to exclude posts a viewer has already
// seen.
package impressionstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"feedcore/model"
)

type sqlRequest struct {
	SQL string `json:"sql"`
}

type resultTable struct {
	Rows [][]string `json:"rows"`
}

type sqlResponse struct {
	ResultTable resultTable `json:"resultTable"`
}

// querySeenLimit caps the impression-store result set
// (SELECT post_id FROM impressions WHERE user_id=... LIMIT 10000).
const querySeenLimit = 10000

// Client queries the impression store's SQL broker for a viewer's recently
// seen posts.
type Client struct {
	http *resty.Client
}

// NewClient builds an impressionstore.Client against baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// Seen returns the set of PostIDs userID was shown within lookback. On
// failure it returns an error; callers degrade to an empty seen set rather
// than blocking the feed request.
func (c *Client) Seen(ctx context.Context, userID model.UserID, lookback time.Duration) (map[model.PostID]struct{}, error) {
	cutoffMS := time.Now().Add(-lookback).UnixMilli()
	sql := fmt.Sprintf(
		"SELECT post_id FROM impressions WHERE user_id = %s AND timestamp >= %d LIMIT %d",
		quoteSQLString(string(userID)), cutoffMS, querySeenLimit,
	)

	var out sqlResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sqlRequest{SQL: sql}).
		SetResult(&out).
		Post("/query/sql")
	if err != nil {
		return nil, fmt.Errorf("impression store request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("impression store returned %s", resp.Status())
	}

	rows := out.ResultTable.Rows
	seen := make(map[model.PostID]struct{}, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		seen[model.PostID(row[0])] = struct{}{}
	}
	return seen, nil
}

// quoteSQLString escapes s for safe inclusion as a single-quoted SQL
// literal, doubling embedded quotes. The broker's /query/sql endpoint takes
// a single raw SQL string with no bind-parameter form, so this quoting is
// the parameterization boundary: every value interpolated into a query
// must go through it rather than being concatenated directly.
func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
