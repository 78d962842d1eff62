// Package impression filters already-seen posts out of a candidate list
// and fire-and-forget publishes new impressions once a feed is served.
package impression

import (
	"context"
	"log"
	"time"

	"feedcore/config"
	"feedcore/events"
	"feedcore/model"
	"feedcore/natsclient"
)

// seenQuerier is satisfied by *impressionstore.Client; narrowed to an
// interface here so Filter can be exercised without a live HTTP dependency.
type seenQuerier interface {
	Seen(ctx context.Context, userID model.UserID, lookback time.Duration) (map[model.PostID]struct{}, error)
}

// Filter removes posts a viewer has already been shown within the
// lookback window. On impression-store failure it degrades to an empty
// seen set rather than failing the request.
type Filter struct {
	store    seenQuerier
	lookback time.Duration
}

// NewFilter builds an impression.Filter.
func NewFilter(store seenQuerier, cfg *config.FeedConfig) *Filter {
	return &Filter{store: store, lookback: cfg.ImpressionLookback}
}

// Apply drops every candidate whose PostID is in the viewer's seen set.
func (f *Filter) Apply(ctx context.Context, userID model.UserID, candidates []model.Candidate) []model.Candidate {
	seen, err := f.store.Seen(ctx, userID, f.lookback)
	if err != nil {
		log.Printf("[impression] store unavailable for %s, serving without impression filtering: %v", userID, err)
		return candidates
	}

	filtered := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, shown := seen[c.PostID]; shown {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// Producer publishes impression events fire-and-forget: a publish failure
// is logged and dropped, never surfaced to the serving request.
type Producer struct {
	nats *natsclient.Client
}

// NewProducer builds an impression.Producer.
func NewProducer(nc *natsclient.Client) *Producer {
	return &Producer{nats: nc}
}

// Emit publishes one impression per served post. Errors are logged only.
func (p *Producer) Emit(userID model.UserID, postIDs []model.PostID) {
	now := time.Now().UnixMilli()
	for _, postID := range postIDs {
		evt := events.ImpressionEvent{UserID: userID, PostID: postID, TimestampMs: now}
		if err := p.nats.Publish(events.SubjectImpression, evt); err != nil {
			log.Printf("[impression] failed to publish impression for %s/%s: %v", userID, postID, err)
		}
	}
}
