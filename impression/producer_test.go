package impression

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedcore/config"
	"feedcore/model"
)

type fakeSeenQuerier struct {
	seen map[model.PostID]struct{}
	err  error
}

func (f *fakeSeenQuerier) Seen(ctx context.Context, userID model.UserID, lookback time.Duration) (map[model.PostID]struct{}, error) {
	return f.seen, f.err
}

func TestFilterDropsSeenCandidates(t *testing.T) {
	store := &fakeSeenQuerier{seen: map[model.PostID]struct{}{"p2": {}}}
	f := NewFilter(store, &config.FeedConfig{ImpressionLookback: 24 * time.Hour})

	candidates := []model.Candidate{{PostID: "p1"}, {PostID: "p2"}, {PostID: "p3"}}
	got := f.Apply(context.Background(), "user-1", candidates)

	if len(got) != 2 {
		t.Fatalf("expected 2 remaining candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.PostID == "p2" {
			t.Fatalf("p2 should have been filtered out")
		}
	}
}

func TestFilterDegradesOnStoreFailure(t *testing.T) {
	store := &fakeSeenQuerier{err: errors.New("boom")}
	f := NewFilter(store, &config.FeedConfig{ImpressionLookback: 24 * time.Hour})

	candidates := []model.Candidate{{PostID: "p1"}, {PostID: "p2"}}
	got := f.Apply(context.Background(), "user-1", candidates)

	if len(got) != 2 {
		t.Fatalf("expected filter to pass candidates through unfiltered on failure, got %d", len(got))
	}
}
