package ranking

import (
	"testing"
	"time"

	"feedcore/model"
)

func TestHeuristicScorePrefersRecentAndPopular(t *testing.T) {
	now := time.Now().Unix()
	candidates := []model.Candidate{
		{PostID: "old-unpopular", PostFeatures: model.PostFeatures{CreatedAtTS: now - 7*24*3600, LikeCount: 1}},
		{PostID: "new-popular", PostFeatures: model.PostFeatures{CreatedAtTS: now, LikeCount: 100}},
	}

	heuristicScore(candidates)

	if candidates[1].RankScore <= candidates[0].RankScore {
		t.Fatalf("expected new-popular to outscore old-unpopular, got %+v", candidates)
	}
	for _, c := range candidates {
		if !c.HasScore {
			t.Fatalf("expected HasScore set for %s", c.PostID)
		}
	}
}

func TestHeuristicScoreSingleCandidateScoresNearMax(t *testing.T) {
	now := time.Now().Unix()
	candidates := []model.Candidate{
		{PostID: "only", PostFeatures: model.PostFeatures{CreatedAtTS: now, LikeCount: 5}},
	}
	heuristicScore(candidates)
	if candidates[0].RankScore <= 0.9 {
		t.Fatalf("expected a brand-new single-candidate batch to score near 1.0, got %f", candidates[0].RankScore)
	}
}

func TestRecencyScoreBounds(t *testing.T) {
	now := time.Now().Unix()
	if got := recencyScore(now, now); got != 1.0 {
		t.Fatalf("expected a post created right now to score 1.0, got %f", got)
	}
	if got := recencyScore(now-48*3600, now); got >= 0.4 {
		t.Fatalf("expected a 48-hour-old post to have decayed well below 0.4, got %f", got)
	}
	if got := recencyScore(now+3600, now); got != 1.0 {
		t.Fatalf("expected a future timestamp to clamp to 1.0, got %f", got)
	}
}
