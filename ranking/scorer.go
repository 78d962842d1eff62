// Package ranking scores candidates via the external ranking service, with
// a local heuristic fallback when that service is unavailable.
package ranking

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"feedcore/model"
	"feedcore/rankingservice"
)

// Scorer assigns each candidate a rank score and returns them sorted
// descending by score.
type Scorer struct {
	client *rankingservice.Client
}

// NewScorer builds a ranking.Scorer.
func NewScorer(client *rankingservice.Client) *Scorer {
	return &Scorer{client: client}
}

// Score calls the ranking service for every candidate; on failure it
// falls back to the heuristic score (0.5*recency + 0.5*normalized likes)
// so the request never fails purely because the model server is down.
func (s *Scorer) Score(ctx context.Context, userID model.UserID, userFeatures model.UserFeatures, candidates []model.Candidate) []model.Candidate {
	req := rankingservice.ScoreRequest{
		UserFeatures: map[string]float64{
			"follower_count":      float64(userFeatures.FollowerCount),
			"following_count":     float64(userFeatures.FollowingCount),
			"total_posts":         float64(userFeatures.TotalPosts),
			"avg_engagement_rate": userFeatures.AvgEngagementRate,
		},
		Candidates: make([]rankingservice.ScoreCandidate, len(candidates)),
	}
	for i, c := range candidates {
		req.Candidates[i] = rankingservice.ScoreCandidate{
			PostID: string(c.PostID),
			PostFeatures: map[string]float64{
				"like_count":            float64(c.PostFeatures.LikeCount),
				"created_at_ts":         float64(c.PostFeatures.CreatedAtTS),
				"content_length":        float64(c.PostFeatures.ContentLength),
				"author_follower_count": float64(c.PostFeatures.AuthorFollowerCount),
				"affinity_score":        c.PostFeatures.AffinityScore,
				"topic_similarity":      c.PostFeatures.TopicSimilarity,
			},
		}
	}

	scores, err := s.client.Rank(ctx, req)
	if err != nil {
		log.Printf("[ranking] ranking service unavailable for %s, using heuristic fallback: %v", userID, err)
		heuristicScore(candidates)
	} else {
		for i := range candidates {
			if score, ok := scores[string(candidates[i].PostID)]; ok {
				candidates[i].RankScore = score
				candidates[i].HasScore = true
			}
		}
		fillMissingWithHeuristic(candidates)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RankScore > candidates[j].RankScore
	})

	return candidates
}

// fillMissingWithHeuristic scores any candidate the ranking service didn't
// return a score for, rather than dropping it from the feed.
func fillMissingWithHeuristic(candidates []model.Candidate) {
	missing := make([]model.Candidate, 0)
	idx := make([]int, 0)
	for i, c := range candidates {
		if !c.HasScore {
			missing = append(missing, c)
			idx = append(idx, i)
		}
	}
	if len(missing) == 0 {
		return
	}
	heuristicScore(missing)
	for j, i := range idx {
		candidates[i] = missing[j]
	}
}

// heuristicScore applies the documented fallback formula in place:
// 0.5*recency + 0.5*(like_count / max_likes among the batch), where recency
// decays exponentially with a 48-hour time constant (about 0.37 at 48 hours).
func heuristicScore(candidates []model.Candidate) {
	if len(candidates) == 0 {
		return
	}

	var maxLikes int64
	for _, c := range candidates {
		if c.PostFeatures.LikeCount > maxLikes {
			maxLikes = c.PostFeatures.LikeCount
		}
	}

	now := time.Now().Unix()
	for i := range candidates {
		recency := recencyScore(candidates[i].PostFeatures.CreatedAtTS, now)
		engagement := 0.0
		if maxLikes > 0 {
			engagement = float64(candidates[i].PostFeatures.LikeCount) / float64(maxLikes)
		}
		candidates[i].RankScore = 0.5*recency + 0.5*engagement
		candidates[i].HasScore = true
	}
}

// recencyScore decays exponentially with post age in hours: exp(-age/48).
// A post with a future or zero timestamp is treated as brand new.
func recencyScore(createdAtTS, now int64) float64 {
	ageHours := float64(now-createdAtTS) / 3600.0
	if ageHours < 0 {
		ageHours = 0
	}
	return math.Exp(-ageHours / 48.0)
}
