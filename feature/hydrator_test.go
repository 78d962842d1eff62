package feature

import (
	"math"
	"testing"

	"feedcore/featurestore"
	"feedcore/model"
)

func TestPivotPostFeaturesMapsColumnsByPostID(t *testing.T) {
	postIDs := []string{"p2", "p1"}
	rows := []featurestore.Row{
		{"post_stats__like_count": float64(20)},
		{"post_stats__like_count": float64(10)},
	}
	candidates := []model.Candidate{{PostID: "p1"}, {PostID: "p2"}}

	pivotPostFeatures(rows, postIDs, candidates)

	if candidates[0].PostFeatures.LikeCount != 10 {
		t.Fatalf("expected p1 like_count 10, got %d", candidates[0].PostFeatures.LikeCount)
	}
	if candidates[1].PostFeatures.LikeCount != 20 {
		t.Fatalf("expected p2 like_count 20, got %d", candidates[1].PostFeatures.LikeCount)
	}
}

func TestPivotPostFeaturesFillsExtrasForUnknownColumns(t *testing.T) {
	postIDs := []string{"p1"}
	rows := []featurestore.Row{
		{"post_stats__like_count": float64(5), "post_stats__novelty_score": float64(0.42)},
	}
	candidates := []model.Candidate{{PostID: "p1"}}

	pivotPostFeatures(rows, postIDs, candidates)

	if candidates[0].PostFeatures.Extras["novelty_score"] != 0.42 {
		t.Fatalf("expected novelty_score in Extras, got %v", candidates[0].PostFeatures.Extras)
	}
}

func TestPivotUserFeaturesReadsBroadcastRow(t *testing.T) {
	rows := []featurestore.Row{
		{
			"user_stats__follower_count":      float64(100),
			"user_stats__avg_engagement_rate": 0.25,
		},
	}

	uf := pivotUserFeatures(rows)

	if uf.FollowerCount != 100 {
		t.Fatalf("expected follower_count 100, got %d", uf.FollowerCount)
	}
	if uf.AvgEngagementRate != 0.25 {
		t.Fatalf("expected avg_engagement_rate 0.25, got %f", uf.AvgEngagementRate)
	}
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	v := []float64{1, 0, 0}
	got := cosineSimilarity(v, v)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected similarity 1.0 for identical vectors, got %f", got)
	}
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	got := cosineSimilarity([]float64{1, 0}, []float64{0, 1})
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected clipped similarity 0.5 for orthogonal vectors, got %f", got)
	}
}

func TestCosineSimilarityZeroVectorIsNeutral(t *testing.T) {
	got := cosineSimilarity([]float64{0, 0}, []float64{1, 1})
	if got != 0.5 {
		t.Fatalf("expected neutral 0.5 for zero-norm vector, got %f", got)
	}
}

func TestApplyAffinityMapsScoresByAuthor(t *testing.T) {
	candidates := []model.Candidate{
		{PostID: "p1", PostFeatures: model.PostFeatures{AuthorID: "a1"}},
		{PostID: "p2", PostFeatures: model.PostFeatures{AuthorID: "a2"}},
	}
	authorIDs := []string{"a1", "a2"}
	rows := []featurestore.Row{
		{"user_author_affinity__affinity_score": 0.9},
		{"user_author_affinity__affinity_score": 0.1},
	}

	applyAffinity(rows, authorIDs, candidates)

	if candidates[0].PostFeatures.AffinityScore != 0.9 {
		t.Fatalf("expected a1 affinity 0.9, got %f", candidates[0].PostFeatures.AffinityScore)
	}
	if candidates[1].PostFeatures.AffinityScore != 0.1 {
		t.Fatalf("expected a2 affinity 0.1, got %f", candidates[1].PostFeatures.AffinityScore)
	}
}
