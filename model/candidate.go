package model

// Candidate is the transient tuple the candidate generator produces and
// later stages mutate in place. Source is the first origin observed during
// merge; social wins over discovery on collision.
type Candidate struct {
	PostID       PostID
	Source       Source
	PostFeatures PostFeatures
	RankScore    float64
	HasScore     bool
}

// PostFeatures holds the minimum feature set required per post, plus an
// Extras bag for model-only signals the wire format doesn't name.
type PostFeatures struct {
	AuthorID            UserID
	LikeCount           int64
	CreatedAtTS         int64
	HasMedia            bool
	ContentLength       int
	AuthorFollowerCount int64
	EmbeddingJSON       string
	AffinityScore       float64
	TopicSimilarity     float64
	Extras              map[string]float64
}

// UserFeatures holds the minimum feature set required per viewer.
type UserFeatures struct {
	FollowerCount      int64
	FollowingCount     int64
	TotalPosts         int64
	AvgEngagementRate  float64
	InterestVectorJSON string
	Extras             map[string]float64
}

// FeatureBundle is the request-scoped (never persisted) output of feature hydration.
type FeatureBundle struct {
	UserFeatures UserFeatures
	PostFeatures map[PostID]PostFeatures
	Source       string // "feature-store" or "redis-fallback", for the span attribute
}
