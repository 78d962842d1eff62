// Package feature pivots the feature store's column-oriented wire response
// into per-post structs, computes topic similarity, and falls back to a
// local cache when the feature store is unavailable.
package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"

	"feedcore/config"
	"feedcore/featurestore"
	"feedcore/model"
)

// Hydrator fetches and pivots feature-store data for a ranking request.
type Hydrator struct {
	client *featurestore.Client

	mu        sync.RWMutex
	localUser map[model.UserID]model.UserFeatures
}

// NewHydrator builds a feature.Hydrator.
func NewHydrator(client *featurestore.Client) *Hydrator {
	return &Hydrator{client: client, localUser: make(map[model.UserID]model.UserFeatures)}
}

// Hydrate fetches ranking features and user-author affinity in parallel
// (structured concurrency: one branch failing never cancels the other)
// and pivots the column-oriented wire response into candidates in place.
func (h *Hydrator) Hydrate(ctx context.Context, userID model.UserID, candidates []model.Candidate, cfg *config.FeedConfig) (model.UserFeatures, error) {
	postIDs := make([]string, len(candidates))
	authorIDs := make([]string, 0, len(candidates))
	seenAuthor := make(map[string]struct{}, len(candidates))
	for i, c := range candidates {
		postIDs[i] = string(c.PostID)
	}

	var (
		featureRows  []featurestore.Row
		featuresErr  error
		affinityRows []featurestore.Row
		affinityErr  error
	)

	var wg conc.WaitGroup

	wg.Go(func() {
		fctx, cancel := context.WithTimeout(ctx, cfg.FeatureStoreTimeout)
		defer cancel()
		featureRows, featuresErr = h.client.GetRankingFeatures(fctx, string(userID), postIDs)
	})

	wg.Go(func() {
		for _, c := range candidates {
			a := string(c.PostFeatures.AuthorID)
			if a == "" {
				continue
			}
			if _, dup := seenAuthor[a]; dup {
				continue
			}
			seenAuthor[a] = struct{}{}
			authorIDs = append(authorIDs, a)
		}
		if len(authorIDs) == 0 {
			return
		}
		actx, cancel := context.WithTimeout(ctx, cfg.FeatureStoreTimeout)
		defer cancel()
		affinityRows, affinityErr = h.client.GetAffinity(actx, string(userID), authorIDs)
	})

	wg.Wait()

	userFeatures := h.userFeaturesFallback(userID)

	if featuresErr != nil {
		log.Printf("[feature] feature store unavailable for %s, using local cache fallback: %v", userID, featuresErr)
	} else {
		userFeatures = pivotUserFeatures(featureRows)
		pivotPostFeatures(featureRows, postIDs, candidates)
		h.cacheUserFeatures(userID, userFeatures)
	}

	if affinityErr != nil {
		log.Printf("[feature] affinity scores unavailable for %s: %v", userID, affinityErr)
	} else {
		applyAffinity(affinityRows, authorIDs, candidates)
	}

	applyTopicSimilarity(userFeatures, candidates)

	return userFeatures, nil
}

func (h *Hydrator) userFeaturesFallback(userID model.UserID) model.UserFeatures {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.localUser[userID]
}

func (h *Hydrator) cacheUserFeatures(userID model.UserID, uf model.UserFeatures) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.localUser[userID] = uf
}

// pivotUserFeatures extracts the user_stats__ columns, which are broadcast
// identically across every row, from the first row in the response. Named
// fields land in typed struct fields; anything else lands in Extras.
func pivotUserFeatures(rows []featurestore.Row) model.UserFeatures {
	uf := model.UserFeatures{Extras: map[string]float64{}}
	if len(rows) == 0 {
		return uf
	}
	for name, val := range rows[0] {
		key, ok := strings.CutPrefix(name, featurestore.UserFeaturePrefix)
		if !ok {
			continue
		}
		switch key {
		case "follower_count":
			uf.FollowerCount = toInt64(val)
		case "following_count":
			uf.FollowingCount = toInt64(val)
		case "total_posts":
			uf.TotalPosts = toInt64(val)
		case "avg_engagement_rate":
			uf.AvgEngagementRate = toFloat64(val)
		case "interest_vector_json":
			uf.InterestVectorJSON = toString(val)
		default:
			if f, ok := toFloat64Ok(val); ok {
				uf.Extras[key] = f
			}
		}
	}
	return uf
}

// pivotPostFeatures mutates candidates in place, matching each response row
// to its candidate by postIDs[rowIdx] and pivoting the post_stats__ columns
// by name; this is the one place the wire format's parallel-array shape is
// ever touched.
func pivotPostFeatures(rows []featurestore.Row, postIDs []string, candidates []model.Candidate) {
	byPost := make(map[string]int, len(candidates))
	for i, c := range candidates {
		byPost[string(c.PostID)] = i
	}

	for rowIdx, row := range rows {
		if rowIdx >= len(postIDs) {
			break
		}
		idx, ok := byPost[postIDs[rowIdx]]
		if !ok {
			continue
		}

		pf := candidates[idx].PostFeatures
		if pf.Extras == nil {
			pf.Extras = map[string]float64{}
		}
		for name, val := range row {
			key, ok := strings.CutPrefix(name, featurestore.PostFeaturePrefix)
			if !ok {
				continue
			}
			switch key {
			case "author_id":
				pf.AuthorID = model.UserID(toString(val))
			case "like_count":
				pf.LikeCount = toInt64(val)
			case "created_at_ts":
				pf.CreatedAtTS = toInt64(val)
			case "has_media":
				pf.HasMedia = toBool(val)
			case "content_length":
				pf.ContentLength = int(toInt64(val))
			case "author_follower_count":
				pf.AuthorFollowerCount = toInt64(val)
			case "embedding_json":
				pf.EmbeddingJSON = toString(val)
			default:
				if f, ok := toFloat64Ok(val); ok {
					pf.Extras[key] = f
				}
			}
		}
		candidates[idx].PostFeatures = pf
	}
}

// applyAffinity matches each affinity row to its author by authorIDs[rowIdx]
// and writes the affinity_score column onto every candidate from that author.
func applyAffinity(rows []featurestore.Row, authorIDs []string, candidates []model.Candidate) {
	byAuthor := make(map[string]float64, len(rows))
	for rowIdx, row := range rows {
		if rowIdx >= len(authorIDs) {
			break
		}
		val, ok := row[featurestore.AffinityFeaturePrefix+"affinity_score"]
		if !ok {
			val, ok = row["affinity_score"]
		}
		if !ok {
			continue
		}
		if f, ok := toFloat64Ok(val); ok {
			byAuthor[authorIDs[rowIdx]] = f
		}
	}
	for i := range candidates {
		if score, ok := byAuthor[string(candidates[i].PostFeatures.AuthorID)]; ok {
			candidates[i].PostFeatures.AffinityScore = score
		}
	}
}

// applyTopicSimilarity computes cosine similarity between the viewer's
// interest vector and each candidate's content embedding. A missing or
// undecodable vector on either side counts as zero-norm and yields the
// neutral 0.5.
func applyTopicSimilarity(userFeatures model.UserFeatures, candidates []model.Candidate) {
	userVec, err := decodeVector(userFeatures.InterestVectorJSON)
	if err != nil {
		userVec = nil
	}
	for i := range candidates {
		postVec, err := decodeVector(candidates[i].PostFeatures.EmbeddingJSON)
		if err != nil {
			postVec = nil
		}
		candidates[i].PostFeatures.TopicSimilarity = cosineSimilarity(userVec, postVec)
	}
}

func decodeVector(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("invalid embedding json: %w", err)
	}
	return vec, nil
}

// cosineSimilarity returns raw cosine similarity clipped into [0,1] via
// (x+1)/2, so it composes additively with the feature store's other
// zero-to-one signals in the ranking request.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.5
	}
	raw := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (raw + 1) / 2
}

func toFloat64Ok(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

func toFloat64(v any) float64 {
	f, _ := toFloat64Ok(v)
	return f
}

func toInt64(v any) int64 {
	f, _ := toFloat64Ok(v)
	return int64(f)
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
