// Package orchestrator is the read-time ranking pipeline that turns a
// viewer ID into an ordered, paginated, diversified feed response.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedcore/candidate"
	"feedcore/config"
	"feedcore/feature"
	"feedcore/impression"
	"feedcore/media"
	"feedcore/model"
	"feedcore/ranking"
	"feedcore/relational"
)

// ErrViewerNotFound surfaces as HTTP 404.
var ErrViewerNotFound = relational.ErrViewerNotFound

// ErrDependencyUnavailable surfaces as HTTP 503 — reserved for the one
// dependency this pipeline cannot gracefully degrade around: the relational
// store, both for the viewer lookup and for the stage-4 batch post load.
var ErrDependencyUnavailable = relational.ErrUnavailable

// Result is the full payload for GET /feed/, including the counters the
// HTTP layer reports alongside the ranked posts.
type Result struct {
	UserID                model.UserID
	Posts                 []model.FeedPost
	CandidatesSocial      int
	CandidatesDiscovery   int
	CandidatesAfterFilter int
	LatencyMs             int64
}

// Pipeline wires every stage of the feed request.
type Pipeline struct {
	relational relational.Repository
	generator  *candidate.Generator
	filter     *impression.Filter
	hydrator   *feature.Hydrator
	scorer     *ranking.Scorer
	producer   *impression.Producer
	presigner  *media.Presigner
	cfg        *config.FeedConfig
}

// New builds an orchestrator.Pipeline from its already-constructed
// dependencies, each a process-wide singleton.
func New(
	repo relational.Repository,
	generator *candidate.Generator,
	filter *impression.Filter,
	hydrator *feature.Hydrator,
	scorer *ranking.Scorer,
	producer *impression.Producer,
	presigner *media.Presigner,
	cfg *config.FeedConfig,
) *Pipeline {
	return &Pipeline{
		relational: repo,
		generator:  generator,
		filter:     filter,
		hydrator:   hydrator,
		scorer:     scorer,
		producer:   producer,
		presigner:  presigner,
		cfg:        cfg,
	}
}

// Serve runs the full feed request: candidate generation, impression
// discounting, feature hydration and scoring, response assembly, and
// impression emission.
func (p *Pipeline) Serve(ctx context.Context, userID model.UserID) (*Result, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestDeadline)
	defer cancel()

	if _, err := p.relational.GetViewer(ctx, userID); err != nil {
		if errors.Is(err, relational.ErrViewerNotFound) {
			return nil, ErrViewerNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	// Stage 1 — candidate generation.
	candidates, err := p.generator.Generate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("candidate generation failed: %w", err)
	}
	social, discovery := countBySource(candidates)

	// Stage 2 — impression discounting, then cap to MAX_CANDIDATES.
	candidates = p.filter.Apply(ctx, userID, candidates)
	afterFilter := len(candidates)
	if len(candidates) > p.cfg.MaxCandidates {
		candidates = candidates[:p.cfg.MaxCandidates]
	}

	// Stage 3 — feature hydration and scoring.
	userFeatures, err := p.hydrator.Hydrate(ctx, userID, candidates, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("feature hydration failed: %w", err)
	}
	candidates = p.scorer.Score(ctx, userID, userFeatures, candidates)

	// Stage 4 — re-rank, diversify, hydrate.
	posts, servedIDs, err := p.buildResponse(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("response hydration failed: %w", err)
	}

	// Stage 5 — impression emission, fire-and-forget.
	go p.producer.Emit(userID, servedIDs)

	return &Result{
		UserID:                userID,
		Posts:                 posts,
		CandidatesSocial:      social,
		CandidatesDiscovery:   discovery,
		CandidatesAfterFilter: afterFilter,
		LatencyMs:             time.Since(start).Milliseconds(),
	}, nil
}

func countBySource(candidates []model.Candidate) (social, discovery int) {
	for _, c := range candidates {
		switch c.Source {
		case model.SourceSocial:
			social++
		case model.SourceDiscovery:
			discovery++
		}
	}
	return
}

// buildResponse takes the top 3*page_size scored candidates, batch-loads
// their relational records, applies the per-author diversity cap, and
// stops once page_size posts are accepted.
func (p *Pipeline) buildResponse(ctx context.Context, candidates []model.Candidate) ([]model.FeedPost, []model.PostID, error) {
	window := 3 * p.cfg.FeedPageSize
	if window > len(candidates) {
		window = len(candidates)
	}
	top := candidates[:window]

	postIDs := make([]model.PostID, len(top))
	for i, c := range top {
		postIDs[i] = c.PostID
	}

	records, err := p.relational.BatchLoadPosts(ctx, postIDs)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	authorCounts := make(map[model.UserID]int)
	posts := make([]model.FeedPost, 0, p.cfg.FeedPageSize)
	served := make([]model.PostID, 0, p.cfg.FeedPageSize)

	for _, c := range top {
		record, ok := records[c.PostID]
		if !ok {
			continue
		}
		if authorCounts[record.AuthorID] >= p.cfg.MaxAuthorPosts {
			continue
		}

		post := model.FeedPost{
			PostID:      c.PostID,
			UserID:      record.AuthorID,
			Username:    record.Username,
			DisplayName: record.DisplayName,
			Content:     record.Content,
			LikeCount:   record.LikeCount,
			CreatedAt:   time.Unix(c.PostFeatures.CreatedAtTS, 0),
			RankScore:   c.RankScore,
			Source:      c.Source,
		}
		if record.MediaKey != "" {
			post.MediaURL = p.presigner.SignedURL(record.MediaKey, now)
			post.MediaType = record.MediaType
		}

		posts = append(posts, post)
		served = append(served, c.PostID)
		authorCounts[record.AuthorID]++

		if len(posts) >= p.cfg.FeedPageSize {
			break
		}
	}

	return posts, served, nil
}
