// Package candidate builds the candidate pool a viewer's feed is ranked
// from, merging the social mailbox with vector-index discovery results.
package candidate

import (
	"context"
	"log"

	"github.com/sourcegraph/conc"

	"feedcore/config"
	"feedcore/mailbox"
	"feedcore/model"
	"feedcore/vectorindex"
)

// Generator produces the deduplicated candidate list for a viewer.
type Generator struct {
	mailbox     mailbox.Store
	vectorIndex *vectorindex.Client
	cfg         *config.FeedConfig
}

// NewGenerator builds a candidate.Generator.
func NewGenerator(store mailbox.Store, vi *vectorindex.Client, cfg *config.FeedConfig) *Generator {
	return &Generator{mailbox: store, vectorIndex: vi, cfg: cfg}
}

// Generate fetches the social (mailbox) and discovery (vector-index)
// candidate lists in parallel via a structured-concurrency scope — one
// branch failing does not cancel or block the other — merges them
// preserving first-seen source (social wins ties), and caps the result at
// MaxCandidates.
func (g *Generator) Generate(ctx context.Context, userID model.UserID) ([]model.Candidate, error) {
	var social []model.MailboxEntry
	var discovery []model.PostID

	var wg conc.WaitGroup

	wg.Go(func() {
		entries, err := g.mailbox.Top(ctx, userID, g.cfg.MaxCandidates)
		if err != nil {
			log.Printf("[candidate] mailbox unavailable for %s, falling back to empty social list: %v", userID, err)
			return
		}
		social = entries
	})

	wg.Go(func() {
		vector, err := g.interestVector(ctx, userID)
		if err != nil {
			log.Printf("[candidate] interest vector unavailable for %s, skipping discovery: %v", userID, err)
			return
		}
		ids, err := g.vectorIndex.Search(ctx, vector, g.cfg.MaxCandidates, userID)
		if err != nil {
			log.Printf("[candidate] vector index unavailable for %s, falling back to empty discovery list: %v", userID, err)
			return
		}
		discovery = ids
	})

	wg.Wait()

	return merge(social, discovery, g.cfg.MaxCandidates), nil
}

// interestVector returns userID's cached discovery embedding, lazily
// bootstrapping a random cold-start vector with a 24h TTL if none exists
// yet — this never blocks on a learned-embedding service.
func (g *Generator) interestVector(ctx context.Context, userID model.UserID) ([]float64, error) {
	vec, ok, err := g.mailbox.GetInterestVector(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		return vec, nil
	}

	vec = mailbox.RandomInterestVector(g.cfg.EmbeddingDimension)
	if err := g.mailbox.SetInterestVector(ctx, userID, vec, g.cfg.MailboxTTL); err != nil {
		log.Printf("[candidate] failed to persist cold-start interest vector for %s: %v", userID, err)
	}
	return vec, nil
}

// merge combines social and discovery candidates, preferring the social
// source on collision and truncating to max entries.
func merge(social []model.MailboxEntry, discovery []model.PostID, max int) []model.Candidate {
	seen := make(map[model.PostID]struct{}, len(social)+len(discovery))
	candidates := make([]model.Candidate, 0, len(social)+len(discovery))

	for _, entry := range social {
		if _, dup := seen[entry.PostID]; dup {
			continue
		}
		seen[entry.PostID] = struct{}{}
		candidates = append(candidates, model.Candidate{
			PostID: entry.PostID,
			Source: model.SourceSocial,
			PostFeatures: model.PostFeatures{
				AuthorID:    entry.AuthorID,
				CreatedAtTS: entry.CreatedAt.Unix(),
			},
		})
		if len(candidates) >= max {
			return candidates
		}
	}

	for _, postID := range discovery {
		if _, dup := seen[postID]; dup {
			continue
		}
		seen[postID] = struct{}{}
		candidates = append(candidates, model.Candidate{
			PostID: postID,
			Source: model.SourceDiscovery,
		})
		if len(candidates) >= max {
			return candidates
		}
	}

	return candidates
}
