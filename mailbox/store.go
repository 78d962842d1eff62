// Package mailbox implements the per-user precomputed feed mailbox, a
// Redis sorted set of the most recent posts from accounts a user follows.
package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"feedcore/config"
	"feedcore/model"
)

// ErrUnavailable wraps any Redis failure so callers can degrade gracefully:
// a mailbox outage falls back to an empty social list, not a failed request.
var ErrUnavailable = errors.New("mailbox: store unavailable")

// Store is the mailbox contract the fan-out worker writes to and the
// candidate generator reads from.
type Store interface {
	Push(ctx context.Context, userID model.UserID, entry model.MailboxEntry) error
	Top(ctx context.Context, userID model.UserID, n int) ([]model.MailboxEntry, error)
	Remove(ctx context.Context, userID model.UserID, postID model.PostID) error
	GetInterestVector(ctx context.Context, userID model.UserID) ([]float64, bool, error)
	SetInterestVector(ctx context.Context, userID model.UserID, vec []float64, ttl time.Duration) error
}

type redisStore struct {
	client  *redis.Client
	maxSize int
	ttl     time.Duration
}

// NewStore builds a mailbox.Store over a go-redis client, sized and TTL'd
// from the given config.
func NewStore(client *redis.Client, cfg *config.FeedConfig) Store {
	return &redisStore{client: client, maxSize: cfg.MailboxMaxSize, ttl: cfg.MailboxTTL}
}

func mailboxKey(userID model.UserID) string {
	return fmt.Sprintf("mailbox:%s", userID)
}

func interestKey(userID model.UserID) string {
	return fmt.Sprintf("interest-vector:%s", userID)
}

func member(authorID model.UserID, postID model.PostID) string {
	return fmt.Sprintf("%s|%s", authorID, postID)
}

func parseMember(m string) (model.UserID, model.PostID, error) {
	for i := 0; i < len(m); i++ {
		if m[i] == '|' {
			return model.UserID(m[:i]), model.PostID(m[i+1:]), nil
		}
	}
	return "", "", fmt.Errorf("malformed mailbox member %q", m)
}

// Push upserts one entry into userID's mailbox, then atomically trims the
// set to maxSize and refreshes its TTL in a single pipelined round trip:
// upsert, trim, and TTL-refresh must land as one atomic unit per user, not
// three separate calls that can interleave with a concurrent reader.
func (s *redisStore) Push(ctx context.Context, userID model.UserID, entry model.MailboxEntry) error {
	key := mailboxKey(userID)
	score := float64(entry.CreatedAt.UnixNano())
	mem := member(entry.AuthorID, entry.PostID)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: mem})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.maxSize-1))
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: push failed for %s: %v", ErrUnavailable, userID, err)
	}
	return nil
}

// Top returns up to n of the most recent entries, newest first.
func (s *redisStore) Top(ctx context.Context, userID model.UserID, n int) ([]model.MailboxEntry, error) {
	key := mailboxKey(userID)

	raw, err := s.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: top failed for %s: %v", ErrUnavailable, userID, err)
	}

	entries := make([]model.MailboxEntry, 0, len(raw))
	for _, z := range raw {
		mem, ok := z.Member.(string)
		if !ok {
			continue
		}
		authorID, postID, err := parseMember(mem)
		if err != nil {
			continue
		}
		entries = append(entries, model.MailboxEntry{
			PostID:    postID,
			AuthorID:  authorID,
			CreatedAt: time.Unix(0, int64(z.Score)),
		})
	}
	return entries, nil
}

// Remove drops a single post from userID's mailbox (used when a post is
// deleted or fails moderation after fan-out already delivered it).
func (s *redisStore) Remove(ctx context.Context, userID model.UserID, postID model.PostID) error {
	key := mailboxKey(userID)
	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("%w: remove scan failed for %s: %v", ErrUnavailable, userID, err)
	}
	for _, m := range members {
		_, mPostID, err := parseMember(m)
		if err == nil && mPostID == postID {
			if err := s.client.ZRem(ctx, key, m).Err(); err != nil {
				return fmt.Errorf("%w: remove failed for %s: %v", ErrUnavailable, userID, err)
			}
			return nil
		}
	}
	return nil
}

// GetInterestVector returns the viewer's cached discovery-embedding
// coordinates and whether one existed. A cold-start viewer gets a random
// vector lazily persisted by SetInterestVector, never a blocking call into
// a learned-embedding service.
func (s *redisStore) GetInterestVector(ctx context.Context, userID model.UserID) ([]float64, bool, error) {
	raw, err := s.client.Get(ctx, interestKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: interest vector read failed for %s: %v", ErrUnavailable, userID, err)
	}

	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false, fmt.Errorf("corrupt interest vector for %s: %w", userID, err)
	}
	return vec, true, nil
}

// SetInterestVector persists vec with ttl (callers default this to 24h).
func (s *redisStore) SetInterestVector(ctx context.Context, userID model.UserID, vec []float64, ttl time.Duration) error {
	payload, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal interest vector: %w", err)
	}
	if err := s.client.Set(ctx, interestKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: interest vector write failed for %s: %v", ErrUnavailable, userID, err)
	}
	return nil
}

// RandomInterestVector draws a cold-start vector uniformly from [-1,1]^dim.
func RandomInterestVector(dim int) []float64 {
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = rand.Float64()*2 - 1
	}
	return vec
}

// scoreToKey renders t as the decimal Unix-nanosecond value Push uses as a
// mailbox score.
func scoreToKey(t time.Time) string { return strconv.FormatInt(t.UnixNano(), 10) }
