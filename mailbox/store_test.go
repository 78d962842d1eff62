package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"feedcore/config"
	"feedcore/model"
)

func newTestStore(t *testing.T, maxSize int) Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.FeedConfig{MailboxMaxSize: maxSize, MailboxTTL: time.Hour}
	return NewStore(client, cfg)
}

func TestMemberRoundTrip(t *testing.T) {
	authorID, postID := model.UserID("author-1"), model.PostID("post-42")
	m := member(authorID, postID)

	gotAuthor, gotPost, err := parseMember(m)
	if err != nil {
		t.Fatalf("parseMember returned error: %v", err)
	}
	if gotAuthor != authorID || gotPost != postID {
		t.Fatalf("round trip mismatch: got (%s, %s), want (%s, %s)", gotAuthor, gotPost, authorID, postID)
	}
}

func TestParseMemberRejectsMalformed(t *testing.T) {
	if _, _, err := parseMember("no-separator"); err == nil {
		t.Fatal("expected error for member with no separator")
	}
}

func TestRandomInterestVectorBounds(t *testing.T) {
	vec := RandomInterestVector(384)
	if len(vec) != 384 {
		t.Fatalf("expected 384 dims, got %d", len(vec))
	}
	for i, v := range vec {
		if v < -1 || v > 1 {
			t.Fatalf("dim %d out of [-1,1]: %f", i, v)
		}
	}
}

func TestPushTrimsToMaxSize(t *testing.T) {
	store := newTestStore(t, 3)
	ctx := context.Background()
	userID := model.UserID("viewer-1")
	base := time.Now()

	for i := 0; i < 5; i++ {
		entry := model.MailboxEntry{
			PostID:    model.PostID("post-" + string(rune('a'+i))),
			AuthorID:  "author-1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Push(ctx, userID, entry); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}

	entries, err := store.Top(ctx, userID, 10)
	if err != nil {
		t.Fatalf("top failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected mailbox trimmed to 3 entries, got %d", len(entries))
	}

	want := []model.PostID{"post-e", "post-d", "post-c"}
	for i, e := range entries {
		if e.PostID != want[i] {
			t.Fatalf("expected newest-first order %v, got %v at index %d", want, entries, i)
		}
	}
}

func TestPushUpdatesScoreOnRepeatedPostID(t *testing.T) {
	store := newTestStore(t, 10)
	ctx := context.Background()
	userID := model.UserID("viewer-1")
	// Scores are float64 Unix nanoseconds, which hold whole-second
	// timestamps exactly but not arbitrary nanosecond ones.
	base := time.Now().Truncate(time.Second)

	first := model.MailboxEntry{PostID: "post-1", AuthorID: "author-1", CreatedAt: base}
	if err := store.Push(ctx, userID, first); err != nil {
		t.Fatalf("first push failed: %v", err)
	}

	updated := model.MailboxEntry{PostID: "post-1", AuthorID: "author-1", CreatedAt: base.Add(time.Hour)}
	if err := store.Push(ctx, userID, updated); err != nil {
		t.Fatalf("second push failed: %v", err)
	}

	entries, err := store.Top(ctx, userID, 10)
	if err != nil {
		t.Fatalf("top failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a repeated PostID to update in place rather than duplicate, got %d entries", len(entries))
	}
	if !entries[0].CreatedAt.Equal(updated.CreatedAt) {
		t.Fatalf("expected score updated to the later push's timestamp, got %v", entries[0].CreatedAt)
	}
}
