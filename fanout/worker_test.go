package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"feedcore/config"
	"feedcore/events"
	"feedcore/model"
)

type fakeSocial struct {
	followers map[model.UserID][]model.UserID
}

func (f *fakeSocial) FollowerIDs(ctx context.Context, author model.UserID, maxFollowers int) ([]model.UserID, error) {
	ids := f.followers[author]
	if len(ids) > maxFollowers {
		return ids[:maxFollowers+1], nil
	}
	return ids, nil
}

func (f *fakeSocial) FollowerCount(ctx context.Context, author model.UserID) (int64, error) {
	return int64(len(f.followers[author])), nil
}

type fakeStore struct {
	mu     sync.Mutex
	pushed map[model.UserID][]model.MailboxEntry
	failOn model.UserID
}

func (s *fakeStore) Push(ctx context.Context, userID model.UserID, entry model.MailboxEntry) error {
	if userID == s.failOn {
		return errors.New("simulated push failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushed == nil {
		s.pushed = map[model.UserID][]model.MailboxEntry{}
	}
	s.pushed[userID] = append(s.pushed[userID], entry)
	return nil
}

func (s *fakeStore) Top(ctx context.Context, userID model.UserID, n int) ([]model.MailboxEntry, error) {
	return s.pushed[userID], nil
}
func (s *fakeStore) Remove(ctx context.Context, userID model.UserID, postID model.PostID) error {
	return nil
}
func (s *fakeStore) GetInterestVector(ctx context.Context, userID model.UserID) ([]float64, bool, error) {
	return nil, false, nil
}
func (s *fakeStore) SetInterestVector(ctx context.Context, userID model.UserID, vec []float64, ttl time.Duration) error {
	return nil
}

func TestFanOutPushesToAllFollowers(t *testing.T) {
	social := &fakeSocial{followers: map[model.UserID][]model.UserID{
		"author-1": {"f1", "f2", "f3"},
	}}
	store := &fakeStore{}
	cfg := &config.FeedConfig{FanOutFollowerCap: 10000}
	w := NewWorker(nil, social, store, cfg)

	evt := events.NewPostEvent{PostID: "post-1", UserID: "author-1", CreatedAt: time.Now()}
	if err := w.fanOut(context.Background(), evt); err != nil {
		t.Fatalf("fanOut returned error: %v", err)
	}

	for _, f := range []model.UserID{"f1", "f2", "f3"} {
		if len(store.pushed[f]) != 1 {
			t.Fatalf("expected 1 push for %s, got %d", f, len(store.pushed[f]))
		}
	}
}

func TestFanOutSkipsCelebrityAuthor(t *testing.T) {
	ids := make([]model.UserID, 5)
	for i := range ids {
		ids[i] = model.UserID(string(rune('a' + i)))
	}
	social := &fakeSocial{followers: map[model.UserID][]model.UserID{"celeb": ids}}
	store := &fakeStore{}
	cfg := &config.FeedConfig{FanOutFollowerCap: 3}
	w := NewWorker(nil, social, store, cfg)

	evt := events.NewPostEvent{PostID: "post-1", UserID: "celeb", CreatedAt: time.Now()}
	if err := w.fanOut(context.Background(), evt); err != nil {
		t.Fatalf("fanOut returned error: %v", err)
	}

	if len(store.pushed) != 0 {
		t.Fatalf("expected no pushes for celebrity author, got %d recipients", len(store.pushed))
	}
}

func TestFanOutSkipsAuthorAtExactCap(t *testing.T) {
	ids := make([]model.UserID, 3)
	for i := range ids {
		ids[i] = model.UserID(string(rune('a' + i)))
	}
	social := &fakeSocial{followers: map[model.UserID][]model.UserID{"celeb": ids}}
	store := &fakeStore{}
	cfg := &config.FeedConfig{FanOutFollowerCap: 3}
	w := NewWorker(nil, social, store, cfg)

	evt := events.NewPostEvent{PostID: "post-1", UserID: "celeb", CreatedAt: time.Now()}
	if err := w.fanOut(context.Background(), evt); err != nil {
		t.Fatalf("fanOut returned error: %v", err)
	}

	if len(store.pushed) != 0 {
		t.Fatalf("expected no pushes for author at exactly the cap, got %d recipients", len(store.pushed))
	}
}

func TestFanOutReturnsErrorOnPartialFailure(t *testing.T) {
	social := &fakeSocial{followers: map[model.UserID][]model.UserID{"author-1": {"f1", "f2"}}}
	store := &fakeStore{failOn: "f2"}
	cfg := &config.FeedConfig{FanOutFollowerCap: 10000}
	w := NewWorker(nil, social, store, cfg)

	evt := events.NewPostEvent{PostID: "post-1", UserID: "author-1", CreatedAt: time.Now()}
	if err := w.fanOut(context.Background(), evt); err == nil {
		t.Fatal("expected error when one push fails")
	}
}
