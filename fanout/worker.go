// Package fanout implements the write-time worker that pushes a newly
// created post into the mailbox of every follower, bypassing fan-out
// entirely for accounts above the celebrity follower threshold.
package fanout

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"

	"feedcore/config"
	"feedcore/events"
	"feedcore/mailbox"
	"feedcore/model"
	"feedcore/natsclient"
	"feedcore/socialgraph"
)

const (
	streamName  = "FEEDCORE"
	durableName = "feedcore-fanout"
	queueGroup  = "fanout-workers"
	maxInFlight = 64
)

// Worker consumes new-posts events and fans each one out to the mailboxes
// of the author's followers, or skips fan-out for celebrity authors: above
// FanOutFollowerCap, readers pull that author's posts via discovery instead.
type Worker struct {
	nats   *natsclient.Client
	social socialgraph.Repository
	store  mailbox.Store
	cfg    *config.FeedConfig
}

// NewWorker builds a fan-out Worker.
func NewWorker(nc *natsclient.Client, social socialgraph.Repository, store mailbox.Store, cfg *config.FeedConfig) *Worker {
	return &Worker{nats: nc, social: social, store: store, cfg: cfg}
}

// Start registers the durable JetStream consumer and blocks until ctx is
// cancelled or subscription setup fails.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.nats.EnsureStream(streamName, []string{events.SubjectNewPost}); err != nil {
		log.Printf("[fanout] stream ensure: %v", err)
	}

	handler := func(msg *nats.Msg) {
		var evt events.NewPostEvent
		if err := natsclient.DecodeEvent(msg, &evt); err != nil {
			log.Printf("[fanout] failed to decode new-post event: %v", err)
			msg.Nak()
			return
		}

		if err := w.fanOut(ctx, evt); err != nil {
			log.Printf("[fanout] fan-out failed for post %s: %v", evt.PostID, err)
			msg.Nak()
			return
		}

		msg.Ack()
	}

	sub, err := w.nats.SubscribeDurable(events.SubjectNewPost, durableName, queueGroup, handler)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.SubjectNewPost, err)
	}

	log.Printf("[fanout] worker started, subscribed to %s", events.SubjectNewPost)

	<-ctx.Done()
	return sub.Unsubscribe()
}

// fanOut pushes a single post into its author's followers' mailboxes, or
// skips entirely for a celebrity author. The whole batch must succeed for
// the message to be acked — a partial failure is retried (at-least-once,
// idempotent: mailbox.Push is a ZADD upsert).
func (w *Worker) fanOut(ctx context.Context, evt events.NewPostEvent) error {
	ids, err := w.social.FollowerIDs(ctx, evt.UserID, w.cfg.FanOutFollowerCap)
	if err != nil {
		return fmt.Errorf("failed to resolve followers for %s: %w", evt.UserID, err)
	}

	if len(ids) >= w.cfg.FanOutFollowerCap {
		count, countErr := w.social.FollowerCount(ctx, evt.UserID)
		if countErr != nil {
			count = int64(len(ids))
		}
		log.Printf("[fanout] author %s has %d followers (>= cap %d), skipping fan-out", evt.UserID, count, w.cfg.FanOutFollowerCap)
		return nil
	}

	entry := model.MailboxEntry{
		PostID:    evt.PostID,
		AuthorID:  evt.UserID,
		CreatedAt: evt.CreatedAt,
	}

	return w.pushToAll(ctx, ids, entry)
}

// pushToAll pushes entry into each follower's mailbox with bounded
// parallelism: at most maxInFlight pushes run at once.
func (w *Worker) pushToAll(ctx context.Context, followers []model.UserID, entry model.MailboxEntry) error {
	sem := make(chan struct{}, maxInFlight)
	errCh := make(chan error, len(followers))
	var wg sync.WaitGroup

	for _, follower := range followers {
		follower := follower
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errCh <- w.store.Push(ctx, follower, entry)
		}()
	}

	wg.Wait()
	close(errCh)

	var firstErr error
	failed := 0
	for err := range errCh {
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("%d/%d mailbox pushes failed: %w", failed, len(followers), firstErr)
	}
	return nil
}
