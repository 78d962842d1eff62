package candidate

import (
	"testing"
	"time"

	"feedcore/model"
)

func TestMergePrefersSocialOnCollision(t *testing.T) {
	social := []model.MailboxEntry{
		{PostID: "p1", AuthorID: "a1", CreatedAt: time.Now()},
	}
	discovery := []model.PostID{"p1", "p2"}

	got := merge(social, discovery, 10)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].PostID != "p1" || got[0].Source != model.SourceSocial {
		t.Fatalf("expected p1 to win as social, got %+v", got[0])
	}
	if got[1].PostID != "p2" || got[1].Source != model.SourceDiscovery {
		t.Fatalf("expected p2 from discovery, got %+v", got[1])
	}
}

func TestMergeTruncatesAtMax(t *testing.T) {
	social := []model.MailboxEntry{
		{PostID: "p1", AuthorID: "a1", CreatedAt: time.Now()},
		{PostID: "p2", AuthorID: "a1", CreatedAt: time.Now()},
	}
	discovery := []model.PostID{"p3", "p4"}

	got := merge(social, discovery, 3)

	if len(got) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(got))
	}
}

func TestMergeDedupesWithinSameSource(t *testing.T) {
	social := []model.MailboxEntry{
		{PostID: "p1", AuthorID: "a1", CreatedAt: time.Now()},
		{PostID: "p1", AuthorID: "a1", CreatedAt: time.Now()},
	}

	got := merge(social, nil, 10)

	if len(got) != 1 {
		t.Fatalf("expected dedupe within social list, got %d", len(got))
	}
}
