package media

import (
	"testing"
	"time"
)

func TestSignedURLVerifies(t *testing.T) {
	p := NewPresigner("https://media.example.com", "test-secret", time.Hour)
	now := time.Unix(1_700_000_000, 0)

	url := p.SignedURL("posts/abc.jpg", now)
	if url == "" {
		t.Fatal("expected non-empty signed URL")
	}

	expiry := now.Add(time.Hour).Unix()
	sig := p.sign("posts/abc.jpg", expiry)

	if !p.Verify("posts/abc.jpg", expiry, sig, now) {
		t.Fatal("expected signature to verify within TTL")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	p := NewPresigner("https://media.example.com", "test-secret", time.Hour)
	now := time.Unix(1_700_000_000, 0)
	expiry := now.Unix() - 1

	sig := p.sign("posts/abc.jpg", expiry)
	if p.Verify("posts/abc.jpg", expiry, sig, now) {
		t.Fatal("expected expired URL to fail verification")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	p := NewPresigner("https://media.example.com", "test-secret", time.Hour)
	now := time.Unix(1_700_000_000, 0)
	expiry := now.Add(time.Hour).Unix()

	if p.Verify("posts/abc.jpg", expiry, "not-a-real-signature", now) {
		t.Fatal("expected tampered signature to fail verification")
	}
}

func TestEmptyMediaKeyYieldsEmptyURL(t *testing.T) {
	p := NewPresigner("https://media.example.com", "test-secret", time.Hour)
	if got := p.SignedURL("", time.Now()); got != "" {
		t.Fatalf("expected empty URL for empty media key, got %q", got)
	}
}
