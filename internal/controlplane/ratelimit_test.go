package controlplane

import "testing"

func TestMutationRateLimiterAllowsUpToLimit(t *testing.T) {
	l := newMutationRateLimiter(3)
	for i := 0; i < 3; i++ {
		if !l.Allow("key-a") {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	if l.Allow("key-a") {
		t.Fatalf("expected the 4th request within the window to be rejected")
	}
}

func TestMutationRateLimiterKeysAreIndependent(t *testing.T) {
	l := newMutationRateLimiter(1)
	if !l.Allow("key-a") {
		t.Fatalf("expected key-a's first request to be allowed")
	}
	if !l.Allow("key-b") {
		t.Fatalf("expected key-b's first request to be allowed independently of key-a")
	}
	if l.Allow("key-a") {
		t.Fatalf("expected key-a's second request to be rejected")
	}
}

func TestNewMutationRateLimiterDefaultsNonPositiveLimit(t *testing.T) {
	l := newMutationRateLimiter(0)
	if l.limit != defaultRateLimit {
		t.Fatalf("expected default limit %d, got %d", defaultRateLimit, l.limit)
	}
}
