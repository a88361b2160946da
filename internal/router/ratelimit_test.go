package router

import (
	"context"
	"testing"
)

func TestProviderLimiterDefaultsToUnlimited(t *testing.T) {
	l := newProviderLimiter(0, 0)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := l.wait(ctx, "anthropic"); err != nil {
			t.Fatalf("unexpected error on unlimited wait: %v", err)
		}
	}
}

func TestProviderLimiterIndependentPerProvider(t *testing.T) {
	l := newProviderLimiter(1, 1)
	ctx := context.Background()

	if err := l.wait(ctx, "anthropic"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A different provider should have its own fresh bucket and not be
	// throttled by anthropic's consumed token.
	if err := l.wait(ctx, "openai"); err != nil {
		t.Fatalf("unexpected error for independent provider: %v", err)
	}
}

func TestProviderLimiterRespectsCancellation(t *testing.T) {
	l := newProviderLimiter(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.wait(ctx, "anthropic"); err != nil {
		t.Fatalf("unexpected error on first wait: %v", err)
	}
	cancel()
	if err := l.wait(ctx, "anthropic"); err == nil {
		t.Fatalf("expected error once burst exhausted and context cancelled")
	}
}
