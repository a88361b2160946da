package router

import (
	"errors"
	"testing"

	"github.com/nextlevelbuilder/drost/internal/providers"
)

func TestClassifyAuthError(t *testing.T) {
	p := DefaultPolicy()
	class, cooldown, retryable := classify(&providers.HTTPError{Status: 401}, p)
	if class != ClassAuth || !retryable || cooldown != p.AuthCooldownSeconds {
		t.Fatalf("got class=%s cooldown=%d retryable=%v", class, cooldown, retryable)
	}
}

func TestClassifyRateLimit(t *testing.T) {
	p := DefaultPolicy()
	class, cooldown, retryable := classify(&providers.HTTPError{Status: 429}, p)
	if class != ClassRateLimit || !retryable || cooldown != p.RateLimitCooldownSeconds {
		t.Fatalf("got class=%s cooldown=%d retryable=%v", class, cooldown, retryable)
	}
}

func TestClassifyFatalRequest(t *testing.T) {
	p := DefaultPolicy()
	class, cooldown, retryable := classify(&providers.HTTPError{Status: 400}, p)
	if class != ClassFatalRequest || retryable || cooldown != 0 {
		t.Fatalf("expected fatal non-retryable, got class=%s cooldown=%d retryable=%v", class, cooldown, retryable)
	}
}

func TestClassifyServerError(t *testing.T) {
	p := DefaultPolicy()
	class, cooldown, retryable := classify(&providers.HTTPError{Status: 503}, p)
	if class != ClassServerError || !retryable || cooldown != p.ServerErrorCooldownSeconds {
		t.Fatalf("got class=%s cooldown=%d retryable=%v", class, cooldown, retryable)
	}
}

func TestClassifyTimeoutFromMessage(t *testing.T) {
	p := DefaultPolicy()
	class, _, retryable := classify(errors.New("request timeout after 30s"), p)
	if class != ClassTimeout || !retryable {
		t.Fatalf("expected timeout classification, got class=%s retryable=%v", class, retryable)
	}
}

func TestClassifyUnknownErrorDefaultsToServerError(t *testing.T) {
	p := DefaultPolicy()
	class, _, retryable := classify(errors.New("something unexpected happened"), p)
	if class != ClassServerError || !retryable {
		t.Fatalf("expected default server_error classification, got class=%s retryable=%v", class, retryable)
	}
}
