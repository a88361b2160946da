package controlplane

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveAuthLoopbackBypass(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.RemoteAddr = "127.0.0.1:54321"

	scope, prefix := resolveAuth(r, AuthConfig{AllowLoopbackWithoutAuth: true})
	if scope != ScopeAdmin || prefix != "loopback" {
		t.Fatalf("got scope=%v prefix=%q", scope, prefix)
	}
}

func TestResolveAuthRejectsNonLoopbackWithoutBearer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.RemoteAddr = "203.0.113.5:1234"

	scope, prefix := resolveAuth(r, AuthConfig{AllowLoopbackWithoutAuth: true})
	if scope != ScopeNone || prefix != "" {
		t.Fatalf("got scope=%v prefix=%q", scope, prefix)
	}
}

func TestResolveAuthBearerTokenResolvesScope(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	r.Header.Set("Authorization", "Bearer admin-secret-token")

	scope, prefix := resolveAuth(r, AuthConfig{
		ResolveToken: func(token string) Scope {
			if token == "admin-secret-token" {
				return ScopeAdmin
			}
			return ScopeNone
		},
	})
	if scope != ScopeAdmin {
		t.Fatalf("expected admin scope, got %v", scope)
	}
	if prefix != "admin-se" {
		t.Fatalf("expected an 8-char token prefix, got %q", prefix)
	}
}

func TestResolveAuthUnrecognizedTokenIsScopeNone(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	r.Header.Set("Authorization", "Bearer bogus")

	scope, _ := resolveAuth(r, AuthConfig{ResolveToken: func(string) Scope { return ScopeNone }})
	if scope != ScopeNone {
		t.Fatalf("expected ScopeNone, got %v", scope)
	}
}

func TestResolveAuthMissingResolverDefaultsToNone(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	r.Header.Set("Authorization", "Bearer whatever")

	scope, prefix := resolveAuth(r, AuthConfig{})
	if scope != ScopeNone || prefix != "whatever" {
		t.Fatalf("got scope=%v prefix=%q", scope, prefix)
	}
}

func TestRemoteHostStripsPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	if got := remoteHost(r); got != "203.0.113.5" {
		t.Fatalf("got %q", got)
	}
}
