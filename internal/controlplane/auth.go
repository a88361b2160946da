package controlplane

import (
	"net"
	"net/http"
	"strings"
)

// Scope is the access scope granted by a resolved bearer token.
type Scope string

const (
	ScopeNone  Scope = ""
	ScopeRead  Scope = "read"
	ScopeAdmin Scope = "admin"
)

// TokenResolver maps a bearer token to its granted scope, or ScopeNone
// if unrecognized.
type TokenResolver func(token string) Scope

// AuthConfig configures request authentication/authorization.
type AuthConfig struct {
	AllowLoopbackWithoutAuth bool
	ResolveToken             TokenResolver
}

// resolveAuth implements the three-step auth resolution: loopback
// bypass, bearer token scope lookup, else unauthenticated.
func resolveAuth(r *http.Request, cfg AuthConfig) (scope Scope, tokenPrefix string) {
	if cfg.AllowLoopbackWithoutAuth && isLoopback(r) {
		return ScopeAdmin, "loopback"
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ScopeNone, ""
	}
	token := strings.TrimPrefix(auth, prefix)
	tokenPrefix = token
	if len(tokenPrefix) > 8 {
		tokenPrefix = tokenPrefix[:8]
	}
	if cfg.ResolveToken == nil {
		return ScopeNone, tokenPrefix
	}
	return cfg.ResolveToken(token), tokenPrefix
}

func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
