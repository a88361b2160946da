// Package authstore implements the Auth Store & Env Fallback: a
// persisted map of credential profiles with bearer-token resolution
// that falls back to well-known environment variables and, before that,
// to .env/.env.local files loaded without overwriting the real process
// environment.
package authstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// CredentialType enumerates the supported credential shapes.
type CredentialType string

const (
	CredentialAPIKey CredentialType = "api_key"
	CredentialToken  CredentialType = "token"
	CredentialOAuth  CredentialType = "oauth"
)

// Credential is the secret payload of an AuthProfile.
type Credential struct {
	Type         CredentialType `json:"type"`
	Value        string         `json:"value,omitempty"`
	AccessToken  string         `json:"accessToken,omitempty"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	AccountID    string         `json:"accountId,omitempty"`
	ExpiresAt    *time.Time     `json:"expiresAt,omitempty"`
}

// Profile is one stored auth profile.
type Profile struct {
	ID         string     `json:"id"`
	Provider   string     `json:"provider"`
	Credential Credential `json:"credential"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Store is a JSON-file-backed map of profileId to AuthProfile, with a
// best-effort env/.env fallback for resolving bearer tokens.
type Store struct {
	path string
	root string

	mu       sync.RWMutex
	profiles map[string]Profile

	envOnce sync.Once
}

// Open loads the auth store file at path; a missing or empty file yields
// an empty store, and the file is first written by Set. root is the
// configured project root consulted for .env/.env.local alongside the
// current working directory.
func Open(path, root string) (*Store, error) {
	s := &Store{path: path, root: root, profiles: make(map[string]Profile)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("io_error: read auth store: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.profiles); err != nil {
		return nil, fmt.Errorf("io_error: parse auth store: %w", err)
	}
	return s, nil
}

// Set stores or replaces a profile and persists the store.
func (s *Store) Set(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		if existing, ok := s.profiles[p.ID]; ok {
			p.CreatedAt = existing.CreatedAt
		} else {
			p.CreatedAt = time.Now().UTC()
		}
	}
	p.UpdatedAt = time.Now().UTC()
	s.profiles[p.ID] = p
	return s.persistLocked()
}

// Get returns the profile for id, if present.
func (s *Store) Get(id string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	return p, ok
}

// List returns all stored profiles.
func (s *Store) List() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("io_error: marshal auth store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("io_error: create auth store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("io_error: write auth store: %w", err)
	}
	return nil
}

// ResolveBearerToken returns the bearer token for profile id: the
// credential's Value or AccessToken if a profile exists, otherwise an
// env-fallback lookup keyed by provider kind, or "" if nothing resolves.
func (s *Store) ResolveBearerToken(id string) string {
	s.mu.RLock()
	p, ok := s.profiles[id]
	s.mu.RUnlock()

	if ok {
		if p.Credential.AccessToken != "" {
			return p.Credential.AccessToken
		}
		if p.Credential.Value != "" {
			return p.Credential.Value
		}
	}

	s.loadDotEnvOnce()
	provider := id
	if ok {
		provider = p.Provider
	}
	return envFallbackToken(provider)
}

// envFallbackToken recognizes well-known provider kinds by substring and
// returns the first set recognized environment variable.
func envFallbackToken(providerOrID string) string {
	lower := strings.ToLower(providerOrID)
	switch {
	case strings.Contains(lower, "anthropic"):
		if v := os.Getenv("ANTHROPIC_SETUP_TOKEN"); v != "" {
			return v
		}
		return os.Getenv("ANTHROPIC_API_KEY")
	case strings.Contains(lower, "xai") || strings.Contains(lower, "grok"):
		return os.Getenv("XAI_API_KEY")
	case strings.Contains(lower, "openai"):
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// loadDotEnvOnce loads .env and .env.local from the working directory
// and configured project root, never overwriting a variable already set
// in the process environment. Runs at most once per Store lifetime.
func (s *Store) loadDotEnvOnce() {
	s.envOnce.Do(func() {
		cwd, err := os.Getwd()
		if err == nil {
			loadDotEnvFile(filepath.Join(cwd, ".env"))
			loadDotEnvFile(filepath.Join(cwd, ".env.local"))
		}
		if s.root != "" && s.root != cwd {
			loadDotEnvFile(filepath.Join(s.root, ".env"))
			loadDotEnvFile(filepath.Join(s.root, ".env.local"))
		}
	})
}

// loadDotEnvFile loads a dotenv file's KEY=VALUE pairs into the process
// environment, skipping any key already set.
func loadDotEnvFile(path string) {
	values, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for k, v := range values {
		if _, exists := os.LookupEnv(k); !exists {
			os.Setenv(k, v)
		}
	}
}
