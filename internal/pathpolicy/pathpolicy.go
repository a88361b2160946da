// Package pathpolicy implements membership checks for tool file-path
// arguments against a mutable set of allowed workspace roots.
package pathpolicy

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Policy guards file-path tool arguments against escaping the
// configured workspace roots.
type Policy struct {
	mu    sync.RWMutex
	roots []string
}

// New creates a Policy rooted at the given initial workspace roots.
func New(roots ...string) *Policy {
	p := &Policy{}
	for _, r := range roots {
		p.AddRoot(r)
	}
	return p
}

// AddRoot registers an additional allowed root, resolved to an absolute
// cleaned path.
func (p *Policy) AddRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("pathpolicy: resolve root %s: %w", root, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roots = append(p.roots, filepath.Clean(abs))
	return nil
}

// RemoveRoot unregisters a previously added root.
func (p *Policy) RemoveRoot(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	abs = filepath.Clean(abs)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, r := range p.roots {
		if r == abs {
			p.roots = append(p.roots[:i], p.roots[i+1:]...)
			return
		}
	}
}

// Allow reports whether candidate resolves to a path inside one of the
// policy's roots.
func (p *Policy) Allow(candidate string) bool {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, root := range p.roots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Resolve validates candidate against the policy and returns its
// absolute path, or an error if it escapes every root.
func (p *Policy) Resolve(candidate string) (string, error) {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("pathpolicy: resolve %s: %w", candidate, err)
	}
	abs = filepath.Clean(abs)
	if !p.Allow(abs) {
		return "", fmt.Errorf("pathpolicy: %s escapes all allowed roots", candidate)
	}
	return abs, nil
}
