// Package modules implements the gateway's Optional Modules: preflight-
// only capabilities that degrade the gateway instead of aborting
// startup when they fail to initialize.
package modules

import (
	"context"
	"fmt"
)

// Module is satisfied by every optional capability the Gateway Runtime
// Composer can wire in.
type Module interface {
	Name() string
	Preflight(ctx context.Context) error
}

// MemoryModule is a stub for a pluggable long-term memory backend; a
// concrete backend is an external collaborator, this module only
// verifies the configured store is reachable at startup.
type MemoryModule struct {
	Ping func(ctx context.Context) error
}

func (m *MemoryModule) Name() string { return "memory" }

func (m *MemoryModule) Preflight(ctx context.Context) error {
	if m.Ping == nil {
		return nil
	}
	if err := m.Ping(ctx); err != nil {
		return fmt.Errorf("memory module: %w", err)
	}
	return nil
}

// GraphModule is a stub for a pluggable knowledge-graph backend.
type GraphModule struct {
	Ping func(ctx context.Context) error
}

func (g *GraphModule) Name() string { return "graph" }

func (g *GraphModule) Preflight(ctx context.Context) error {
	if g.Ping == nil {
		return nil
	}
	if err := g.Ping(ctx); err != nil {
		return fmt.Errorf("graph module: %w", err)
	}
	return nil
}

// BackupModule is a stub exposing /backup/create and /backup/restore
// support; a concrete target (object storage, local archive) is wired
// through Create/Restore by the caller.
type BackupModule struct {
	Create  func(ctx context.Context) (string, error)
	Restore func(ctx context.Context, archivePath string) error
}

func (b *BackupModule) Name() string { return "backup" }

func (b *BackupModule) Preflight(ctx context.Context) error {
	return nil
}
