// Package dbarchive provides an optional Postgres-backed archive of
// session transcripts, run alongside the file-backed Durable Session
// Store rather than in place of it: the filesystem remains the source
// of truth, Postgres exists for durable off-host retention and SQL
// queries over closed sessions.
package dbarchive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

// RequiredSchemaVersion is the schema_migrations version this binary expects.
const RequiredSchemaVersion uint = 1

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER NOT NULL,
	dirty   BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS session_archive (
	session_id       TEXT PRIMARY KEY,
	revision         INTEGER NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	last_activity_at TIMESTAMPTZ NOT NULL,
	history_json     JSONB NOT NULL,
	archived_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Archive wraps a database/sql handle over pgx's stdlib driver.
type Archive struct {
	db *sql.DB
}

// Open connects to Postgres via the pgx stdlib driver and ensures the
// archive schema exists.
func Open(dsn string) (*Archive, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("dbarchive: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbarchive: ping: %w", err)
	}
	if _, err := db.Exec(createSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbarchive: create schema: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO schema_migrations (version, dirty)
		SELECT $1, false WHERE NOT EXISTS (SELECT 1 FROM schema_migrations)`, RequiredSchemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbarchive: seed schema_migrations: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the underlying connection pool.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SchemaStatus mirrors the upstream gateway's compatibility check shape.
type SchemaStatus struct {
	CurrentVersion  uint
	RequiredVersion uint
	Dirty           bool
	Compatible      bool
}

// CheckSchema reports whether the connected database's schema matches
// what this binary expects.
func (a *Archive) CheckSchema(ctx context.Context) (*SchemaStatus, error) {
	var version uint
	var dirty bool
	err := a.db.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &SchemaStatus{RequiredVersion: RequiredSchemaVersion}, nil
		}
		return nil, fmt.Errorf("dbarchive: check schema: %w", err)
	}
	return &SchemaStatus{
		CurrentVersion:  version,
		RequiredVersion: RequiredSchemaVersion,
		Dirty:           dirty,
		Compatible:      !dirty && version == RequiredSchemaVersion,
	}, nil
}

// Upsert archives a session record, replacing any prior archive entry
// with the same session ID.
func (a *Archive) Upsert(ctx context.Context, rec protocol.SessionRecord, historyJSON []byte) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO session_archive (session_id, revision, created_at, last_activity_at, history_json)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			revision = EXCLUDED.revision,
			last_activity_at = EXCLUDED.last_activity_at,
			history_json = EXCLUDED.history_json,
			archived_at = now()
	`, rec.SessionID, rec.Revision, rec.UpdatedAt, historyJSON)
	if err != nil {
		return fmt.Errorf("dbarchive: upsert %s: %w", rec.SessionID, err)
	}
	return nil
}
