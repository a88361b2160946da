package sessionstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

const maxIdentitySlugLength = 200

// SessionIDForIdentity deterministically maps a channel identity to a
// sessionId: `<prefix>:<channel>:<workspace|global>:<best-id>`. If the
// joined string exceeds maxIdentitySlugLength it collapses to
// `<prefix>:<channel>:<sha256-prefix20>`.
func SessionIDForIdentity(prefix string, origin protocol.Origin) string {
	workspace := "global"
	if origin.WorkspaceID != "" {
		workspace = origin.WorkspaceID
	}

	bestID := bestIdentityID(origin)
	joined := fmt.Sprintf("%s:%s:%s:%s", prefix, origin.Channel, workspace, bestID)
	if len(joined) <= maxIdentitySlugLength {
		return joined
	}

	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%s:%s:%s", prefix, origin.Channel, hex.EncodeToString(sum[:])[:20])
}

// bestIdentityID picks the most specific identity component available,
// preferring thread over chat over user over account.
func bestIdentityID(origin protocol.Origin) string {
	switch {
	case origin.ThreadID != "":
		return origin.ThreadID
	case origin.ChatID != "":
		return origin.ChatID
	case origin.UserID != "":
		return origin.UserID
	case origin.AccountID != "":
		return origin.AccountID
	default:
		return "anon"
	}
}

// RenameSession moves a session record from oldID to newID under both
// locks, using the safer move-to-temp/trash ordering: the source is
// first moved aside, the target (if overwrite is set and it exists) is
// moved to a trash path, the source is moved onto the target name, and
// finally the trashed target is removed. If a step fails, the data stays
// at its temp or trash path instead of being deleted.
func (s *Store) RenameSession(oldID, newID string, overwrite bool) error {
	if err := validateSessionID(oldID); err != nil {
		return err
	}
	if err := validateSessionID(newID); err != nil {
		return err
	}

	first, second := sortedLockPaths(s.lockPath(oldID), s.lockPath(newID))
	return withLock(first, func() error {
		return withLock(second, func() error {
			return s.renameLocked(oldID, newID, overwrite)
		})
	})
}

func (s *Store) renameLocked(oldID, newID string, overwrite bool) error {
	if _, err := safeStat(s.fullLogPath(oldID)); err != nil {
		return ErrNotFound
	}

	targetExists := false
	if _, err := safeStat(s.fullLogPath(newID)); err == nil {
		targetExists = true
	}
	if targetExists && !overwrite {
		return fmt.Errorf("already_exists: session %s", newID)
	}

	trashSuffix := ".trash"
	tmpSuffix := ".renaming"
	if err := renameIfExists(s.fullLogPath(oldID), s.fullLogPath(oldID)+tmpSuffix); err != nil {
		return err
	}
	if err := renameIfExists(s.transcriptPath(oldID), s.transcriptPath(oldID)+tmpSuffix); err != nil {
		return err
	}

	if targetExists {
		if err := renameIfExists(s.fullLogPath(newID), s.fullLogPath(newID)+trashSuffix); err != nil {
			return err
		}
		if err := renameIfExists(s.transcriptPath(newID), s.transcriptPath(newID)+trashSuffix); err != nil {
			return err
		}
	}

	if err := renameIfExists(s.fullLogPath(oldID)+tmpSuffix, s.fullLogPath(newID)); err != nil {
		return err
	}
	if err := renameIfExists(s.transcriptPath(oldID)+tmpSuffix, s.transcriptPath(newID)); err != nil {
		return err
	}

	if targetExists {
		_ = removeIfExists(s.fullLogPath(newID) + trashSuffix)
		_ = removeIfExists(s.transcriptPath(newID) + trashSuffix)
	}

	return withLock(s.indexLockPath(), func() error {
		entries := s.readAllIndexEntries()
		for i, e := range entries {
			if e.SessionID == oldID {
				entries[i].SessionID = newID
				entries[i].TranscriptFile = encodeSessionID(newID) + ".jsonl"
				entries[i].FullFile = encodeSessionID(newID) + ".full.jsonl"
			}
		}
		filtered := entries[:0]
		seen := false
		for _, e := range entries {
			if e.SessionID == newID {
				if seen {
					continue
				}
				seen = true
			}
			filtered = append(filtered, e)
		}
		return s.writeIndex(filtered)
	})
}

func safeStat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// renameIfExists renames src to dst, treating a missing src as a no-op.
func renameIfExists(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("io_error: rename %s to %s: %w", src, dst, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
