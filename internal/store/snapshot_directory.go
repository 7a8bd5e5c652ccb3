package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/temirov/fimon/internal/probe"
)

const (
	snapshotSuffixConstant         = ".snapshot"
	snapshotKeyDigestLength        = 16
	snapshotFilePermissions        = 0o600
	snapshotDirectoryPermissions   = 0o700
	snapshotKeyTemplate            = "%s-%s%s"
	snapshotReadErrorTemplate      = "read snapshot for %s: %w"
	snapshotWriteErrorTemplate     = "write snapshot for %s: %w"
	snapshotDeleteErrorTemplate    = "delete snapshot for %s: %w"
	snapshotDirectoryErrorTemplate = "prepare snapshot directory %s: %w"
)

// DirectorySnapshotStore keeps one file per snapshot inside a directory.
type DirectorySnapshotStore struct {
	directory string
}

// NewDirectorySnapshotStore constructs a store rooted at directory.
func NewDirectorySnapshotStore(directory string) *DirectorySnapshotStore {
	return &DirectorySnapshotStore{directory: directory}
}

// Directory returns the snapshot directory.
func (store *DirectorySnapshotStore) Directory() string {
	return store.directory
}

// SnapshotPath returns the file holding the snapshot of path. The name keeps the
// tracked file's base name for readability and adds a digest of the full path so
// equally named files in different directories do not collide.
func (store *DirectorySnapshotStore) SnapshotPath(path string) string {
	pathDigest := sha256.Sum256([]byte(path))
	key := fmt.Sprintf(snapshotKeyTemplate, filepath.Base(path), hex.EncodeToString(pathDigest[:])[:snapshotKeyDigestLength], snapshotSuffixConstant)
	return filepath.Join(store.directory, key)
}

// LoadSnapshot returns the stored lines for path, or an empty sequence when none exist.
func (store *DirectorySnapshotStore) LoadSnapshot(path string) ([]string, error) {
	content, readError := os.ReadFile(store.SnapshotPath(path))
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf(snapshotReadErrorTemplate, path, readError)
	}
	return probe.SplitLines(string(content)), nil
}

// SaveSnapshot replaces the stored lines for path.
func (store *DirectorySnapshotStore) SaveSnapshot(path string, lines []string) error {
	if directoryError := os.MkdirAll(store.directory, snapshotDirectoryPermissions); directoryError != nil {
		return fmt.Errorf(snapshotDirectoryErrorTemplate, store.directory, directoryError)
	}
	if writeError := writeFileAtomic(store.SnapshotPath(path), []byte(probe.JoinLines(lines)), snapshotFilePermissions); writeError != nil {
		return fmt.Errorf(snapshotWriteErrorTemplate, path, writeError)
	}
	return nil
}

// DeleteSnapshot removes the stored lines for path. Removing an absent snapshot succeeds.
func (store *DirectorySnapshotStore) DeleteSnapshot(path string) error {
	removeError := os.Remove(store.SnapshotPath(path))
	if removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
		return fmt.Errorf(snapshotDeleteErrorTemplate, path, removeError)
	}
	return nil
}
