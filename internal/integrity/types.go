package integrity

import (
	"time"
)

// ChangeKind classifies a detected drift from the baseline.
type ChangeKind string

// Supported change kinds.
const (
	KindContentModified          ChangeKind = "content-modified"
	KindPermissionOrOwnerChanged ChangeKind = "permission-or-owner-changed"
	KindDeleted                  ChangeKind = "deleted"
	KindAdded                    ChangeKind = "added"
)

// IsModification reports whether the kind describes drift of a file that still exists in the baseline.
func (kind ChangeKind) IsModification() bool {
	return kind == KindContentModified || kind == KindPermissionOrOwnerChanged
}

// FileState is the comparable triple recorded for a tracked file.
type FileState struct {
	Permissions string `json:"permissions" yaml:"permissions"`
	ContentHash string `json:"content_hash" yaml:"content_hash"`
	Owner       string `json:"owner" yaml:"owner"`
}

// BaselineEntry is the accepted state of one tracked file. Path is the identity key.
type BaselineEntry struct {
	Name        string `json:"name" yaml:"name" db:"name"`
	Path        string `json:"path" yaml:"path" db:"path"`
	Permissions string `json:"permissions" yaml:"permissions" db:"permissions"`
	ContentHash string `json:"content_hash" yaml:"content_hash" db:"content_hash"`
	Owner       string `json:"owner" yaml:"owner" db:"owner"`
}

// State returns the comparable portion of the entry.
func (entry BaselineEntry) State() FileState {
	return FileState{
		Permissions: entry.Permissions,
		ContentHash: entry.ContentHash,
		Owner:       entry.Owner,
	}
}

func (entry BaselineEntry) withState(state FileState) BaselineEntry {
	updated := entry
	updated.Permissions = state.Permissions
	updated.ContentHash = state.ContentHash
	updated.Owner = state.Owner
	return updated
}

// ChangeEvent describes a single drift detected by Scanner.
type ChangeEvent struct {
	Path             string       `json:"path" yaml:"path"`
	Name             string       `json:"name" yaml:"name"`
	Kind             ChangeKind   `json:"kind" yaml:"kind"`
	Expected         *FileState   `json:"expected" yaml:"expected"`
	Current          *FileState   `json:"current" yaml:"current"`
	ContentDiff      []ChangeLine `json:"content_diff,omitempty" yaml:"content_diff,omitempty"`
	DetectedAt       time.Time    `json:"detected_at" yaml:"detected_at"`
	SnapshotCaptured bool         `json:"-" yaml:"-"`
	Fault            error        `json:"-" yaml:"-"`
}

// FileFault records a file the scanner could not evaluate.
type FileFault struct {
	Path string
	Err  error
}

// ScanResult is the outcome of one Scanner.Scan call.
type ScanResult struct {
	ScanID          string
	Root            string
	StartedAt       time.Time
	TrackedCount    int
	DiscoveredCount int
	Events          []ChangeEvent
	Unevaluated     []FileFault
}

// HasChanges reports whether at least one change event was produced.
func (result ScanResult) HasChanges() bool {
	return len(result.Events) > 0
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
