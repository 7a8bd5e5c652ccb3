package integrity

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Baseline is an ordered set of BaselineEntry values holding at most one entry per path.
type Baseline struct {
	entries []BaselineEntry
}

// NewBaseline validates and wraps the provided entries, preserving their order.
func NewBaseline(entries []BaselineEntry) (Baseline, error) {
	seenPaths := mapset.NewThreadUnsafeSetWithSize[string](len(entries))
	copiedEntries := make([]BaselineEntry, 0, len(entries))
	for _, entry := range entries {
		if !seenPaths.Add(entry.Path) {
			return Baseline{}, &DuplicatePathError{Path: entry.Path}
		}
		copiedEntries = append(copiedEntries, entry)
	}
	return Baseline{entries: copiedEntries}, nil
}

// Entries returns a copy of the entries in baseline order.
func (baseline Baseline) Entries() []BaselineEntry {
	copiedEntries := make([]BaselineEntry, len(baseline.entries))
	copy(copiedEntries, baseline.entries)
	return copiedEntries
}

// Len returns the number of tracked files.
func (baseline Baseline) Len() int {
	return len(baseline.entries)
}

// Lookup returns the entry tracking path.
func (baseline Baseline) Lookup(path string) (BaselineEntry, bool) {
	for _, entry := range baseline.entries {
		if entry.Path == path {
			return entry, true
		}
	}
	return BaselineEntry{}, false
}

// Paths returns the set of tracked paths.
func (baseline Baseline) Paths() mapset.Set[string] {
	trackedPaths := mapset.NewThreadUnsafeSetWithSize[string](len(baseline.entries))
	for _, entry := range baseline.entries {
		trackedPaths.Add(entry.Path)
	}
	return trackedPaths
}

func (baseline Baseline) upsert(entry BaselineEntry) Baseline {
	updatedEntries := baseline.Entries()
	for index := range updatedEntries {
		if updatedEntries[index].Path == entry.Path {
			updatedEntries[index] = entry
			return Baseline{entries: updatedEntries}
		}
	}
	return Baseline{entries: append(updatedEntries, entry)}
}

func (baseline Baseline) without(path string) Baseline {
	remainingEntries := make([]BaselineEntry, 0, len(baseline.entries))
	for _, entry := range baseline.entries {
		if entry.Path == path {
			continue
		}
		remainingEntries = append(remainingEntries, entry)
	}
	return Baseline{entries: remainingEntries}
}

func (baseline Baseline) withStateAt(indices []int, state FileState) Baseline {
	updatedEntries := baseline.Entries()
	for _, index := range indices {
		updatedEntries[index] = updatedEntries[index].withState(state)
	}
	return Baseline{entries: updatedEntries}
}
