package integrity

import (
	"github.com/temirov/fimon/internal/probe"
)

// Prober reads the integrity-relevant state of a single file.
type Prober interface {
	Probe(path string) (probe.Result, error)
	ReadLines(path string) ([]string, error)
}

// FileWalker lists every file under a root in a deterministic order.
type FileWalker interface {
	Walk(root string) ([]string, error)
}

// SnapshotStore retains the accepted line content of tracked files.
// LoadSnapshot returns an empty sequence when no snapshot exists.
type SnapshotStore interface {
	LoadSnapshot(path string) ([]string, error)
	SaveSnapshot(path string, lines []string) error
	DeleteSnapshot(path string) error
}

// BaselineStore persists the accepted baseline.
type BaselineStore interface {
	LoadBaseline() (Baseline, error)
	SaveBaseline(baseline Baseline) error
}
