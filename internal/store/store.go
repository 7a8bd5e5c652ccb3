package store

import (
	"fmt"
	"strings"

	"github.com/temirov/fimon/internal/integrity"
)

// Backend names a persistence backend.
type Backend string

// Supported backends.
const (
	BackendCSV    Backend = "csv"
	BackendSQLite Backend = "sqlite"
)

const unsupportedBackendTemplate = "unsupported store backend %q"

// ParseBackend converts a configuration value into a Backend. Empty selects BackendCSV.
func ParseBackend(value string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(value))) {
	case "", BackendCSV:
		return BackendCSV, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf(unsupportedBackendTemplate, value)
	}
}

// Options locates the files used by each backend.
type Options struct {
	Backend           Backend
	BaselineFile      string
	SnapshotDirectory string
	DatabaseFile      string
}

// Stores pairs the baseline and snapshot stores of one backend.
type Stores struct {
	Baseline  integrity.BaselineStore
	Snapshots integrity.SnapshotStore
	// Locations lists every path the backend writes, so discovery can exclude them.
	Locations []string
	closer    func() error
}

// Close releases resources held by the backend.
func (stores Stores) Close() error {
	if stores.closer == nil {
		return nil
	}
	return stores.closer()
}

// Open constructs the stores selected by options.
func Open(options Options) (Stores, error) {
	switch options.Backend {
	case BackendSQLite:
		sqliteStore, openError := OpenSQLiteStore(options.DatabaseFile)
		if openError != nil {
			return Stores{}, openError
		}
		return Stores{
			Baseline:  sqliteStore,
			Snapshots: sqliteStore,
			Locations: []string{options.DatabaseFile, options.DatabaseFile + "-wal", options.DatabaseFile + "-shm"},
			closer:    sqliteStore.Close,
		}, nil
	case BackendCSV, "":
		return Stores{
			Baseline:  NewCSVBaselineStore(options.BaselineFile),
			Snapshots: NewDirectorySnapshotStore(options.SnapshotDirectory),
			Locations: []string{options.BaselineFile, options.SnapshotDirectory},
		}, nil
	default:
		return Stores{}, fmt.Errorf(unsupportedBackendTemplate, options.Backend)
	}
}
