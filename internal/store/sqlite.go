package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/temirov/fimon/internal/integrity"
	"github.com/temirov/fimon/internal/probe"
)

const (
	sqliteDriverNameConstant          = "sqlite3"
	sqliteDataSourceTemplate          = "file:%s?_txlock=immediate&mode=rwc"
	baselineSavedMarkerConstant       = "baseline_saved"
	databaseDirectoryPermissions      = 0o755
	sqliteDirectoryErrorTemplate      = "prepare database directory %s: %w"
	sqliteConnectErrorTemplate        = "connect to database %s: %w"
	sqlitePragmaErrorTemplate         = "set pragmas: %w"
	sqliteSchemaErrorTemplate         = "initialize schema: %w"
	sqliteQueryBaselineErrorTemplate  = "query baseline: %w"
	sqliteSaveBaselineErrorTemplate   = "save baseline: %w"
	sqliteQuerySnapshotErrorTemplate  = "query snapshot for %s: %w"
	sqliteSaveSnapshotErrorTemplate   = "save snapshot for %s: %w"
	sqliteDeleteSnapshotErrorTemplate = "delete snapshot for %s: %w"
)

const sqlitePragmas = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA synchronous=NORMAL;
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS baseline_entries (
    path TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    permissions TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    owner TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_baseline_entries_position ON baseline_entries(position);

CREATE TABLE IF NOT EXISTS snapshots (
    path TEXT PRIMARY KEY,
    content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const (
	selectBaselineMarkerQuery = `SELECT value FROM store_metadata WHERE key = ?`
	selectBaselineQuery       = `SELECT name, path, permissions, content_hash, owner FROM baseline_entries ORDER BY position`
	deleteBaselineQuery       = `DELETE FROM baseline_entries`
	insertBaselineQuery       = `INSERT INTO baseline_entries (path, position, name, permissions, content_hash, owner) VALUES (?, ?, ?, ?, ?, ?)`
	upsertBaselineMarkerQuery = `INSERT OR REPLACE INTO store_metadata (key, value) VALUES (?, ?)`
	selectSnapshotQuery       = `SELECT content FROM snapshots WHERE path = ?`
	upsertSnapshotQuery       = `INSERT OR REPLACE INTO snapshots (path, content) VALUES (?, ?)`
	deleteSnapshotQuery       = `DELETE FROM snapshots WHERE path = ?`
)

// SQLiteStore keeps the baseline and every snapshot in one SQLite database.
// It satisfies both the baseline and the snapshot store contracts.
type SQLiteStore struct {
	database *sqlx.DB
	path     string
}

// OpenSQLiteStore opens or creates the database at path and ensures its schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	databaseDirectory := filepath.Dir(path)
	if directoryError := os.MkdirAll(databaseDirectory, databaseDirectoryPermissions); directoryError != nil {
		return nil, fmt.Errorf(sqliteDirectoryErrorTemplate, databaseDirectory, directoryError)
	}

	database, connectError := sqlx.Connect(sqliteDriverNameConstant, fmt.Sprintf(sqliteDataSourceTemplate, path))
	if connectError != nil {
		return nil, fmt.Errorf(sqliteConnectErrorTemplate, path, connectError)
	}
	database.SetMaxOpenConns(1)

	if _, pragmaError := database.Exec(sqlitePragmas); pragmaError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(sqlitePragmaErrorTemplate, pragmaError)
	}
	if _, schemaError := database.Exec(sqliteSchema); schemaError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(sqliteSchemaErrorTemplate, schemaError)
	}

	return &SQLiteStore{database: database, path: path}, nil
}

// Path returns the database location.
func (store *SQLiteStore) Path() string {
	return store.path
}

// Close releases the database connection.
func (store *SQLiteStore) Close() error {
	if store.database == nil {
		return nil
	}
	return store.database.Close()
}

// LoadBaseline returns the last saved baseline, or ErrBaselineNotFound when none was ever saved.
func (store *SQLiteStore) LoadBaseline() (integrity.Baseline, error) {
	var marker string
	markerError := store.database.Get(&marker, selectBaselineMarkerQuery, baselineSavedMarkerConstant)
	if errors.Is(markerError, sql.ErrNoRows) {
		return integrity.Baseline{}, ErrBaselineNotFound
	}
	if markerError != nil {
		return integrity.Baseline{}, fmt.Errorf(sqliteQueryBaselineErrorTemplate, markerError)
	}

	var entries []integrity.BaselineEntry
	if selectError := store.database.Select(&entries, selectBaselineQuery); selectError != nil {
		return integrity.Baseline{}, fmt.Errorf(sqliteQueryBaselineErrorTemplate, selectError)
	}
	return integrity.NewBaseline(entries)
}

// SaveBaseline replaces the stored baseline in a single transaction.
func (store *SQLiteStore) SaveBaseline(baseline integrity.Baseline) (saveError error) {
	transaction, beginError := store.database.Beginx()
	if beginError != nil {
		return fmt.Errorf(sqliteSaveBaselineErrorTemplate, beginError)
	}
	defer func() {
		if saveError != nil {
			_ = transaction.Rollback()
		}
	}()

	if _, deleteError := transaction.Exec(deleteBaselineQuery); deleteError != nil {
		return fmt.Errorf(sqliteSaveBaselineErrorTemplate, deleteError)
	}
	for position, entry := range baseline.Entries() {
		if _, insertError := transaction.Exec(insertBaselineQuery, entry.Path, position, entry.Name, entry.Permissions, entry.ContentHash, entry.Owner); insertError != nil {
			return fmt.Errorf(sqliteSaveBaselineErrorTemplate, insertError)
		}
	}
	if _, markerError := transaction.Exec(upsertBaselineMarkerQuery, baselineSavedMarkerConstant, "true"); markerError != nil {
		return fmt.Errorf(sqliteSaveBaselineErrorTemplate, markerError)
	}
	if commitError := transaction.Commit(); commitError != nil {
		return fmt.Errorf(sqliteSaveBaselineErrorTemplate, commitError)
	}
	return nil
}

// LoadSnapshot returns the stored lines for path, or an empty sequence when none exist.
func (store *SQLiteStore) LoadSnapshot(path string) ([]string, error) {
	var content string
	queryError := store.database.Get(&content, selectSnapshotQuery, path)
	if errors.Is(queryError, sql.ErrNoRows) {
		return []string{}, nil
	}
	if queryError != nil {
		return nil, fmt.Errorf(sqliteQuerySnapshotErrorTemplate, path, queryError)
	}
	return probe.SplitLines(content), nil
}

// SaveSnapshot replaces the stored lines for path.
func (store *SQLiteStore) SaveSnapshot(path string, lines []string) error {
	if _, execError := store.database.Exec(upsertSnapshotQuery, path, probe.JoinLines(lines)); execError != nil {
		return fmt.Errorf(sqliteSaveSnapshotErrorTemplate, path, execError)
	}
	return nil
}

// DeleteSnapshot removes the stored lines for path. Removing an absent snapshot succeeds.
func (store *SQLiteStore) DeleteSnapshot(path string) error {
	if _, execError := store.database.Exec(deleteSnapshotQuery, path); execError != nil {
		return fmt.Errorf(sqliteDeleteSnapshotErrorTemplate, path, execError)
	}
	return nil
}
