package store_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/fimon/internal/integrity"
	"github.com/temirov/fimon/internal/store"
)

type snapshotStoreFactory func(testInstance *testing.T) integrity.SnapshotStore

func snapshotStoreFactories() map[string]snapshotStoreFactory {
	return map[string]snapshotStoreFactory{
		"directory": func(testInstance *testing.T) integrity.SnapshotStore {
			return store.NewDirectorySnapshotStore(filepath.Join(testInstance.TempDir(), "snapshots"))
		},
		"sqlite": func(testInstance *testing.T) integrity.SnapshotStore {
			sqliteStore, openError := store.OpenSQLiteStore(filepath.Join(testInstance.TempDir(), "fimon.db"))
			require.NoError(testInstance, openError)
			testInstance.Cleanup(func() { require.NoError(testInstance, sqliteStore.Close()) })
			return sqliteStore
		},
	}
}

func TestSnapshotStoreBehaviors(testInstance *testing.T) {
	testCases := []struct {
		name  string
		lines []string
	}{
		{name: "text", lines: []string{"first", "", "third"}},
		{name: "single_blank_line", lines: []string{""}},
		{name: "empty", lines: []string{}},
	}

	for backendName, factory := range snapshotStoreFactories() {
		for testCaseIndex, testCase := range testCases {
			testInstance.Run(fmt.Sprintf("%s_%d_%s", backendName, testCaseIndex, testCase.name), func(testInstance *testing.T) {
				snapshotStore := factory(testInstance)
				trackedPath := "/data/config/app.conf"

				missing, missingError := snapshotStore.LoadSnapshot(trackedPath)
				require.NoError(testInstance, missingError)
				require.Empty(testInstance, missing)
				require.NotNil(testInstance, missing)

				require.NoError(testInstance, snapshotStore.SaveSnapshot(trackedPath, testCase.lines))
				loaded, loadError := snapshotStore.LoadSnapshot(trackedPath)
				require.NoError(testInstance, loadError)
				require.Equal(testInstance, testCase.lines, loaded)

				require.NoError(testInstance, snapshotStore.DeleteSnapshot(trackedPath))
				require.NoError(testInstance, snapshotStore.DeleteSnapshot(trackedPath))
				afterDelete, afterDeleteError := snapshotStore.LoadSnapshot(trackedPath)
				require.NoError(testInstance, afterDeleteError)
				require.Empty(testInstance, afterDelete)
			})
		}
	}
}

func TestDirectorySnapshotStoreSeparatesEqualBaseNames(testInstance *testing.T) {
	snapshotStore := store.NewDirectorySnapshotStore(testInstance.TempDir())
	firstPath := "/etc/app/config.yaml"
	secondPath := "/srv/app/config.yaml"

	require.NotEqual(testInstance, snapshotStore.SnapshotPath(firstPath), snapshotStore.SnapshotPath(secondPath))
	require.NoError(testInstance, snapshotStore.SaveSnapshot(firstPath, []string{"first"}))
	require.NoError(testInstance, snapshotStore.SaveSnapshot(secondPath, []string{"second"}))

	firstLines, firstError := snapshotStore.LoadSnapshot(firstPath)
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, []string{"first"}, firstLines)

	secondLines, secondError := snapshotStore.LoadSnapshot(secondPath)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, []string{"second"}, secondLines)
}
