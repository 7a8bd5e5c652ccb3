package integrity_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/fimon/internal/integrity"
	"github.com/temirov/fimon/internal/probe"
)

func TestBootstrapRecordsTargets(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance)
	namedPath := fixture.writeFile(testInstance, "etc/passwd", "root:x:0:0\n")
	plainPath := fixture.writeFile(testInstance, "etc/hosts", "127.0.0.1 localhost\n")
	binaryPath := fixture.writeFile(testInstance, "bin/tool", "\x00\x01")
	missingPath := filepath.Join(fixture.root, "etc", "shadow")

	bootstrapper, bootstrapperError := integrity.NewBootstrapper(nil, fixture.prober, fixture.snapshotStore, fixture.baselineStore, integrity.NewGuard("", 0))
	require.NoError(testInstance, bootstrapperError)

	result, bootstrapError := bootstrapper.Bootstrap(context.Background(), []integrity.BootstrapTarget{
		{Name: "accounts", Path: namedPath},
		{Path: " " + plainPath + " "},
		{Path: missingPath},
		{Name: "duplicate", Path: plainPath},
		{Path: binaryPath},
	})
	require.NoError(testInstance, bootstrapError)

	entries := result.Baseline.Entries()
	require.Len(testInstance, entries, 3)
	require.Equal(testInstance, "accounts", entries[0].Name)
	require.Equal(testInstance, namedPath, entries[0].Path)
	require.Equal(testInstance, "hosts", entries[1].Name)
	require.Equal(testInstance, "tool", entries[2].Name)
	require.Equal(testInstance, "644", entries[0].Permissions)
	require.Equal(testInstance, testOwnerConstant, entries[0].Owner)
	require.Len(testInstance, entries[0].ContentHash, 64)

	require.Len(testInstance, result.Skipped, 1)
	require.Equal(testInstance, missingPath, result.Skipped[0].Path)
	require.ErrorIs(testInstance, result.Skipped[0].Err, probe.ErrNotFound)

	hostsSnapshot, _ := fixture.snapshotStore.snapshot(plainPath)
	require.Equal(testInstance, []string{"127.0.0.1 localhost"}, hostsSnapshot)
	binarySnapshot, binaryFound := fixture.snapshotStore.snapshot(binaryPath)
	require.True(testInstance, binaryFound)
	require.Empty(testInstance, binarySnapshot)

	require.Equal(testInstance, result.Baseline, fixture.baselineStore.baseline)
}

func TestBootstrapStoreFailures(testInstance *testing.T) {
	fixture := newEngineFixture(testInstance)
	trackedPath := fixture.writeFile(testInstance, "tracked.txt", "x\n")
	bootstrapper, bootstrapperError := integrity.NewBootstrapper(nil, fixture.prober, fixture.snapshotStore, fixture.baselineStore, nil)
	require.NoError(testInstance, bootstrapperError)

	fixture.baselineStore.saveError = errors.New("no space left")
	_, saveError := bootstrapper.Bootstrap(context.Background(), []integrity.BootstrapTarget{{Path: trackedPath}})
	var storeError *integrity.StoreUnavailableError
	require.ErrorAs(testInstance, saveError, &storeError)

	fixture.baselineStore.saveError = nil
	fixture.snapshotStore.saveError = errors.New("no space left")
	_, snapshotError := bootstrapper.Bootstrap(context.Background(), []integrity.BootstrapTarget{{Path: trackedPath}})
	require.ErrorAs(testInstance, snapshotError, &storeError)
	require.Zero(testInstance, fixture.baselineStore.saveCount)
}
