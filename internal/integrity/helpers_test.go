package integrity_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/fimon/internal/discovery"
	"github.com/temirov/fimon/internal/integrity"
	"github.com/temirov/fimon/internal/probe"
)

const (
	testOwnerConstant            = "operator"
	testReplacementOwnerConstant = "auditor"
	testFilePermissionsConstant  = 0o644
)

var testScanTime = time.Date(2024, time.May, 1, 9, 30, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

type staticOwnerResolver struct{}

func (staticOwnerResolver) ResolveOwner(string) (string, error) {
	return testOwnerConstant, nil
}

type fixedOwnerResolver struct {
	owner string
}

func (resolver fixedOwnerResolver) ResolveOwner(string) (string, error) {
	return resolver.owner, nil
}

type faultyProber struct {
	integrity.Prober
	failingPath string
}

func (prober faultyProber) Probe(path string) (probe.Result, error) {
	if path == prober.failingPath {
		return probe.Result{}, &probe.Error{Path: path, Operation: probe.OperationStat, Err: os.ErrPermission}
	}
	return prober.Prober.Probe(path)
}

type slowProber struct {
	integrity.Prober
	delay time.Duration
}

func (prober slowProber) Probe(path string) (probe.Result, error) {
	time.Sleep(prober.delay)
	return prober.Prober.Probe(path)
}

type memorySnapshotStore struct {
	mutex     sync.Mutex
	snapshots map[string][]string
	saveError error
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snapshots: map[string][]string{}}
}

func (snapshotStore *memorySnapshotStore) LoadSnapshot(path string) ([]string, error) {
	snapshotStore.mutex.Lock()
	defer snapshotStore.mutex.Unlock()
	lines, found := snapshotStore.snapshots[path]
	if !found {
		return []string{}, nil
	}
	return append([]string{}, lines...), nil
}

func (snapshotStore *memorySnapshotStore) SaveSnapshot(path string, lines []string) error {
	snapshotStore.mutex.Lock()
	defer snapshotStore.mutex.Unlock()
	if snapshotStore.saveError != nil {
		return snapshotStore.saveError
	}
	snapshotStore.snapshots[path] = append([]string{}, lines...)
	return nil
}

func (snapshotStore *memorySnapshotStore) DeleteSnapshot(path string) error {
	snapshotStore.mutex.Lock()
	defer snapshotStore.mutex.Unlock()
	delete(snapshotStore.snapshots, path)
	return nil
}

func (snapshotStore *memorySnapshotStore) snapshot(path string) ([]string, bool) {
	snapshotStore.mutex.Lock()
	defer snapshotStore.mutex.Unlock()
	lines, found := snapshotStore.snapshots[path]
	return lines, found
}

type memoryBaselineStore struct {
	baseline  integrity.Baseline
	saveCount int
	saveError error
}

func (baselineStore *memoryBaselineStore) LoadBaseline() (integrity.Baseline, error) {
	return baselineStore.baseline, nil
}

func (baselineStore *memoryBaselineStore) SaveBaseline(baseline integrity.Baseline) error {
	if baselineStore.saveError != nil {
		return baselineStore.saveError
	}
	baselineStore.saveCount++
	baselineStore.baseline = baseline
	return nil
}

type engineFixture struct {
	root          string
	prober        integrity.Prober
	snapshotStore *memorySnapshotStore
	baselineStore *memoryBaselineStore
}

func newEngineFixture(testInstance *testing.T) *engineFixture {
	testInstance.Helper()
	return &engineFixture{
		root:          testInstance.TempDir(),
		prober:        probe.NewFileProbe(staticOwnerResolver{}),
		snapshotStore: newMemorySnapshotStore(),
		baselineStore: &memoryBaselineStore{},
	}
}

func (fixture *engineFixture) writeFile(testInstance *testing.T, relativePath string, content string) string {
	testInstance.Helper()
	path := filepath.Join(fixture.root, relativePath)
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(testInstance, os.WriteFile(path, []byte(content), testFilePermissionsConstant))
	return path
}

func (fixture *engineFixture) bootstrap(testInstance *testing.T, paths ...string) integrity.Baseline {
	testInstance.Helper()
	bootstrapper, bootstrapperError := integrity.NewBootstrapper(nil, fixture.prober, fixture.snapshotStore, fixture.baselineStore, nil)
	require.NoError(testInstance, bootstrapperError)

	targets := make([]integrity.BootstrapTarget, 0, len(paths))
	for _, path := range paths {
		targets = append(targets, integrity.BootstrapTarget{Path: path})
	}
	result, bootstrapError := bootstrapper.Bootstrap(context.Background(), targets)
	require.NoError(testInstance, bootstrapError)
	require.Empty(testInstance, result.Skipped)
	return result.Baseline
}

func (fixture *engineFixture) scanner(testInstance *testing.T, options integrity.ScannerOptions) *integrity.Scanner {
	testInstance.Helper()
	walker, walkerError := discovery.NewFilesystemWalker(discovery.Options{})
	require.NoError(testInstance, walkerError)
	scanner, scannerError := integrity.NewScanner(nil, fixture.prober, fixture.snapshotStore, walker, fixedClock{now: testScanTime}, options)
	require.NoError(testInstance, scannerError)
	return scanner
}

func (fixture *engineFixture) reconciler(testInstance *testing.T, options integrity.ReconcilerOptions) *integrity.Reconciler {
	testInstance.Helper()
	reconciler, reconcilerError := integrity.NewReconciler(nil, fixture.prober, fixture.snapshotStore, fixture.baselineStore, options)
	require.NoError(testInstance, reconcilerError)
	return reconciler
}

func (fixture *engineFixture) scan(testInstance *testing.T, baseline integrity.Baseline) integrity.ScanResult {
	testInstance.Helper()
	result, scanError := fixture.scanner(testInstance, integrity.ScannerOptions{}).Scan(context.Background(), baseline, fixture.root)
	require.NoError(testInstance, scanError)
	return result
}
