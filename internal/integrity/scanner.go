package integrity

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/fimon/internal/probe"
)

const (
	defaultScanWorkersConstant       = 4
	scanStartedMessageConstant       = "integrity scan started"
	scanCompletedMessageConstant     = "integrity scan completed"
	probeFaultMessageConstant        = "file could not be evaluated"
	snapshotFaultMessageConstant     = "snapshot unavailable"
	contentUnreadableMessageConstant = "content not readable as text; comparing metadata only"
	vanishedFileMessageConstant      = "discovered file vanished before probing"
	logFieldScanIDConstant           = "scan_id"
	logFieldRootConstant             = "root"
	logFieldPathConstant             = "path"
	logFieldTrackedConstant          = "tracked"
	logFieldDiscoveredConstant       = "discovered"
	logFieldEventsConstant           = "events"
	logFieldUnevaluatedConstant      = "unevaluated"
	rootResolutionErrorTemplate      = "unable to resolve root: %w"
	missingScannerDependencyTemplate = "scanner requires a %s"
	scanTimeoutErrorTemplate         = "%w after %s"
	proberDependencyNameConstant     = "prober"
	snapshotDependencyNameConstant   = "snapshot store"
	walkerDependencyNameConstant     = "file walker"
)

// ScannerOptions tunes Scanner behaviour.
type ScannerOptions struct {
	// Workers bounds the number of files probed concurrently.
	Workers int
	// Timeout bounds the wall-clock duration of one scan; zero disables the budget.
	Timeout time.Duration
	// SplitMetadataChanges reports permission or owner drift with identical content
	// as KindPermissionOrOwnerChanged instead of KindContentModified.
	SplitMetadataChanges bool
	Guard                *Guard
}

// Scanner compares a baseline against the filesystem.
type Scanner struct {
	logger        *zap.Logger
	prober        Prober
	snapshotStore SnapshotStore
	walker        FileWalker
	clock         Clock
	options       ScannerOptions
}

type evaluation struct {
	event *ChangeEvent
	fault *FileFault
}

// NewScanner constructs a Scanner from its collaborators.
func NewScanner(logger *zap.Logger, prober Prober, snapshotStore SnapshotStore, walker FileWalker, clock Clock, options ScannerOptions) (*Scanner, error) {
	if prober == nil {
		return nil, fmt.Errorf(missingScannerDependencyTemplate, proberDependencyNameConstant)
	}
	if snapshotStore == nil {
		return nil, fmt.Errorf(missingScannerDependencyTemplate, snapshotDependencyNameConstant)
	}
	if walker == nil {
		return nil, fmt.Errorf(missingScannerDependencyTemplate, walkerDependencyNameConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if options.Workers <= 0 {
		options.Workers = defaultScanWorkersConstant
	}
	return &Scanner{
		logger:        logger,
		prober:        prober,
		snapshotStore: snapshotStore,
		walker:        walker,
		clock:         clock,
		options:       options,
	}, nil
}

// Scan reports every drift between baseline and the files under root.
//
// Events for baseline entries come first, in baseline order, followed by events
// for untracked files in walk order. Files that cannot be probed are listed in
// ScanResult.Unevaluated and never abort the scan.
func (scanner *Scanner) Scan(executionContext context.Context, baseline Baseline, root string) (ScanResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	release, acquireError := scanner.options.Guard.AcquireShared(executionContext)
	if acquireError != nil {
		return ScanResult{}, acquireError
	}
	defer release()

	// The budget starts once the guard is held.
	if scanner.options.Timeout > 0 {
		var cancel context.CancelFunc
		executionContext, cancel = context.WithTimeout(executionContext, scanner.options.Timeout)
		defer cancel()
	}

	startedAt := scanner.clock.Now()
	result := ScanResult{
		ScanID:       uuid.NewString(),
		StartedAt:    startedAt,
		TrackedCount: baseline.Len(),
	}
	scanLogger := scanner.logger.With(zap.String(logFieldScanIDConstant, result.ScanID))

	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return ScanResult{}, &RootUnavailableError{Root: root, Err: fmt.Errorf(rootResolutionErrorTemplate, absoluteError)}
	}
	result.Root = absoluteRoot
	scanLogger.Info(scanStartedMessageConstant, zap.String(logFieldRootConstant, absoluteRoot), zap.Int(logFieldTrackedConstant, baseline.Len()))

	discoveredPaths, walkError := scanner.walker.Walk(absoluteRoot)
	if walkError != nil {
		return ScanResult{}, &RootUnavailableError{Root: absoluteRoot, Err: walkError}
	}
	result.DiscoveredCount = len(discoveredPaths)

	trackedPaths := baseline.Paths()
	untrackedPaths := make([]string, 0, len(discoveredPaths))
	for _, discoveredPath := range discoveredPaths {
		if trackedPaths.Contains(discoveredPath) {
			continue
		}
		untrackedPaths = append(untrackedPaths, discoveredPath)
	}

	entries := baseline.Entries()
	entryEvaluations := make([]evaluation, len(entries))
	additionEvaluations := make([]evaluation, len(untrackedPaths))

	workerGroup, groupContext := errgroup.WithContext(executionContext)
	workerGroup.SetLimit(scanner.options.Workers)
	for entryIndex, entry := range entries {
		entryIndex, entry := entryIndex, entry
		workerGroup.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			entryEvaluations[entryIndex] = scanner.evaluateEntry(scanLogger, entry, startedAt)
			return nil
		})
	}
	for additionIndex, untrackedPath := range untrackedPaths {
		additionIndex, untrackedPath := additionIndex, untrackedPath
		workerGroup.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			additionEvaluations[additionIndex] = scanner.evaluateAddition(scanLogger, untrackedPath, startedAt)
			return nil
		})
	}

	if waitError := workerGroup.Wait(); waitError != nil {
		if errors.Is(executionContext.Err(), context.DeadlineExceeded) {
			return ScanResult{}, fmt.Errorf(scanTimeoutErrorTemplate, ErrScanTimeout, scanner.options.Timeout)
		}
		return ScanResult{}, waitError
	}

	result.Events = make([]ChangeEvent, 0)
	for _, outcome := range append(entryEvaluations, additionEvaluations...) {
		if outcome.fault != nil {
			result.Unevaluated = append(result.Unevaluated, *outcome.fault)
		}
		if outcome.event != nil {
			result.Events = append(result.Events, *outcome.event)
		}
	}

	scanLogger.Info(
		scanCompletedMessageConstant,
		zap.Int(logFieldDiscoveredConstant, result.DiscoveredCount),
		zap.Int(logFieldEventsConstant, len(result.Events)),
		zap.Int(logFieldUnevaluatedConstant, len(result.Unevaluated)),
	)

	return result, nil
}

func (scanner *Scanner) evaluateEntry(logger *zap.Logger, entry BaselineEntry, scannedAt time.Time) evaluation {
	expectedState := entry.State()

	probeResult, probeError := scanner.prober.Probe(entry.Path)
	if errors.Is(probeError, probe.ErrNotFound) {
		return evaluation{event: &ChangeEvent{
			Path:        entry.Path,
			Name:        entry.Name,
			Kind:        KindDeleted,
			Expected:    &expectedState,
			ContentDiff: []ChangeLine{},
			DetectedAt:  scannedAt,
		}}
	}
	if probeError != nil {
		logger.Warn(probeFaultMessageConstant, zap.String(logFieldPathConstant, entry.Path), zap.Error(probeError))
		return evaluation{fault: &FileFault{Path: entry.Path, Err: probeError}}
	}

	currentState := stateOf(probeResult)
	if currentState == expectedState {
		return evaluation{}
	}

	kind := KindContentModified
	if scanner.options.SplitMetadataChanges && currentState.ContentHash == expectedState.ContentHash {
		kind = KindPermissionOrOwnerChanged
	}

	event := &ChangeEvent{
		Path:        entry.Path,
		Name:        entry.Name,
		Kind:        kind,
		Expected:    &expectedState,
		Current:     &currentState,
		ContentDiff: []ChangeLine{},
		DetectedAt:  probeResult.ChangeTime,
	}
	if kind == KindContentModified {
		scanner.attachContentDiff(logger, event)
	}
	return evaluation{event: event}
}

func (scanner *Scanner) attachContentDiff(logger *zap.Logger, event *ChangeEvent) {
	snapshotLines, snapshotError := scanner.snapshotStore.LoadSnapshot(event.Path)
	if snapshotError != nil {
		logger.Warn(snapshotFaultMessageConstant, zap.String(logFieldPathConstant, event.Path), zap.Error(snapshotError))
		event.Fault = &StoreUnavailableError{Operation: loadSnapshotOperationConstant, Err: snapshotError}
		return
	}

	currentLines, readError := scanner.prober.ReadLines(event.Path)
	switch {
	case errors.Is(readError, probe.ErrContentUnreadable):
		logger.Debug(contentUnreadableMessageConstant, zap.String(logFieldPathConstant, event.Path))
		return
	case readError != nil:
		logger.Warn(probeFaultMessageConstant, zap.String(logFieldPathConstant, event.Path), zap.Error(readError))
		event.Fault = readError
		return
	}

	event.ContentDiff = Diff(snapshotLines, currentLines)
}

func (scanner *Scanner) evaluateAddition(logger *zap.Logger, path string, scannedAt time.Time) evaluation {
	probeResult, probeError := scanner.prober.Probe(path)
	if errors.Is(probeError, probe.ErrNotFound) {
		logger.Debug(vanishedFileMessageConstant, zap.String(logFieldPathConstant, path))
		return evaluation{}
	}
	if probeError != nil {
		logger.Warn(probeFaultMessageConstant, zap.String(logFieldPathConstant, path), zap.Error(probeError))
		return evaluation{fault: &FileFault{Path: path, Err: probeError}}
	}

	currentState := stateOf(probeResult)
	event := &ChangeEvent{
		Path:        path,
		Name:        filepath.Base(path),
		Kind:        KindAdded,
		Current:     &currentState,
		ContentDiff: []ChangeLine{},
		DetectedAt:  scannedAt,
	}

	currentLines, captureError := captureLines(scanner.prober, path)
	if captureError != nil {
		logger.Warn(snapshotFaultMessageConstant, zap.String(logFieldPathConstant, path), zap.Error(captureError))
		event.Fault = captureError
		return evaluation{event: event}
	}
	if saveError := scanner.snapshotStore.SaveSnapshot(path, currentLines); saveError != nil {
		logger.Warn(snapshotFaultMessageConstant, zap.String(logFieldPathConstant, path), zap.Error(saveError))
		event.Fault = &StoreUnavailableError{Operation: saveSnapshotOperationConstant, Err: saveError}
		return evaluation{event: event}
	}
	event.SnapshotCaptured = true

	return evaluation{event: event}
}

// captureLines reads the content to retain as a snapshot. Content that cannot be
// read as text is retained as an empty sequence.
func captureLines(prober Prober, path string) ([]string, error) {
	lines, readError := prober.ReadLines(path)
	if errors.Is(readError, probe.ErrContentUnreadable) {
		return []string{}, nil
	}
	if readError != nil {
		return nil, readError
	}
	return lines, nil
}

func stateOf(probeResult probe.Result) FileState {
	return FileState{
		Permissions: probeResult.Permissions,
		ContentHash: probeResult.ContentHash,
		Owner:       probeResult.Owner,
	}
}
