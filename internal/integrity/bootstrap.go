package integrity

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

const (
	bootstrapStartedMessageConstant    = "baseline bootstrap started"
	bootstrapCompletedMessageConstant  = "baseline bootstrap completed"
	bootstrapSkippedMessageConstant    = "file skipped during bootstrap"
	logFieldRequestedConstant          = "requested"
	logFieldSkippedConstant            = "skipped"
	missingBootstrapDependencyTemplate = "bootstrapper requires a %s"
	bootstrapPathResolutionTemplate    = "resolve %s: %w"
)

// BootstrapTarget names one file to record. An empty Name selects the base name of Path.
type BootstrapTarget struct {
	Name string
	Path string
}

// BootstrapResult is the outcome of one Bootstrapper.Bootstrap call.
type BootstrapResult struct {
	Baseline Baseline
	Skipped  []FileFault
}

// Bootstrapper creates the first accepted baseline from an explicit list of files.
type Bootstrapper struct {
	logger        *zap.Logger
	prober        Prober
	snapshotStore SnapshotStore
	baselineStore BaselineStore
	guard         *Guard
}

// NewBootstrapper constructs a Bootstrapper from its collaborators.
func NewBootstrapper(logger *zap.Logger, prober Prober, snapshotStore SnapshotStore, baselineStore BaselineStore, guard *Guard) (*Bootstrapper, error) {
	if prober == nil {
		return nil, fmt.Errorf(missingBootstrapDependencyTemplate, proberDependencyNameConstant)
	}
	if snapshotStore == nil {
		return nil, fmt.Errorf(missingBootstrapDependencyTemplate, snapshotDependencyNameConstant)
	}
	if baselineStore == nil {
		return nil, fmt.Errorf(missingBootstrapDependencyTemplate, baselineStoreDependencyNameConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{
		logger:        logger,
		prober:        prober,
		snapshotStore: snapshotStore,
		baselineStore: baselineStore,
		guard:         guard,
	}, nil
}

// Bootstrap records every readable target as a baseline entry, captures its
// snapshot and persists the resulting baseline, replacing any previous one.
// Missing or unreadable targets are skipped and reported. Repeated paths are
// recorded once.
func (bootstrapper *Bootstrapper) Bootstrap(executionContext context.Context, targets []BootstrapTarget) (BootstrapResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}
	release, acquireError := bootstrapper.guard.AcquireExclusive(executionContext)
	if acquireError != nil {
		return BootstrapResult{}, &StoreUnavailableError{Operation: acquireLockOperationConstant, Err: acquireError}
	}
	defer func() {
		if releaseError := release(); releaseError != nil {
			bootstrapper.logger.Warn(lockReleaseFaultMessageConstant, zap.Error(releaseError))
		}
	}()

	bootstrapper.logger.Info(bootstrapStartedMessageConstant, zap.Int(logFieldRequestedConstant, len(targets)))

	result := BootstrapResult{}
	seenPaths := mapset.NewThreadUnsafeSet[string]()
	entries := make([]BaselineEntry, 0, len(targets))
	recordSkip := func(path string, cause error) {
		bootstrapper.logger.Warn(bootstrapSkippedMessageConstant, zap.String(logFieldPathConstant, path), zap.Error(cause))
		result.Skipped = append(result.Skipped, FileFault{Path: path, Err: cause})
	}

	for _, target := range targets {
		requestedPath := strings.TrimSpace(target.Path)
		if contextError := executionContext.Err(); contextError != nil {
			return BootstrapResult{}, contextError
		}

		absolutePath, absoluteError := filepath.Abs(requestedPath)
		if absoluteError != nil {
			recordSkip(requestedPath, fmt.Errorf(bootstrapPathResolutionTemplate, requestedPath, absoluteError))
			continue
		}
		if !seenPaths.Add(absolutePath) {
			continue
		}

		probeResult, probeError := bootstrapper.prober.Probe(absolutePath)
		if probeError != nil {
			recordSkip(absolutePath, probeError)
			continue
		}

		lines, captureError := captureLines(bootstrapper.prober, absolutePath)
		if captureError != nil {
			recordSkip(absolutePath, captureError)
			continue
		}
		if saveError := bootstrapper.snapshotStore.SaveSnapshot(absolutePath, lines); saveError != nil {
			return BootstrapResult{}, &StoreUnavailableError{Operation: saveSnapshotOperationConstant, Err: saveError}
		}

		entryName := strings.TrimSpace(target.Name)
		if len(entryName) == 0 {
			entryName = filepath.Base(absolutePath)
		}
		entries = append(entries, BaselineEntry{Name: entryName, Path: absolutePath}.withState(stateOf(probeResult)))
	}

	working, baselineError := NewBaseline(entries)
	if baselineError != nil {
		return BootstrapResult{}, baselineError
	}
	if saveError := bootstrapper.baselineStore.SaveBaseline(working); saveError != nil {
		return BootstrapResult{}, &StoreUnavailableError{Operation: saveBaselineOperationConstant, Err: saveError}
	}

	bootstrapper.logger.Info(
		bootstrapCompletedMessageConstant,
		zap.Int(logFieldTrackedConstant, working.Len()),
		zap.Int(logFieldSkippedConstant, len(result.Skipped)),
	)
	result.Baseline = working
	return result, nil
}
