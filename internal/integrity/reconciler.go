package integrity

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loadSnapshotOperationConstant       = "load snapshot"
	saveSnapshotOperationConstant       = "save snapshot"
	saveBaselineOperationConstant       = "save baseline"
	acquireLockOperationConstant        = "acquire lock"
	reconcileDeclinedMessageConstant    = "changes not authorized; baseline left unchanged"
	reconcileAppliedMessageConstant     = "changes authorized; baseline updated"
	eventFaultMessageConstant           = "change could not be applied"
	rollbackFaultMessageConstant        = "snapshot rollback failed"
	lockReleaseFaultMessageConstant     = "reconciliation lock release failed"
	snapshotDeleteFaultMessageConstant  = "snapshot removal failed"
	logFieldKindConstant                = "kind"
	logFieldAppliedConstant             = "applied"
	logFieldFaultsConstant              = "faults"
	missingReconcilerDependencyTemplate = "reconciler requires a %s"
	baselineStoreDependencyNameConstant = "baseline store"
	unsupportedMatchStrategyTemplate    = "unsupported match strategy %q"
	unsupportedKindTemplate             = "%w %q"
)

// MatchStrategy selects how modification events locate their baseline entries.
type MatchStrategy string

// Supported match strategies.
const (
	// MatchByName updates every entry sharing the event's display name.
	MatchByName MatchStrategy = "name"
	// MatchByPath updates the single entry tracking the event's path.
	MatchByPath MatchStrategy = "path"
)

// ParseMatchStrategy converts a configuration value into a MatchStrategy. Empty selects MatchByName.
func ParseMatchStrategy(value string) (MatchStrategy, error) {
	switch MatchStrategy(strings.ToLower(strings.TrimSpace(value))) {
	case "", MatchByName:
		return MatchByName, nil
	case MatchByPath:
		return MatchByPath, nil
	default:
		return "", fmt.Errorf(unsupportedMatchStrategyTemplate, value)
	}
}

// ReconcilerOptions tunes Reconciler behaviour.
type ReconcilerOptions struct {
	MatchBy MatchStrategy
	Guard   *Guard
}

// ReconcileResult is the outcome of one Reconciler.Reconcile call.
type ReconcileResult struct {
	Baseline   Baseline
	Authorized bool
	Applied    int
	Faults     []EventFault
}

// Reconciler applies authorised change events to the baseline and snapshot stores.
type Reconciler struct {
	logger        *zap.Logger
	prober        Prober
	snapshotStore SnapshotStore
	baselineStore BaselineStore
	options       ReconcilerOptions
}

type snapshotRollback struct {
	path          string
	previousLines []string
}

// NewReconciler constructs a Reconciler from its collaborators.
func NewReconciler(logger *zap.Logger, prober Prober, snapshotStore SnapshotStore, baselineStore BaselineStore, options ReconcilerOptions) (*Reconciler, error) {
	if prober == nil {
		return nil, fmt.Errorf(missingReconcilerDependencyTemplate, proberDependencyNameConstant)
	}
	if snapshotStore == nil {
		return nil, fmt.Errorf(missingReconcilerDependencyTemplate, snapshotDependencyNameConstant)
	}
	if baselineStore == nil {
		return nil, fmt.Errorf(missingReconcilerDependencyTemplate, baselineStoreDependencyNameConstant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(options.MatchBy) == 0 {
		options.MatchBy = MatchByName
	}
	return &Reconciler{
		logger:        logger,
		prober:        prober,
		snapshotStore: snapshotStore,
		baselineStore: baselineStore,
		options:       options,
	}, nil
}

// Reconcile applies events to baseline when authorized and persists the outcome.
//
// Each event is applied completely or not at all; a failed event is reported in
// ReconcileResult.Faults and the remaining events are still applied. When the new
// baseline cannot be persisted, snapshots overwritten during the call are restored
// and a *StoreUnavailableError is returned.
func (reconciler *Reconciler) Reconcile(executionContext context.Context, baseline Baseline, events []ChangeEvent, authorized bool) (ReconcileResult, error) {
	if !authorized {
		reconciler.logger.Info(reconcileDeclinedMessageConstant, zap.Int(logFieldEventsConstant, len(events)))
		return ReconcileResult{Baseline: baseline}, nil
	}

	release, acquireError := reconciler.options.Guard.AcquireExclusive(executionContext)
	if acquireError != nil {
		return ReconcileResult{}, &StoreUnavailableError{Operation: acquireLockOperationConstant, Err: acquireError}
	}

	result, reconcileError := reconciler.apply(baseline, events)
	if releaseError := release(); releaseError != nil {
		reconciler.logger.Warn(lockReleaseFaultMessageConstant, zap.Error(releaseError))
	}
	if reconcileError != nil {
		return ReconcileResult{}, reconcileError
	}

	reconciler.logger.Info(
		reconcileAppliedMessageConstant,
		zap.Int(logFieldAppliedConstant, result.Applied),
		zap.Int(logFieldFaultsConstant, len(result.Faults)),
	)
	return result, nil
}

func (reconciler *Reconciler) apply(baseline Baseline, events []ChangeEvent) (ReconcileResult, error) {
	working := baseline
	result := ReconcileResult{Authorized: true}
	var rollbacks []snapshotRollback
	var pendingSnapshotRemovals []ChangeEvent

	recordFault := func(event ChangeEvent, cause error) {
		reconciler.logger.Warn(
			eventFaultMessageConstant,
			zap.String(logFieldPathConstant, event.Path),
			zap.String(logFieldKindConstant, string(event.Kind)),
			zap.Error(cause),
		)
		result.Faults = append(result.Faults, EventFault{Path: event.Path, Kind: event.Kind, Err: cause})
	}

	for _, event := range events {
		switch {
		case event.Kind == KindAdded:
			if event.Current == nil {
				recordFault(event, errMissingCurrentState)
				continue
			}
			if !event.SnapshotCaptured {
				rollback, replaceError := reconciler.replaceSnapshot(event.Path)
				if replaceError != nil {
					recordFault(event, replaceError)
					continue
				}
				rollbacks = append(rollbacks, rollback)
			}
			working = working.upsert(BaselineEntry{
				Name:        event.Name,
				Path:        event.Path,
				Permissions: event.Current.Permissions,
				ContentHash: event.Current.ContentHash,
				Owner:       event.Current.Owner,
			})
		case event.Kind == KindDeleted:
			working = working.without(event.Path)
			pendingSnapshotRemovals = append(pendingSnapshotRemovals, event)
		case event.Kind.IsModification():
			if event.Current == nil {
				recordFault(event, errMissingCurrentState)
				continue
			}
			matchedIndices := reconciler.matchingIndices(working, event)
			if len(matchedIndices) == 0 {
				recordFault(event, errNoMatchingEntry)
				continue
			}
			rollback, replaceError := reconciler.replaceSnapshot(event.Path)
			if replaceError != nil {
				recordFault(event, replaceError)
				continue
			}
			rollbacks = append(rollbacks, rollback)
			working = working.withStateAt(matchedIndices, *event.Current)
		default:
			recordFault(event, fmt.Errorf(unsupportedKindTemplate, errUnsupportedKind, event.Kind))
			continue
		}
		result.Applied++
	}

	if saveError := reconciler.baselineStore.SaveBaseline(working); saveError != nil {
		reconciler.restoreSnapshots(rollbacks)
		return ReconcileResult{}, &StoreUnavailableError{Operation: saveBaselineOperationConstant, Err: saveError}
	}

	for _, event := range pendingSnapshotRemovals {
		if deleteError := reconciler.snapshotStore.DeleteSnapshot(event.Path); deleteError != nil {
			reconciler.logger.Warn(snapshotDeleteFaultMessageConstant, zap.String(logFieldPathConstant, event.Path), zap.Error(deleteError))
			result.Faults = append(result.Faults, EventFault{Path: event.Path, Kind: event.Kind, Err: deleteError})
		}
	}

	result.Baseline = working
	return result, nil
}

func (reconciler *Reconciler) matchingIndices(baseline Baseline, event ChangeEvent) []int {
	var matchedIndices []int
	for index, entry := range baseline.entries {
		switch reconciler.options.MatchBy {
		case MatchByPath:
			if entry.Path == event.Path {
				matchedIndices = append(matchedIndices, index)
			}
		default:
			if entry.Name == event.Name {
				matchedIndices = append(matchedIndices, index)
			}
		}
	}
	return matchedIndices
}

// replaceSnapshot captures the current content of path as its snapshot and
// returns the information needed to undo the write.
func (reconciler *Reconciler) replaceSnapshot(path string) (snapshotRollback, error) {
	currentLines, captureError := captureLines(reconciler.prober, path)
	if captureError != nil {
		return snapshotRollback{}, captureError
	}
	previousLines, loadError := reconciler.snapshotStore.LoadSnapshot(path)
	if loadError != nil {
		return snapshotRollback{}, &StoreUnavailableError{Operation: loadSnapshotOperationConstant, Err: loadError}
	}
	if saveError := reconciler.snapshotStore.SaveSnapshot(path, currentLines); saveError != nil {
		return snapshotRollback{}, &StoreUnavailableError{Operation: saveSnapshotOperationConstant, Err: saveError}
	}
	return snapshotRollback{path: path, previousLines: previousLines}, nil
}

func (reconciler *Reconciler) restoreSnapshots(rollbacks []snapshotRollback) {
	for index := len(rollbacks) - 1; index >= 0; index-- {
		rollback := rollbacks[index]
		var restoreError error
		if len(rollback.previousLines) == 0 {
			restoreError = reconciler.snapshotStore.DeleteSnapshot(rollback.path)
		} else {
			restoreError = reconciler.snapshotStore.SaveSnapshot(rollback.path, rollback.previousLines)
		}
		if restoreError != nil {
			reconciler.logger.Warn(rollbackFaultMessageConstant, zap.String(logFieldPathConstant, rollback.path), zap.Error(restoreError))
		}
	}
}
