package integrity

import (
	"errors"
	"fmt"
)

const (
	rootUnavailableTemplateConstant  = "monitored root %s unavailable: %v"
	storeUnavailableTemplateConstant = "store unavailable during %s: %v"
	duplicatePathTemplateConstant    = "baseline already tracks %s"
	eventFaultTemplateConstant       = "%s %s: %v"
)

// ErrScanTimeout reports that a scan exceeded its configured wall-clock budget.
var ErrScanTimeout = errors.New("scan exceeded its time budget")

var (
	errMissingCurrentState = errors.New("event carries no current state")
	errNoMatchingEntry     = errors.New("no baseline entry matches event")
	errUnsupportedKind     = errors.New("unsupported change kind")
)

// RootUnavailableError reports that the monitored root could not be walked.
type RootUnavailableError struct {
	Root string
	Err  error
}

// Error implements the error interface.
func (rootError *RootUnavailableError) Error() string {
	return fmt.Sprintf(rootUnavailableTemplateConstant, rootError.Root, rootError.Err)
}

// Unwrap exposes the underlying fault.
func (rootError *RootUnavailableError) Unwrap() error {
	return rootError.Err
}

// StoreUnavailableError reports that a baseline or snapshot store could not be read or written.
type StoreUnavailableError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (storeError *StoreUnavailableError) Error() string {
	return fmt.Sprintf(storeUnavailableTemplateConstant, storeError.Operation, storeError.Err)
}

// Unwrap exposes the underlying fault.
func (storeError *StoreUnavailableError) Unwrap() error {
	return storeError.Err
}

// DuplicatePathError reports a second baseline entry for an already tracked path.
type DuplicatePathError struct {
	Path string
}

// Error implements the error interface.
func (duplicateError *DuplicatePathError) Error() string {
	return fmt.Sprintf(duplicatePathTemplateConstant, duplicateError.Path)
}

// EventFault records a change event the reconciler could not apply.
type EventFault struct {
	Path string
	Kind ChangeKind
	Err  error
}

// Error implements the error interface.
func (eventFault EventFault) Error() string {
	return fmt.Sprintf(eventFaultTemplateConstant, eventFault.Kind, eventFault.Path, eventFault.Err)
}

// Unwrap exposes the underlying fault.
func (eventFault EventFault) Unwrap() error {
	return eventFault.Err
}
