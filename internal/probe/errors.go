package probe

import (
	"errors"
	"fmt"
)

const (
	probeErrorTemplateConstant = "probe %s failed during %s: %v"
)

// ErrNotFound reports that the probed path does not exist.
var ErrNotFound = errors.New("file not found")

// ErrContentUnreadable reports that a file cannot be interpreted as line-oriented text.
var ErrContentUnreadable = errors.New("file content is not readable as text")

// Operation identifies the probe step that failed.
type Operation string

// Probe operations surfaced in Error.
const (
	OperationStat  Operation = "stat"
	OperationHash  Operation = "hash"
	OperationOwner Operation = "owner"
	OperationRead  Operation = "read"
)

// Error describes an I/O fault encountered while probing a single file.
type Error struct {
	Path      string
	Operation Operation
	Err       error
}

// Error implements the error interface.
func (probeError *Error) Error() string {
	return fmt.Sprintf(probeErrorTemplateConstant, probeError.Path, probeError.Operation, probeError.Err)
}

// Unwrap exposes the underlying fault.
func (probeError *Error) Unwrap() error {
	return probeError.Err
}

func newError(path string, operation Operation, cause error) error {
	return &Error{Path: path, Operation: operation, Err: cause}
}
