package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/temirov/fimon/internal/integrity"
)

const (
	reportFilePermissions        = 0o644
	reportDirectoryPermissions   = 0o755
	reportFileOpenFlags          = os.O_APPEND | os.O_CREATE | os.O_WRONLY
	reportDirectoryErrorTemplate = "prepare report directory %s: %w"
	reportOpenErrorTemplate      = "open report %s: %w"
	reportWriteErrorTemplate     = "write report %s: %w"
	reportRemoveErrorTemplate    = "remove report %s: %w"
)

// File is the investigation report kept next to the baseline while changes await authorization.
type File struct {
	path string
}

// NewFile constructs a report file handle for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the report location.
func (reportFile *File) Path() string {
	return reportFile.path
}

// Append adds one block per change event to the report, creating it when absent.
func (reportFile *File) Append(result integrity.ScanResult) (appendError error) {
	reportDirectory := filepath.Dir(reportFile.path)
	if directoryError := os.MkdirAll(reportDirectory, reportDirectoryPermissions); directoryError != nil {
		return fmt.Errorf(reportDirectoryErrorTemplate, reportDirectory, directoryError)
	}

	handle, openError := os.OpenFile(reportFile.path, reportFileOpenFlags, reportFilePermissions)
	if openError != nil {
		return fmt.Errorf(reportOpenErrorTemplate, reportFile.path, openError)
	}
	defer func() {
		if closeError := handle.Close(); closeError != nil && appendError == nil {
			appendError = fmt.Errorf(reportWriteErrorTemplate, reportFile.path, closeError)
		}
	}()

	if renderError := (TextRenderer{}).Render(handle, integrity.ScanResult{Events: result.Events}); renderError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, reportFile.path, renderError)
	}
	return nil
}

// Remove deletes the report. Removing an absent report succeeds.
func (reportFile *File) Remove() error {
	removeError := os.Remove(reportFile.path)
	if removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
		return fmt.Errorf(reportRemoveErrorTemplate, reportFile.path, removeError)
	}
	return nil
}
