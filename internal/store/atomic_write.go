package store

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	temporaryFilePatternTemplate = ".%s.tmp-*"
	createTemporaryErrorTemplate = "create temp file: %w"
	writeTemporaryErrorTemplate  = "write temp file: %w"
	syncTemporaryErrorTemplate   = "sync temp file: %w"
	chmodTemporaryErrorTemplate  = "chmod temp file: %w"
	closeTemporaryErrorTemplate  = "close temp file: %w"
	renameTemporaryErrorTemplate = "rename temp file: %w"
	removeDestinationTemplate    = "remove destination before rename: %w"
)

// writeFileAtomic replaces path with content so readers observe either the old or the new file.
func writeFileAtomic(path string, content []byte, mode os.FileMode) error {
	parentDirectory := filepath.Dir(path)

	temporaryFile, createError := os.CreateTemp(parentDirectory, fmt.Sprintf(temporaryFilePatternTemplate, filepath.Base(path)))
	if createError != nil {
		return fmt.Errorf(createTemporaryErrorTemplate, createError)
	}
	temporaryPath := temporaryFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeError := temporaryFile.Write(content); writeError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf(writeTemporaryErrorTemplate, writeError)
	}
	if syncError := temporaryFile.Sync(); syncError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf(syncTemporaryErrorTemplate, syncError)
	}
	if chmodError := temporaryFile.Chmod(mode); chmodError != nil {
		_ = temporaryFile.Close()
		return fmt.Errorf(chmodTemporaryErrorTemplate, chmodError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return fmt.Errorf(closeTemporaryErrorTemplate, closeError)
	}

	if renameError := os.Rename(temporaryPath, path); renameError != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf(renameTemporaryErrorTemplate, renameError)
		}
		if removeError := os.Remove(path); removeError != nil && !os.IsNotExist(removeError) {
			return fmt.Errorf(removeDestinationTemplate, removeError)
		}
		if retryError := os.Rename(temporaryPath, path); retryError != nil {
			return fmt.Errorf(renameTemporaryErrorTemplate, retryError)
		}
	}
	cleanup = false

	if directoryHandle, openError := os.Open(parentDirectory); openError == nil {
		_ = directoryHandle.Sync()
		_ = directoryHandle.Close()
	}
	return nil
}
