package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/fimon/internal/integrity"
)

const (
	csvHeaderName               = "File"
	csvHeaderLocation           = "Location"
	csvHeaderPermission         = "File Permission"
	csvHeaderHash               = "File Hash (Sha256)"
	csvHeaderOwner              = "File Owner"
	baselineFilePermissions     = 0o600
	baselineDirectoryPermission = 0o755
	csvReadErrorTemplate        = "read baseline %s: %w"
	csvParseErrorTemplate       = "parse baseline %s: %w"
	csvMissingColumnTemplate    = "baseline %s lacks column %q"
	csvWriteErrorTemplate       = "write baseline %s: %w"
	csvDirectoryErrorTemplate   = "prepare baseline directory %s: %w"
)

var csvHeader = []string{
	csvHeaderName,
	csvHeaderLocation,
	csvHeaderPermission,
	csvHeaderHash,
	csvHeaderOwner,
}

// CSVBaselineStore keeps the baseline in a CSV file with one row per tracked file.
// Columns are located by header name, so files written with a different column
// order load unchanged.
type CSVBaselineStore struct {
	path string
}

// NewCSVBaselineStore constructs a store backed by the CSV file at path.
func NewCSVBaselineStore(path string) *CSVBaselineStore {
	return &CSVBaselineStore{path: path}
}

// Path returns the location of the baseline file.
func (store *CSVBaselineStore) Path() string {
	return store.path
}

// LoadBaseline reads the baseline file. A missing file yields ErrBaselineNotFound.
func (store *CSVBaselineStore) LoadBaseline() (integrity.Baseline, error) {
	content, readError := os.ReadFile(store.path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return integrity.Baseline{}, ErrBaselineNotFound
		}
		return integrity.Baseline{}, fmt.Errorf(csvReadErrorTemplate, store.path, readError)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, headerError := reader.Read()
	if headerError == io.EOF {
		return integrity.NewBaseline(nil)
	}
	if headerError != nil {
		return integrity.Baseline{}, fmt.Errorf(csvParseErrorTemplate, store.path, headerError)
	}

	columnIndex := make(map[string]int, len(header))
	for index, column := range header {
		columnIndex[strings.TrimSpace(column)] = index
	}
	for _, requiredColumn := range csvHeader {
		if _, present := columnIndex[requiredColumn]; !present {
			return integrity.Baseline{}, fmt.Errorf(csvMissingColumnTemplate, store.path, requiredColumn)
		}
	}

	var entries []integrity.BaselineEntry
	for {
		record, recordError := reader.Read()
		if recordError == io.EOF {
			break
		}
		if recordError != nil {
			return integrity.Baseline{}, fmt.Errorf(csvParseErrorTemplate, store.path, recordError)
		}
		field := func(column string) string {
			index := columnIndex[column]
			if index >= len(record) {
				return ""
			}
			return record[index]
		}
		entries = append(entries, integrity.BaselineEntry{
			Name:        field(csvHeaderName),
			Path:        field(csvHeaderLocation),
			Permissions: field(csvHeaderPermission),
			ContentHash: field(csvHeaderHash),
			Owner:       field(csvHeaderOwner),
		})
	}

	baseline, baselineError := integrity.NewBaseline(entries)
	if baselineError != nil {
		return integrity.Baseline{}, fmt.Errorf(csvParseErrorTemplate, store.path, baselineError)
	}
	return baseline, nil
}

// SaveBaseline replaces the baseline file atomically.
func (store *CSVBaselineStore) SaveBaseline(baseline integrity.Baseline) error {
	baselineDirectory := filepath.Dir(store.path)
	if directoryError := os.MkdirAll(baselineDirectory, baselineDirectoryPermission); directoryError != nil {
		return fmt.Errorf(csvDirectoryErrorTemplate, baselineDirectory, directoryError)
	}

	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if writeError := writer.Write(csvHeader); writeError != nil {
		return fmt.Errorf(csvWriteErrorTemplate, store.path, writeError)
	}
	for _, entry := range baseline.Entries() {
		record := []string{entry.Name, entry.Path, entry.Permissions, entry.ContentHash, entry.Owner}
		if writeError := writer.Write(record); writeError != nil {
			return fmt.Errorf(csvWriteErrorTemplate, store.path, writeError)
		}
	}
	writer.Flush()
	if flushError := writer.Error(); flushError != nil {
		return fmt.Errorf(csvWriteErrorTemplate, store.path, flushError)
	}

	if writeError := writeFileAtomic(store.path, buffer.Bytes(), baselineFilePermissions); writeError != nil {
		return fmt.Errorf(csvWriteErrorTemplate, store.path, writeError)
	}
	return nil
}
