package store_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/fimon/internal/integrity"
	"github.com/temirov/fimon/internal/store"
)

const (
	testBaselineFileNameConstant = "baseline.csv"
	testFirstHashConstant        = "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"
	testSecondHashConstant       = "fcde2b2edba56bf408601fb721fe9b5c338d10ee429ea04fae5511b68fbf8fb9"
)

func sampleEntries(directory string) []integrity.BaselineEntry {
	return []integrity.BaselineEntry{
		{Name: "a.txt", Path: filepath.Join(directory, "a.txt"), Permissions: "644", ContentHash: testFirstHashConstant, Owner: "alice"},
		{Name: "b, quoted.txt", Path: filepath.Join(directory, "b, quoted.txt"), Permissions: "600", ContentHash: testSecondHashConstant, Owner: "bob"},
	}
}

func TestCSVBaselineStoreRoundTrip(testInstance *testing.T) {
	directory := testInstance.TempDir()
	baselineStore := store.NewCSVBaselineStore(filepath.Join(directory, "nested", testBaselineFileNameConstant))

	baseline, baselineError := integrity.NewBaseline(sampleEntries(directory))
	require.NoError(testInstance, baselineError)
	require.NoError(testInstance, baselineStore.SaveBaseline(baseline))

	loaded, loadError := baselineStore.LoadBaseline()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, baseline.Entries(), loaded.Entries())
}

func TestCSVBaselineStoreMissingFile(testInstance *testing.T) {
	baselineStore := store.NewCSVBaselineStore(filepath.Join(testInstance.TempDir(), testBaselineFileNameConstant))

	_, loadError := baselineStore.LoadBaseline()
	require.ErrorIs(testInstance, loadError, store.ErrBaselineNotFound)
}

func TestCSVBaselineStoreParsing(testInstance *testing.T) {
	testCases := []struct {
		name            string
		content         string
		expectedEntries []integrity.BaselineEntry
		expectedError   string
	}{
		{
			name:            "empty_file",
			content:         "",
			expectedEntries: []integrity.BaselineEntry{},
		},
		{
			name:            "header_only",
			content:         "File,Location,File Permission,File Hash (Sha256),File Owner\n",
			expectedEntries: []integrity.BaselineEntry{},
		},
		{
			name:    "reordered_columns",
			content: "File,Location,File Hash (Sha256),File Permission,File Owner\na.txt,/data/a.txt," + testFirstHashConstant + ",644,alice\n",
			expectedEntries: []integrity.BaselineEntry{
				{Name: "a.txt", Path: "/data/a.txt", Permissions: "644", ContentHash: testFirstHashConstant, Owner: "alice"},
			},
		},
		{
			name:          "missing_column",
			content:       "File,Location,File Permission\na.txt,/data/a.txt,644\n",
			expectedError: "lacks column",
		},
		{
			name:          "duplicate_path",
			content:       "File,Location,File Permission,File Hash (Sha256),File Owner\na.txt,/data/a.txt,644,x,alice\na.txt,/data/a.txt,600,y,alice\n",
			expectedError: "/data/a.txt",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			baselinePath := filepath.Join(testInstance.TempDir(), testBaselineFileNameConstant)
			require.NoError(testInstance, os.WriteFile(baselinePath, []byte(testCase.content), 0o600))

			loaded, loadError := store.NewCSVBaselineStore(baselinePath).LoadBaseline()
			if len(testCase.expectedError) > 0 {
				require.Error(testInstance, loadError)
				require.Contains(testInstance, loadError.Error(), testCase.expectedError)
				return
			}
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedEntries, loaded.Entries())
		})
	}
}

func TestCSVBaselineStoreWritesOriginalHeader(testInstance *testing.T) {
	baselinePath := filepath.Join(testInstance.TempDir(), testBaselineFileNameConstant)
	baselineStore := store.NewCSVBaselineStore(baselinePath)

	baseline, baselineError := integrity.NewBaseline(nil)
	require.NoError(testInstance, baselineError)
	require.NoError(testInstance, baselineStore.SaveBaseline(baseline))

	content, readError := os.ReadFile(baselinePath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "File,Location,File Permission,File Hash (Sha256),File Owner\n", string(content))
}
