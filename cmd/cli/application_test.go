package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/fimon/internal/monitor"
)

const testConfigurationTemplate = `common:
  log_level: error
monitor:
  root: %s
  baseline_file: %s
  snapshot_dir: %s
  report_file: %s
  lock_file: %s
  store: %s
  database: %s
`

type applicationFixture struct {
	configurationPath string
	monitoredRoot     string
	reportPath        string
}

func isolateUserDirectories(testInstance *testing.T) {
	testInstance.Helper()
	homeDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectory)
	testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectory, ".config"))
}

func newApplicationFixture(testInstance *testing.T, store string) applicationFixture {
	testInstance.Helper()
	isolateUserDirectories(testInstance)
	baseDirectory := testInstance.TempDir()
	monitoredRoot := filepath.Join(baseDirectory, "monitored")
	stateDirectory := filepath.Join(baseDirectory, "state")
	require.NoError(testInstance, os.MkdirAll(monitoredRoot, 0o755))

	fixture := applicationFixture{
		configurationPath: filepath.Join(baseDirectory, "config.yaml"),
		monitoredRoot:     monitoredRoot,
		reportPath:        filepath.Join(stateDirectory, "report.txt"),
	}
	configurationContent := fmt.Sprintf(
		testConfigurationTemplate,
		monitoredRoot,
		filepath.Join(stateDirectory, "baseline.csv"),
		filepath.Join(stateDirectory, "snapshots"),
		fixture.reportPath,
		filepath.Join(stateDirectory, "fimon.lock"),
		store,
		filepath.Join(stateDirectory, "fimon.db"),
	)
	require.NoError(testInstance, os.WriteFile(fixture.configurationPath, []byte(configurationContent), 0o600))
	return fixture
}

func runApplication(testInstance *testing.T, input string, arguments ...string) (string, error) {
	testInstance.Helper()
	application, buildError := NewApplication()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	application.rootCommand.SetOut(outputBuffer)
	application.rootCommand.SetErr(outputBuffer)
	application.rootCommand.SetIn(strings.NewReader(input))
	application.rootCommand.SetArgs(arguments)

	executionError := application.Execute()
	return outputBuffer.String(), executionError
}

func TestApplicationMonitorsFiles(testInstance *testing.T) {
	for _, store := range []string{"csv", "sqlite"} {
		testInstance.Run(store, func(testInstance *testing.T) {
			fixture := newApplicationFixture(testInstance, store)
			trackedPath := filepath.Join(fixture.monitoredRoot, "app.conf")
			require.NoError(testInstance, os.WriteFile(trackedPath, []byte("debug=false\n"), 0o644))

			_, missingError := runApplication(testInstance, "", "--config", fixture.configurationPath, "check")
			require.ErrorIs(testInstance, missingError, monitor.ErrBaselineMissing)

			initOutput, initError := runApplication(testInstance, "", "--config", fixture.configurationPath, "init")
			require.NoError(testInstance, initError)
			require.Contains(testInstance, initOutput, "Baseline recorded with 1 files.")

			cleanOutput, cleanError := runApplication(testInstance, "", "--config", fixture.configurationPath, "check")
			require.NoError(testInstance, cleanError)
			require.Contains(testInstance, cleanOutput, "File integrity checked, no changes found.")

			require.NoError(testInstance, os.WriteFile(trackedPath, []byte("debug=true\n"), 0o644))

			declinedOutput, declinedError := runApplication(testInstance, "n\n", "--config", fixture.configurationPath, "check")
			require.NoError(testInstance, declinedError)
			require.Contains(testInstance, declinedOutput, `Content changes: - "debug=false" at Line 1, + "debug=true" at Line 1`)
			require.Contains(testInstance, declinedOutput, "Changes not authorized")
			require.FileExists(testInstance, fixture.reportPath)

			approvedOutput, approvedError := runApplication(testInstance, "yes\n", "--config", fixture.configurationPath, "check")
			require.NoError(testInstance, approvedError)
			require.Contains(testInstance, approvedOutput, "Changes authorized; baseline updated (1 applied).")
			require.NoFileExists(testInstance, fixture.reportPath)

			baselineOutput, baselineError := runApplication(testInstance, "", "--config", fixture.configurationPath, "baseline", "--format", "json")
			require.NoError(testInstance, baselineError)
			require.Contains(testInstance, baselineOutput, trackedPath)
		})
	}
}

func TestApplicationDoesNotTrackConfigurationInsideRoot(testInstance *testing.T) {
	fixture := newApplicationFixture(testInstance, "csv")
	configurationContent, readError := os.ReadFile(fixture.configurationPath)
	require.NoError(testInstance, readError)
	rootConfigurationPath := filepath.Join(fixture.monitoredRoot, "config.yaml")
	require.NoError(testInstance, os.WriteFile(rootConfigurationPath, configurationContent, 0o600))
	require.NoError(testInstance, os.WriteFile(filepath.Join(fixture.monitoredRoot, "hosts"), []byte("127.0.0.1 localhost\n"), 0o644))

	initOutput, initError := runApplication(testInstance, "", "--config", rootConfigurationPath, "init")
	require.NoError(testInstance, initError)
	require.Contains(testInstance, initOutput, "Baseline recorded with 1 files.")

	checkOutput, checkError := runApplication(testInstance, "", "--config", rootConfigurationPath, "check")
	require.NoError(testInstance, checkError)
	require.Contains(testInstance, checkOutput, "File integrity checked, no changes found.")
}

func TestApplicationConfigurationSources(testInstance *testing.T) {
	testCases := []struct {
		name        string
		environment map[string]string
		arguments   []string
		validate    func(testInstance *testing.T, configuration ApplicationConfiguration)
	}{
		{
			name: "embedded_defaults",
			validate: func(testInstance *testing.T, configuration ApplicationConfiguration) {
				require.Equal(testInstance, "warn", configuration.Common.LogLevel)
				require.Equal(testInstance, "structured", configuration.Common.LogFormat)
				require.Equal(testInstance, ".", configuration.Monitor.Root)
				require.Equal(testInstance, "csv", configuration.Monitor.Store)
				require.Equal(testInstance, 30*time.Second, configuration.Monitor.LockTimeout)
				require.Equal(testInstance, 4, configuration.Monitor.Workers)
				require.Equal(testInstance, "name", configuration.Monitor.MatchBy)
				require.Empty(testInstance, configuration.Monitor.Ignore)
			},
		},
		{
			name: "environment_overrides",
			environment: map[string]string{
				"FIMON_MONITOR_MATCH_BY": "path",
				"FIMON_MONITOR_TIMEOUT":  "2m",
				"FIMON_MONITOR_IGNORE":   "*.swp,*.tmp",
			},
			validate: func(testInstance *testing.T, configuration ApplicationConfiguration) {
				require.Equal(testInstance, "path", configuration.Monitor.MatchBy)
				require.Equal(testInstance, 2*time.Minute, configuration.Monitor.Timeout)
				require.Equal(testInstance, []string{"*.swp", "*.tmp"}, configuration.Monitor.Ignore)
			},
		},
		{
			name:      "flags_override_logging",
			arguments: []string{"--log-level", "debug", "--log-format", "console"},
			validate: func(testInstance *testing.T, configuration ApplicationConfiguration) {
				require.Equal(testInstance, "debug", configuration.Common.LogLevel)
				require.Equal(testInstance, "console", configuration.Common.LogFormat)
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			isolateUserDirectories(testInstance)
			for name, value := range testCase.environment {
				testInstance.Setenv(name, value)
			}

			application, buildError := NewApplication()
			require.NoError(testInstance, buildError)
			require.NoError(testInstance, application.rootCommand.ParseFlags(testCase.arguments))
			require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))
			testCase.validate(testInstance, application.configuration)
		})
	}
}

func TestApplicationRejectsInvalidLogging(testInstance *testing.T) {
	isolateUserDirectories(testInstance)
	_, executionError := runApplication(testInstance, "", "--log-level", "chatty", "baseline")
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "unable to create logger")
}

func TestApplicationRegistersSubcommands(testInstance *testing.T) {
	application, buildError := NewApplication()
	require.NoError(testInstance, buildError)

	var names []string
	for _, subcommand := range application.rootCommand.Commands() {
		names = append(names, subcommand.Name())
	}
	require.Subset(testInstance, names, []string{"init", "check", "baseline"})
}
