package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/fimon/internal/utils"
)

const (
	testEnvironmentPrefixConstant     = "TESTFIMON"
	testConfigurationNameConstant     = "config"
	testConfigurationTypeConstant     = "yaml"
	testConfigFileNameConstant        = "config.yaml"
	testLogLevelKeyConstant           = "common.log_level"
	testLogLevelEnvironmentConstant   = "TESTFIMON_COMMON_LOG_LEVEL"
	testTimeoutEnvironmentConstant    = "TESTFIMON_MONITOR_TIMEOUT"
	testIgnoreEnvironmentConstant     = "TESTFIMON_MONITOR_IGNORE"
	testConfigContentTemplateConstant = "common:\n  log_level: %s\n"
)

type configurationFixture struct {
	Common  configurationCommonFixture  `mapstructure:"common"`
	Monitor configurationMonitorFixture `mapstructure:"monitor"`
}

type configurationCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type configurationMonitorFixture struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Ignore  []string      `mapstructure:"ignore"`
}

func TestConfigurationLoaderPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name                string
		embeddedLogLevel    string
		fileLogLevel        string
		environmentLogLevel string
		expectedLogLevel    string
	}{
		{name: "defaults_apply", expectedLogLevel: "info"},
		{name: "embedded_over_defaults", embeddedLogLevel: "debug", expectedLogLevel: "debug"},
		{name: "file_over_embedded", embeddedLogLevel: "debug", fileLogLevel: "warn", expectedLogLevel: "warn"},
		{name: "environment_over_file", embeddedLogLevel: "debug", fileLogLevel: "warn", environmentLogLevel: "error", expectedLogLevel: "error"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			configurationDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if len(testCase.fileLogLevel) > 0 {
				configurationFilePath = filepath.Join(configurationDirectory, testConfigFileNameConstant)
				require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(fmt.Sprintf(testConfigContentTemplateConstant, testCase.fileLogLevel)), 0o600))
			}
			if len(testCase.environmentLogLevel) > 0 {
				testInstance.Setenv(testLogLevelEnvironmentConstant, testCase.environmentLogLevel)
			}

			loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})
			if len(testCase.embeddedLogLevel) > 0 {
				loader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testConfigContentTemplateConstant, testCase.embeddedLogLevel)), testConfigurationTypeConstant)
			}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := loader.LoadConfiguration(configurationFilePath, map[string]any{testLogLevelKeyConstant: "info"}, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedLogLevel, loadedConfiguration.Common.LogLevel)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderSearchPaths(testInstance *testing.T) {
	firstDirectory := testInstance.TempDir()
	secondDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(secondDirectory, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(fmt.Sprintf(testConfigContentTemplateConstant, "warn")), 0o600))

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{firstDirectory, secondDirectory})
	loadedConfiguration := configurationFixture{}
	metadata, loadError := loader.LoadConfiguration("", map[string]any{testLogLevelKeyConstant: "info"}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", loadedConfiguration.Common.LogLevel)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
}

func TestConfigurationLoaderDecodesDurationsAndLists(testInstance *testing.T) {
	testInstance.Setenv(testTimeoutEnvironmentConstant, "90s")
	testInstance.Setenv(testIgnoreEnvironmentConstant, "*.log,*.tmp")

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})
	loader.SetEmbeddedConfiguration([]byte("monitor:\n  timeout: 5s\n  ignore: []\n"), testConfigurationTypeConstant)

	loadedConfiguration := configurationFixture{}
	_, loadError := loader.LoadConfiguration("", map[string]any{
		"monitor.timeout": time.Duration(0),
		"monitor.ignore":  []string{},
	}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 90*time.Second, loadedConfiguration.Monitor.Timeout)
	require.Equal(testInstance, []string{"*.log", "*.tmp"}, loadedConfiguration.Monitor.Ignore)
}

func TestConfigurationLoaderRejectsMissingExplicitFile(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
	_, loadError := loader.LoadConfiguration(filepath.Join(testInstance.TempDir(), "absent.yaml"), nil, &configurationFixture{})
	require.Error(testInstance, loadError)
}
