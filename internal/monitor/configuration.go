package monitor

import (
	"strings"
	"time"

	pathutils "github.com/temirov/fimon/internal/utils/path"
)

const (
	configurationRootKeyConstant                 = "root"
	configurationBaselineFileKeyConstant         = "baseline_file"
	configurationSnapshotDirectoryKeyConstant    = "snapshot_dir"
	configurationStoreKeyConstant                = "store"
	configurationDatabaseKeyConstant             = "database"
	configurationReportFileKeyConstant           = "report_file"
	configurationReportFormatKeyConstant         = "report_format"
	configurationLockFileKeyConstant             = "lock_file"
	configurationLockTimeoutKeyConstant          = "lock_timeout"
	configurationIgnoreKeyConstant               = "ignore"
	configurationIncludeKeyConstant              = "include"
	configurationWorkersKeyConstant              = "workers"
	configurationTimeoutKeyConstant              = "timeout"
	configurationSplitMetadataChangesKeyConstant = "split_metadata_changes"
	configurationMatchByKeyConstant              = "match_by"
	configurationAssumeYesKeyConstant            = "assume_yes"
	configurationPathsKeyConstant                = "paths"
	configurationPathsFileKeyConstant            = "paths_file"
	configurationKeySeparatorConstant            = "."

	defaultRootConstant              = "."
	defaultBaselineFileConstant      = "baseline.csv"
	defaultSnapshotDirectoryConstant = "snapshots"
	defaultStoreConstant             = "csv"
	defaultDatabaseConstant          = "fimon.db"
	defaultReportFileConstant        = "report.txt"
	defaultReportFormatConstant      = "text"
	defaultLockFileConstant          = "fimon.lock"
	defaultLockTimeoutConstant       = 30 * time.Second
	defaultWorkersConstant           = 4
	defaultMatchByConstant           = "name"
)

var configurationHomeDirectoryExpander = pathutils.NewHomeExpander()

// Configuration captures persistent settings shared by the monitor commands.
type Configuration struct {
	Root                 string        `mapstructure:"root"`
	BaselineFile         string        `mapstructure:"baseline_file"`
	SnapshotDirectory    string        `mapstructure:"snapshot_dir"`
	Store                string        `mapstructure:"store"`
	DatabaseFile         string        `mapstructure:"database"`
	ReportFile           string        `mapstructure:"report_file"`
	ReportFormat         string        `mapstructure:"report_format"`
	LockFile             string        `mapstructure:"lock_file"`
	LockTimeout          time.Duration `mapstructure:"lock_timeout"`
	Ignore               []string      `mapstructure:"ignore"`
	Include              []string      `mapstructure:"include"`
	Workers              int           `mapstructure:"workers"`
	Timeout              time.Duration `mapstructure:"timeout"`
	SplitMetadataChanges bool          `mapstructure:"split_metadata_changes"`
	MatchBy              string        `mapstructure:"match_by"`
	AssumeYes            bool          `mapstructure:"assume_yes"`
	Paths                []string      `mapstructure:"paths"`
	PathsFile            string        `mapstructure:"paths_file"`
	// ConfigurationFile is the file the settings were loaded from; it is never reported as drift.
	ConfigurationFile string `mapstructure:"-"`
}

// DefaultConfiguration returns the settings used when nothing is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		Root:              defaultRootConstant,
		BaselineFile:      defaultBaselineFileConstant,
		SnapshotDirectory: defaultSnapshotDirectoryConstant,
		Store:             defaultStoreConstant,
		DatabaseFile:      defaultDatabaseConstant,
		ReportFile:        defaultReportFileConstant,
		ReportFormat:      defaultReportFormatConstant,
		LockFile:          defaultLockFileConstant,
		LockTimeout:       defaultLockTimeoutConstant,
		Ignore:            []string{},
		Include:           []string{},
		Workers:           defaultWorkersConstant,
		MatchBy:           defaultMatchByConstant,
		Paths:             []string{},
	}
}

// DefaultConfigurationValues produces Viper defaults for the monitor section rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	key := func(name string) string {
		return rootKey + configurationKeySeparatorConstant + name
	}
	return map[string]any{
		key(configurationRootKeyConstant):                 defaults.Root,
		key(configurationBaselineFileKeyConstant):         defaults.BaselineFile,
		key(configurationSnapshotDirectoryKeyConstant):    defaults.SnapshotDirectory,
		key(configurationStoreKeyConstant):                defaults.Store,
		key(configurationDatabaseKeyConstant):             defaults.DatabaseFile,
		key(configurationReportFileKeyConstant):           defaults.ReportFile,
		key(configurationReportFormatKeyConstant):         defaults.ReportFormat,
		key(configurationLockFileKeyConstant):             defaults.LockFile,
		key(configurationLockTimeoutKeyConstant):          defaults.LockTimeout,
		key(configurationIgnoreKeyConstant):               defaults.Ignore,
		key(configurationIncludeKeyConstant):              defaults.Include,
		key(configurationWorkersKeyConstant):              defaults.Workers,
		key(configurationTimeoutKeyConstant):              defaults.Timeout,
		key(configurationSplitMetadataChangesKeyConstant): defaults.SplitMetadataChanges,
		key(configurationMatchByKeyConstant):              defaults.MatchBy,
		key(configurationAssumeYesKeyConstant):            defaults.AssumeYes,
		key(configurationPathsKeyConstant):                defaults.Paths,
		key(configurationPathsFileKeyConstant):            defaults.PathsFile,
	}
}

// sanitize trims values, expands home shortcuts and restores defaults for unset fields.
func (configuration Configuration) sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.Root = sanitizePath(configuration.Root, defaults.Root)
	sanitized.BaselineFile = sanitizePath(configuration.BaselineFile, defaults.BaselineFile)
	sanitized.SnapshotDirectory = sanitizePath(configuration.SnapshotDirectory, defaults.SnapshotDirectory)
	sanitized.DatabaseFile = sanitizePath(configuration.DatabaseFile, defaults.DatabaseFile)
	sanitized.ReportFile = sanitizePath(configuration.ReportFile, defaults.ReportFile)
	sanitized.LockFile = sanitizePath(configuration.LockFile, "")
	sanitized.PathsFile = sanitizePath(configuration.PathsFile, "")
	sanitized.ConfigurationFile = sanitizePath(configuration.ConfigurationFile, "")
	sanitized.Store = sanitizeValue(configuration.Store, defaults.Store)
	sanitized.ReportFormat = sanitizeValue(configuration.ReportFormat, defaults.ReportFormat)
	sanitized.MatchBy = sanitizeValue(configuration.MatchBy, defaults.MatchBy)
	sanitized.Ignore = sanitizeList(configuration.Ignore, false)
	sanitized.Include = sanitizeList(configuration.Include, false)
	sanitized.Paths = sanitizeList(configuration.Paths, true)

	if sanitized.Workers <= 0 {
		sanitized.Workers = defaults.Workers
	}
	if sanitized.Timeout < 0 {
		sanitized.Timeout = 0
	}
	if sanitized.LockTimeout < 0 {
		sanitized.LockTimeout = 0
	}
	return sanitized
}

func sanitizePath(raw string, fallback string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fallback
	}
	return configurationHomeDirectoryExpander.Expand(trimmed)
}

func sanitizeValue(raw string, fallback string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if len(trimmed) == 0 {
		return fallback
	}
	return trimmed
}

func sanitizeList(raw []string, expandHome bool) []string {
	sanitized := make([]string, 0, len(raw))
	for _, value := range raw {
		trimmed := strings.TrimSpace(value)
		if len(trimmed) == 0 {
			continue
		}
		if expandHome {
			trimmed = configurationHomeDirectoryExpander.Expand(trimmed)
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
