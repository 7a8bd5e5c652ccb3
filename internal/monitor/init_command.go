package monitor

import (
	"github.com/spf13/cobra"

	"github.com/temirov/fimon/internal/integrity"
	flagutils "github.com/temirov/fimon/internal/utils/flags"
)

const (
	initUseConstant              = "init [path ...]"
	initShortDescriptionConstant = "Record the initial baseline"
	initLongDescriptionConstant  = "init records the hash, permissions and owner of each file together with a content snapshot. Files come from the arguments, monitor.paths, monitor.paths_file or, when none are given, every file under the monitored root."
	forceFlagNameConstant        = "force"
	forceFlagUsageConstant       = "Replace an existing baseline."
)

// InitCommandBuilder assembles the init command.
type InitCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Prober                integrity.Prober
}

// Build constructs the init command.
func (builder *InitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   initUseConstant,
		Short: initShortDescriptionConstant,
		Long:  initLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(rootFlagNameConstant, "", rootFlagUsageConstant)
	var force bool
	flagutils.AddToggleFlag(command.Flags(), &force, forceFlagNameConstant, "", false, forceFlagUsageConstant)

	return command, nil
}

func (builder *InitCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, _, optionsError := applyCommonFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	if optionsError != nil {
		return optionsError
	}
	force, _ := command.Flags().GetBool(forceFlagNameConstant)

	logger := resolveLogger(builder.LoggerProvider)
	service := newCommandService(command, logger, builder.Prober, nil)

	_, initError := service.Initialize(command.Context(), InitOptions{
		Configuration: configuration,
		Paths:         arguments,
		Force:         force,
	})
	return initError
}
