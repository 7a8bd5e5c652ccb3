package monitor

import (
	"github.com/spf13/cobra"

	flagutils "github.com/temirov/fimon/internal/utils/flags"
)

const (
	baselineUseConstant              = "baseline"
	baselineShortDescriptionConstant = "Print the accepted baseline"
)

// BaselineCommandBuilder assembles the baseline command.
type BaselineCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
}

// Build constructs the baseline command.
func (builder *BaselineCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   baselineUseConstant,
		Short: baselineShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	var formatValue string
	flagutils.AddChoiceFlag(command.Flags(), &formatValue, formatFlagNameConstant, defaultReportFormatConstant, reportFormatChoices, formatFlagUsageConstant)

	return command, nil
}

func (builder *BaselineCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, format, optionsError := applyCommonFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	if optionsError != nil {
		return optionsError
	}

	service := newCommandService(command, resolveLogger(builder.LoggerProvider), nil, nil)
	return service.ShowBaseline(command.Context(), BaselineOptions{
		Configuration: configuration,
		Format:        format,
	})
}
