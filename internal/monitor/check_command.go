package monitor

import (
	"github.com/spf13/cobra"

	"github.com/temirov/fimon/internal/integrity"
	flagutils "github.com/temirov/fimon/internal/utils/flags"
)

const (
	checkUseConstant              = "check"
	checkShortDescriptionConstant = "Compare the monitored files against the accepted baseline"
	checkLongDescriptionConstant  = "check scans the monitored root, reports content, permission and owner drift, deleted and new files, and asks whether the changes are authorized. Authorized changes become the new baseline; otherwise the report file is kept for investigation."
	assumeYesFlagNameConstant     = "yes"
	assumeYesFlagShorthand        = "y"
	assumeYesFlagUsageConstant    = "Authorize detected changes without prompting."
)

// CheckCommandBuilder assembles the check command.
type CheckCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	PrompterFactory       PrompterFactory
	Prober                integrity.Prober
	Clock                 integrity.Clock
}

// Build constructs the check command.
func (builder *CheckCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   checkUseConstant,
		Short: checkShortDescriptionConstant,
		Long:  checkLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(rootFlagNameConstant, "", rootFlagUsageConstant)
	var formatValue string
	flagutils.AddChoiceFlag(command.Flags(), &formatValue, formatFlagNameConstant, defaultReportFormatConstant, reportFormatChoices, formatFlagUsageConstant)
	var assumeYes bool
	flagutils.AddToggleFlag(command.Flags(), &assumeYes, assumeYesFlagNameConstant, assumeYesFlagShorthand, false, assumeYesFlagUsageConstant)

	return command, nil
}

func (builder *CheckCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, format, optionsError := applyCommonFlags(command, resolveConfiguration(builder.ConfigurationProvider))
	if optionsError != nil {
		return optionsError
	}
	if command.Flags().Changed(assumeYesFlagNameConstant) {
		assumeYes, _ := command.Flags().GetBool(assumeYesFlagNameConstant)
		configuration.AssumeYes = assumeYes
	}

	logger := resolveLogger(builder.LoggerProvider)
	service := newCommandService(command, logger, builder.Prober, builder.Clock)

	var prompter ConfirmationPrompter
	if !configuration.AssumeYes {
		prompter = resolvePrompter(builder.PrompterFactory, command, logger, format)
	}

	_, checkError := service.Check(command.Context(), CheckOptions{
		Configuration: configuration,
		Prompter:      prompter,
		Format:        format,
		Styled:        outputIsTerminal(command.OutOrStdout()),
	})
	return checkError
}
