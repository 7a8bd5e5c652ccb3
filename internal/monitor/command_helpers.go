package monitor

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/fimon/internal/integrity"
	"github.com/temirov/fimon/internal/report"
)

const (
	rootFlagNameConstant          = "root"
	rootFlagUsageConstant         = "Directory to monitor (overrides monitor.root)."
	formatFlagNameConstant        = "format"
	formatFlagUsageConstant       = "Output format (overrides monitor.report_format)."
	nonInteractiveMessageConstant = "standard input is not a terminal; changes left unauthorized"
)

var reportFormatChoices = []string{string(report.FormatText), string(report.FormatJSON), string(report.FormatYAML)}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveConfiguration(provider ConfigurationProvider) Configuration {
	if provider == nil {
		return DefaultConfiguration()
	}
	return provider().sanitize()
}

// applyCommonFlags overlays --root and --format onto configuration when they were given.
func applyCommonFlags(command *cobra.Command, configuration Configuration) (Configuration, report.Format, error) {
	if command.Flags().Changed(rootFlagNameConstant) {
		rootValue, _ := command.Flags().GetString(rootFlagNameConstant)
		configuration.Root = rootValue
	}
	if command.Flags().Changed(formatFlagNameConstant) {
		formatValue, _ := command.Flags().GetString(formatFlagNameConstant)
		configuration.ReportFormat = formatValue
	}
	configuration = configuration.sanitize()

	format, formatError := report.ParseFormat(configuration.ReportFormat)
	if formatError != nil {
		return Configuration{}, "", formatError
	}
	return configuration, format, nil
}

// resolvePrompter writes the prompt to standard error for machine-readable formats so
// standard output carries only the rendered document.
func resolvePrompter(factory PrompterFactory, command *cobra.Command, logger *zap.Logger, format report.Format) ConfirmationPrompter {
	if factory != nil {
		if prompter := factory(command); prompter != nil {
			return prompter
		}
	}
	input := command.InOrStdin()
	if inputFile, isFile := input.(*os.File); isFile && !isTerminal(inputFile) {
		logger.Warn(nonInteractiveMessageConstant)
		return declinedConfirmationPrompter{}
	}
	promptOutput := command.OutOrStdout()
	if format != report.FormatText {
		promptOutput = command.ErrOrStderr()
	}
	return NewIOConfirmationPrompter(input, promptOutput)
}

func newCommandService(command *cobra.Command, logger *zap.Logger, prober integrity.Prober, clock integrity.Clock) *Service {
	return NewService(logger, ServiceDependencies{
		Prober:      prober,
		Clock:       clock,
		Output:      command.OutOrStdout(),
		ErrorOutput: command.ErrOrStderr(),
	})
}

func outputIsTerminal(output io.Writer) bool {
	outputFile, isFile := output.(*os.File)
	return isFile && isTerminal(outputFile)
}

func isTerminal(file *os.File) bool {
	descriptor := file.Fd()
	return isatty.IsTerminal(descriptor) || isatty.IsCygwinTerminal(descriptor)
}
