package monitor

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded monitor configuration.
type ConfigurationProvider func() Configuration

// ConfirmationPrompter asks the operator a yes/no question.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// PrompterFactory creates confirmation prompters scoped to a Cobra command.
type PrompterFactory func(*cobra.Command) ConfirmationPrompter
