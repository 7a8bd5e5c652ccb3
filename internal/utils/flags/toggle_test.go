package flags_test

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/fimon/internal/utils/flags"
)

func TestAddToggleFlagParsesValues(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		defaultValue    bool
		expectedValue   bool
		expectedChanged bool
	}{
		{name: "default_false", arguments: []string{}, expectedValue: false},
		{name: "default_true", arguments: []string{}, defaultValue: true, expectedValue: true},
		{name: "implicit_true", arguments: []string{"--toggle"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_yes", arguments: []string{"--toggle=yes"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_uppercase_true", arguments: []string{"--toggle=TRUE"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_no", arguments: []string{"--toggle=no"}, defaultValue: true, expectedValue: false, expectedChanged: true},
		{name: "shorthand", arguments: []string{"-t"}, expectedValue: true, expectedChanged: true},
		{name: "positional_argument_untouched", arguments: []string{"--toggle", "/etc/hosts"}, expectedValue: true, expectedChanged: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			command := &cobra.Command{}

			var toggleValue bool
			flags.AddToggleFlag(command.Flags(), &toggleValue, "toggle", "t", testCase.defaultValue, "Toggle flag")

			require.NoError(testInstance, command.ParseFlags(testCase.arguments))
			require.Equal(testInstance, testCase.expectedValue, toggleValue)

			parsedValue, getError := command.Flags().GetBool("toggle")
			require.NoError(testInstance, getError)
			require.Equal(testInstance, testCase.expectedValue, parsedValue)
			require.Equal(testInstance, testCase.expectedChanged, command.Flags().Changed("toggle"))
		})
	}
}

func TestAddToggleFlagRejectsInvalidValues(testInstance *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	flags.AddToggleFlag(command.Flags(), &toggleValue, "toggle", "", false, "Toggle flag")

	require.Error(testInstance, command.ParseFlags([]string{"--toggle=maybe"}))
	require.False(testInstance, toggleValue)
}

func TestAddToggleFlagUsagePlaceholder(testInstance *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	flags.AddToggleFlag(command.Flags(), &toggleValue, "toggle", "", true, "Toggle flag")

	flag := command.Flags().Lookup("toggle")
	require.NotNil(testInstance, flag)
	require.Equal(testInstance, "`<YES|no>` Toggle flag", flag.Usage)
}
