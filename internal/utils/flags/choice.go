package flags

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderPrefix  = "<"
	choicePlaceholderSuffix  = ">"
	choiceSeparator          = "|"
	choiceTypeName           = "string"
	choiceUsageTemplate      = "`%s` %s"
	choiceUsageEmptyTemplate = "`%s`"
	choiceInvalidTemplate    = "invalid value %q; expected one of %s"
)

type choiceValue struct {
	target  *string
	choices []string
}

// AddChoiceFlag registers a string flag restricted to choices, compared case-insensitively.
// The highlighted choice in the usage text is defaultChoice, which is what applies
// when the flag is omitted; target itself stays empty until the flag is set.
func AddChoiceFlag(flagSet *pflag.FlagSet, target *string, name string, defaultChoice string, choices []string, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	normalizedChoices := make([]string, 0, len(choices))
	for _, choice := range choices {
		normalizedChoice := strings.ToLower(strings.TrimSpace(choice))
		if len(normalizedChoice) == 0 || slices.Contains(normalizedChoices, normalizedChoice) {
			continue
		}
		normalizedChoices = append(normalizedChoices, normalizedChoice)
	}
	flagSet.Var(&choiceValue{target: target, choices: normalizedChoices}, name, FormatChoiceUsage(defaultChoice, normalizedChoices, usage))
}

func (value *choiceValue) Set(rawValue string) error {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if !slices.Contains(value.choices, normalizedValue) {
		return fmt.Errorf(choiceInvalidTemplate, rawValue, strings.Join(value.choices, choiceSeparator))
	}
	*value.target = normalizedValue
	return nil
}

func (value *choiceValue) String() string {
	if value == nil || value.target == nil {
		return ""
	}
	return *value.target
}

func (value *choiceValue) Type() string {
	return choiceTypeName
}

// FormatChoiceUsage builds a usage string whose placeholder lists choices with defaultChoice capitalized.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	displayed := make([]string, 0, len(choices))
	for _, choice := range choices {
		if strings.EqualFold(choice, normalizedDefault) {
			displayed = append(displayed, strings.ToUpper(choice))
			continue
		}
		displayed = append(displayed, choice)
	}
	placeholder := choicePlaceholderPrefix + strings.Join(displayed, choiceSeparator) + choicePlaceholderSuffix

	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageTemplate, placeholder, trimmedDescription)
}
