package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTrueValue          = "true"
	toggleFalseValue         = "false"
	toggleTypeName           = "bool"
	toggleParseErrorTemplate = "invalid toggle value %q"
	toggleTruePlaceholder    = "<YES|no>"
	toggleFalsePlaceholder   = "<yes|NO>"
	toggleUsageTemplate      = "`%s` %s"
	toggleUsageNoDescription = "`%s`"
)

var (
	toggleTrueLiterals  = []string{"true", "yes", "on", "1", "t", "y"}
	toggleFalseLiterals = []string{"false", "no", "off", "0", "f", "n"}
)

type toggleValue struct {
	target *bool
}

// AddToggleFlag registers a boolean flag that also accepts yes/no, on/off and 1/0.
// A bare flag sets the value to true.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	*target = defaultValue

	flag := flagSet.VarPF(&toggleValue{target: target}, name, shorthand, formatToggleUsage(usage, defaultValue))
	flag.NoOptDefVal = toggleTrueValue
}

func (value *toggleValue) Set(rawValue string) error {
	parsedValue, parseError := ParseToggle(rawValue)
	if parseError != nil {
		return parseError
	}
	*value.target = parsedValue
	return nil
}

func (value *toggleValue) String() string {
	if value == nil || value.target == nil || !*value.target {
		return toggleFalseValue
	}
	return toggleTrueValue
}

func (value *toggleValue) Type() string {
	return toggleTypeName
}

// ParseToggle interprets a toggle literal. An empty value means true.
func ParseToggle(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	for _, literal := range toggleTrueLiterals {
		if normalizedValue == literal {
			return true, nil
		}
	}
	for _, literal := range toggleFalseLiterals {
		if normalizedValue == literal {
			return false, nil
		}
	}
	return false, fmt.Errorf(toggleParseErrorTemplate, rawValue)
}

func formatToggleUsage(description string, defaultValue bool) string {
	placeholder := toggleFalsePlaceholder
	if defaultValue {
		placeholder = toggleTruePlaceholder
	}
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(toggleUsageNoDescription, placeholder)
	}
	return fmt.Sprintf(toggleUsageTemplate, placeholder, trimmedDescription)
}
