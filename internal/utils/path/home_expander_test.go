package pathutils_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/fimon/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	lookups := 0
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		lookups++
		return "/home/operator", nil
	})

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_tilde", input: "~", expected: "/home/operator"},
		{name: "tilde_slash", input: "~/state/baseline.csv", expected: "/home/operator/state/baseline.csv"},
		{name: "other_user", input: "~root/file", expected: "~root/file"},
		{name: "absolute", input: "/etc/passwd", expected: "/etc/passwd"},
		{name: "relative", input: "snapshots", expected: "snapshots"},
		{name: "empty", input: "", expected: ""},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, expander.Expand(testCase.input))
		})
	}
	require.Equal(testInstance, 1, lookups)
}

func TestHomeExpanderWithoutHome(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/file", expander.Expand("~/file"))

	var nilExpander *pathutils.HomeExpander
	require.Equal(testInstance, "~/file", nilExpander.Expand("~/file"))
}
