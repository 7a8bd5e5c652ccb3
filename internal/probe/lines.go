package probe

import "strings"

const lineSeparatorConstant = "\n"

// SplitLines splits text into lines. A trailing separator does not produce an empty final line.
func SplitLines(content string) []string {
	if len(content) == 0 {
		return []string{}
	}
	lines := strings.Split(content, lineSeparatorConstant)
	if strings.HasSuffix(content, lineSeparatorConstant) {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines is the inverse of SplitLines; every line is terminated by a separator.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, line := range lines {
		builder.WriteString(line)
		builder.WriteString(lineSeparatorConstant)
	}
	return builder.String()
}
