package integrity

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	changeLineTemplateConstant = "%s \"%s\" at Line %d"
	insertedMarkerConstant     = "+"
	deletedMarkerConstant      = "-"
	opCodeDelete               = 'd'
	opCodeInsert               = 'i'
	opCodeReplace              = 'r'
)

// LineOperation identifies whether a line was added or removed.
type LineOperation string

// Supported line operations.
const (
	LineInserted LineOperation = "inserted"
	LineDeleted  LineOperation = "deleted"
)

// ChangeLine describes one inserted or deleted line.
//
// LineNumber is the 1-based position of the first line carrying the same text in
// the sequence that contains it, so duplicated lines may share a number.
type ChangeLine struct {
	Operation  LineOperation `json:"operation" yaml:"operation"`
	Text       string        `json:"text" yaml:"text"`
	LineNumber int           `json:"line" yaml:"line"`
}

// String renders the line as `+ "text" at Line N`.
func (line ChangeLine) String() string {
	marker := insertedMarkerConstant
	if line.Operation == LineDeleted {
		marker = deletedMarkerConstant
	}
	return fmt.Sprintf(changeLineTemplateConstant, marker, strings.TrimSpace(line.Text), line.LineNumber)
}

// Diff aligns two line sequences and returns the inserted and deleted lines in edit order.
func Diff(oldLines []string, newLines []string) []ChangeLine {
	changes := []ChangeLine{}
	if slices.Equal(oldLines, newLines) {
		return changes
	}

	oldPositions := firstPositions(oldLines)
	newPositions := firstPositions(newLines)

	matcher := difflib.NewMatcherWithJunk(oldLines, newLines, false, nil)
	for _, opCode := range matcher.GetOpCodes() {
		switch opCode.Tag {
		case opCodeDelete:
			changes = appendLines(changes, LineDeleted, oldLines[opCode.I1:opCode.I2], oldPositions)
		case opCodeInsert:
			changes = appendLines(changes, LineInserted, newLines[opCode.J1:opCode.J2], newPositions)
		case opCodeReplace:
			changes = appendLines(changes, LineDeleted, oldLines[opCode.I1:opCode.I2], oldPositions)
			changes = appendLines(changes, LineInserted, newLines[opCode.J1:opCode.J2], newPositions)
		}
	}

	return changes
}

func appendLines(changes []ChangeLine, operation LineOperation, lines []string, positions map[string]int) []ChangeLine {
	for _, line := range lines {
		changes = append(changes, ChangeLine{
			Operation:  operation,
			Text:       line,
			LineNumber: positions[line],
		})
	}
	return changes
}

func firstPositions(lines []string) map[string]int {
	positions := make(map[string]int, len(lines))
	for index, line := range lines {
		if _, seen := positions[line]; seen {
			continue
		}
		positions[line] = index + 1
	}
	return positions
}
