package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/temirov/fimon/internal/integrity"
)

const (
	timestampLayoutConstant          = "2006-01-02 15:04:05"
	missingValueConstant             = "None"
	contentChangeSeparatorConstant   = ", "
	relativePastSuffixConstant       = "ago"
	relativeFutureSuffixConstant     = "from now"
	timestampLineTemplate            = "Timestamp: %s\n"
	relativeTimestampLineTemplate    = "Timestamp: %s (%s)\n"
	fileLineTemplate                 = "File: %s (Path: %s)\n"
	changeTypeLineTemplate           = "Change type: %s\n"
	permissionsLineTemplate          = "Expected permissions: %s, Current permissions: %s\n"
	hashLineTemplate                 = "Expected hash: %s, Current hash: %s\n"
	ownerLineTemplate                = "Expected owner: %s, Current owner: %s\n"
	contentChangesLineTemplate       = "Content changes: %s\n"
	faultLineTemplate                = "Fault: %v\n"
	unevaluatedLineTemplate          = "Unevaluated: %s (%v)\n"
	kindContentModifiedLabel         = "content modified"
	kindPermissionOrOwnerChangeLabel = "permission or owner changed"
	kindDeletedLabel                 = "file deleted"
	kindAddedLabel                   = "new file added"
)

var (
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	addedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	kindLabelMap = map[integrity.ChangeKind]string{
		integrity.KindContentModified:          kindContentModifiedLabel,
		integrity.KindPermissionOrOwnerChanged: kindPermissionOrOwnerChangeLabel,
		integrity.KindDeleted:                  kindDeletedLabel,
		integrity.KindAdded:                    kindAddedLabel,
	}
)

// TextRenderer writes one block per change event in the investigation report layout.
type TextRenderer struct {
	Styled bool
	Now    func() time.Time
}

// Render implements Renderer.
func (renderer TextRenderer) Render(writer io.Writer, result integrity.ScanResult) error {
	builder := &strings.Builder{}
	for _, event := range result.Events {
		renderer.writeEvent(builder, event)
	}
	for _, fault := range result.Unevaluated {
		fmt.Fprintf(builder, unevaluatedLineTemplate, fault.Path, fault.Err)
	}
	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func (renderer TextRenderer) writeEvent(builder *strings.Builder, event integrity.ChangeEvent) {
	detectedAt := event.DetectedAt.Local().Format(timestampLayoutConstant)
	if renderer.Now != nil {
		relative := humanize.RelTime(event.DetectedAt, renderer.Now(), relativePastSuffixConstant, relativeFutureSuffixConstant)
		fmt.Fprintf(builder, relativeTimestampLineTemplate, detectedAt, renderer.style(subtleStyle, relative))
	} else {
		fmt.Fprintf(builder, timestampLineTemplate, detectedAt)
	}

	fmt.Fprintf(builder, fileLineTemplate, event.Name, renderer.style(pathStyle, event.Path))

	kindStyle := alertStyle
	if event.Kind == integrity.KindAdded {
		kindStyle = addedStyle
	}
	fmt.Fprintf(builder, changeTypeLineTemplate, renderer.style(kindStyle, KindLabel(event.Kind)))

	expected := stateValues(event.Expected)
	current := stateValues(event.Current)
	fmt.Fprintf(builder, permissionsLineTemplate, expected.Permissions, current.Permissions)
	fmt.Fprintf(builder, hashLineTemplate, expected.ContentHash, current.ContentHash)
	fmt.Fprintf(builder, ownerLineTemplate, expected.Owner, current.Owner)

	if event.Kind == integrity.KindContentModified {
		renderedLines := make([]string, 0, len(event.ContentDiff))
		for _, changeLine := range event.ContentDiff {
			renderedLines = append(renderedLines, changeLine.String())
		}
		fmt.Fprintf(builder, contentChangesLineTemplate, strings.Join(renderedLines, contentChangeSeparatorConstant))
	}
	if event.Fault != nil {
		fmt.Fprintf(builder, faultLineTemplate, event.Fault)
	}
	builder.WriteString("\n")
}

func (renderer TextRenderer) style(style lipgloss.Style, text string) string {
	if !renderer.Styled {
		return text
	}
	return style.Render(text)
}

// KindLabel returns the human-readable name of kind.
func KindLabel(kind integrity.ChangeKind) string {
	if label, known := kindLabelMap[kind]; known {
		return label
	}
	return string(kind)
}

func stateValues(state *integrity.FileState) integrity.FileState {
	if state == nil {
		return integrity.FileState{
			Permissions: missingValueConstant,
			ContentHash: missingValueConstant,
			Owner:       missingValueConstant,
		}
	}
	return *state
}
