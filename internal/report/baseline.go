package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/temirov/fimon/internal/integrity"
)

const (
	baselineTableColumnPadding = 2
	baselineTableLineEnding    = "\n"
)

var (
	baselineTableHeaders    = []string{"FILE", "LOCATION", "PERMISSIONS", "OWNER", "SHA256"}
	baselineTableCellStyle  = lipgloss.NewStyle().PaddingRight(baselineTableColumnPadding)
	baselineTableFinalStyle = lipgloss.NewStyle()
)

// RenderBaseline writes the accepted baseline in format.
func RenderBaseline(writer io.Writer, format Format, baseline integrity.Baseline) error {
	entries := baseline.Entries()
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent(jsonIndentPrefixConstant, jsonIndentConstant)
		return encoder.Encode(entries)
	case FormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		if encodeError := encoder.Encode(entries); encodeError != nil {
			return encodeError
		}
		return encoder.Close()
	case FormatText, "":
		_, writeError := io.WriteString(writer, baselineTable(entries).String()+baselineTableLineEnding)
		return writeError
	default:
		return fmt.Errorf(unsupportedFormatTemplate, format)
	}
}

func baselineTable(entries []integrity.BaselineEntry) *table.Table {
	lastColumn := len(baselineTableHeaders) - 1
	baselineRows := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Headers(baselineTableHeaders...).
		StyleFunc(func(_ int, column int) lipgloss.Style {
			if column == lastColumn {
				return baselineTableFinalStyle
			}
			return baselineTableCellStyle
		})
	for _, entry := range entries {
		baselineRows.Row(entry.Name, entry.Path, entry.Permissions, entry.Owner, entry.ContentHash)
	}
	return baselineRows
}
