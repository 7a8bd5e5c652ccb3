package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/temirov/fimon/internal/integrity"
)

// Format names a report encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const unsupportedFormatTemplate = "unsupported report format %q"

// ParseFormat converts a flag value into a Format. Empty selects FormatText.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplate, value)
	}
}

// Renderer writes a scan result to an output stream.
type Renderer interface {
	Render(writer io.Writer, result integrity.ScanResult) error
}

// RendererOptions tunes the text renderer. Machine formats ignore it.
type RendererOptions struct {
	// Styled highlights headings for terminal output.
	Styled bool
	// Now, when set, adds relative detection times computed against it.
	Now func() time.Time
}

// NewRenderer returns the renderer for format.
func NewRenderer(format Format, options RendererOptions) (Renderer, error) {
	switch format {
	case FormatText, "":
		return TextRenderer{Styled: options.Styled, Now: options.Now}, nil
	case FormatJSON:
		return JSONRenderer{}, nil
	case FormatYAML:
		return YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplate, format)
	}
}
