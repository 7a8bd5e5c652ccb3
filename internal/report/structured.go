package report

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/temirov/fimon/internal/integrity"
)

const (
	jsonIndentPrefixConstant = ""
	jsonIndentConstant       = "  "
	yamlIndentConstant       = 2
)

type scanDocument struct {
	ScanID      string                  `json:"scan_id" yaml:"scan_id"`
	Root        string                  `json:"root" yaml:"root"`
	StartedAt   time.Time               `json:"started_at" yaml:"started_at"`
	Tracked     int                     `json:"tracked" yaml:"tracked"`
	Discovered  int                     `json:"discovered" yaml:"discovered"`
	Events      []eventDocument         `json:"events" yaml:"events"`
	Unevaluated []unevaluatedFileRecord `json:"unevaluated,omitempty" yaml:"unevaluated,omitempty"`
}

type eventDocument struct {
	integrity.ChangeEvent `yaml:",inline"`
	Fault                 string `json:"fault,omitempty" yaml:"fault,omitempty"`
}

type unevaluatedFileRecord struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

func newScanDocument(result integrity.ScanResult) scanDocument {
	document := scanDocument{
		ScanID:     result.ScanID,
		Root:       result.Root,
		StartedAt:  result.StartedAt,
		Tracked:    result.TrackedCount,
		Discovered: result.DiscoveredCount,
		Events:     make([]eventDocument, 0, len(result.Events)),
	}
	for _, event := range result.Events {
		record := eventDocument{ChangeEvent: event}
		if event.Fault != nil {
			record.Fault = event.Fault.Error()
		}
		document.Events = append(document.Events, record)
	}
	for _, fault := range result.Unevaluated {
		document.Unevaluated = append(document.Unevaluated, unevaluatedFileRecord{Path: fault.Path, Error: fault.Err.Error()})
	}
	return document
}

// JSONRenderer writes the scan result as an indented JSON document.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(writer io.Writer, result integrity.ScanResult) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent(jsonIndentPrefixConstant, jsonIndentConstant)
	return encoder.Encode(newScanDocument(result))
}

// YAMLRenderer writes the scan result as a YAML document.
type YAMLRenderer struct{}

// Render implements Renderer.
func (YAMLRenderer) Render(writer io.Writer, result integrity.ScanResult) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(newScanDocument(result)); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}
