package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/mdbatch/core"
)

// documentJSON is the JSON companion written next to each Markdown file.
type documentJSON struct {
	Metadata core.PageMetadata `json:"metadata"`
	Markdown string            `json:"markdown"`
	Outline  Outline           `json:"outline"`
}

// JSONEncoder writes the document and its outline as indented JSON.
type JSONEncoder struct{}

// NewJSONEncoder creates a JSONEncoder.
func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

// Encode marshals doc with its parsed outline.
func (e *JSONEncoder) Encode(doc core.Document) ([]byte, error) {
	data, err := json.MarshalIndent(documentJSON{
		Metadata: doc.Meta,
		Markdown: doc.Markdown,
		Outline:  ParseOutline(doc.Markdown),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (e *JSONEncoder) Extension() string {
	return ".json"
}
