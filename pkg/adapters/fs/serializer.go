package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/noteboard/pkg/core"
)

// Document is the on-disk shape of a board.
type Document struct {
	Columns []core.Column `json:"columns" yaml:"columns"`
	Notes   []core.Note   `json:"notes" yaml:"notes"`
}

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads a board document from r.
	Parse(r io.Reader) (*Document, error)
	// Serialize converts the document to bytes.
	Serialize(doc *Document) ([]byte, error)
}

// DefaultSerializers returns the supported board formats keyed by extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{},
	}
}

// --- JSON Serializer ---

// JSONSerializer handles board.json.
type JSONSerializer struct{}

func (JSONSerializer) Parse(r io.Reader) (*Document, error) {
	doc := &Document{}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		if err == io.EOF {
			return doc, nil
		}
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return doc, nil
}

func (JSONSerializer) Serialize(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(clean(doc), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// --- YAML Serializer ---

// YAMLSerializer handles board.yaml, the default format.
type YAMLSerializer struct{}

func (YAMLSerializer) Parse(r io.Reader) (*Document, error) {
	doc := &Document{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil {
		if err == io.EOF {
			return doc, nil
		}
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return doc, nil
}

func (YAMLSerializer) Serialize(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(clean(doc)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// clean drops the derived fields so they are never persisted. YAML skips them
// through struct tags; JSON needs the zero values for omitempty to apply.
func clean(doc *Document) *Document {
	out := &Document{
		Columns: make([]core.Column, len(doc.Columns)),
		Notes:   make([]core.Note, len(doc.Notes)),
	}
	for i, c := range doc.Columns {
		c.NoteCount = 0
		out.Columns[i] = c
	}
	for i, n := range doc.Notes {
		n.ColumnTitle = ""
		out.Notes[i] = n
	}
	return out
}
