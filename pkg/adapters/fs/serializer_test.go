package fs

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/noteboard/pkg/core"
)

func sampleDocument() *Document {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Document{
		Columns: []core.Column{{ID: "c1", Title: "Todo", Color: "#3B82F6", CreatedAt: at, NoteCount: 4}},
		Notes: []core.Note{{
			ID: "n1", Title: "Write", Content: "line one\nline two", Color: "#FFFFFF",
			Column: "c1", ColumnTitle: "Todo", Position: 0, CreatedAt: at, UpdatedAt: at,
		}},
	}
}

func TestSerializers_DropDerivedFields(t *testing.T) {
	for ext, s := range DefaultSerializers() {
		t.Run(ext, func(t *testing.T) {
			data, err := s.Serialize(sampleDocument())
			require.NoError(t, err)
			assert.NotContains(t, string(data), "note_count")
			assert.NotContains(t, string(data), "column_title")

			doc, err := s.Parse(bytes.NewReader(data))
			require.NoError(t, err)
			require.Len(t, doc.Notes, 1)
			assert.Equal(t, "line one\nline two", doc.Notes[0].Content)
			assert.True(t, doc.Notes[0].CreatedAt.Equal(sampleDocument().Notes[0].CreatedAt))
			assert.Empty(t, doc.Notes[0].ColumnTitle)
		})
	}
}

func TestSerializers_EmptyInput(t *testing.T) {
	for ext, s := range DefaultSerializers() {
		doc, err := s.Parse(strings.NewReader(""))
		require.NoError(t, err, ext)
		assert.Empty(t, doc.Columns, ext)
	}
}

func TestSerializers_RejectUnknownFields(t *testing.T) {
	_, err := YAMLSerializer{}.Parse(strings.NewReader("columns: []\nlanes: []\n"))
	assert.Error(t, err)

	_, err = JSONSerializer{}.Parse(strings.NewReader(`{"columns": [], "lanes": []}`))
	assert.Error(t, err)
}
