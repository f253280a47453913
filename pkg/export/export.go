// Package export renders a board snapshot as JSON, YAML or Markdown.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/noteboard/pkg/core"
)

// NoColumn titles the bucket of notes without a column.
const NoColumn = "No column"

// Supported formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "md"
)

// Snapshot is the exported shape of a board.
type Snapshot struct {
	ExportDate time.Time      `json:"exportDate" yaml:"export_date"`
	Columns    []ColumnRecord `json:"columns" yaml:"columns"`
	Notes      []NoteRecord   `json:"notes" yaml:"notes"`
}

// ColumnRecord is an exported column.
type ColumnRecord struct {
	ID    core.ColumnID `json:"id" yaml:"id"`
	Title string        `json:"title" yaml:"title"`
	Color string        `json:"color" yaml:"color"`
}

// NoteRecord is an exported note. Column holds the column title.
type NoteRecord struct {
	ID         core.NoteID `json:"id" yaml:"id"`
	Title      string      `json:"title" yaml:"title"`
	Content    string      `json:"content" yaml:"content"`
	Color      string      `json:"color" yaml:"color"`
	Column     string      `json:"column" yaml:"column"`
	IsArchived bool        `json:"isArchived" yaml:"is_archived"`
	CreatedAt  time.Time   `json:"createdAt" yaml:"created_at"`
	UpdatedAt  time.Time   `json:"updatedAt" yaml:"updated_at"`
}

// Build assembles a snapshot. Note column titles come from the note itself
// when the remote decorated it, otherwise from columns.
func Build(columns []core.Column, notes []core.Note, at time.Time) Snapshot {
	titles := make(map[core.ColumnID]string, len(columns))
	s := Snapshot{
		ExportDate: at.UTC(),
		Columns:    make([]ColumnRecord, 0, len(columns)),
		Notes:      make([]NoteRecord, 0, len(notes)),
	}
	for _, c := range columns {
		titles[c.ID] = c.Title
		s.Columns = append(s.Columns, ColumnRecord{ID: c.ID, Title: c.Title, Color: c.Color})
	}
	for _, n := range notes {
		column := n.ColumnTitle
		if column == "" {
			column = titles[n.Column]
		}
		if column == "" {
			column = NoColumn
		}
		s.Notes = append(s.Notes, NoteRecord{
			ID:         n.ID,
			Title:      n.Title,
			Content:    n.Content,
			Color:      n.Color,
			Column:     column,
			IsArchived: n.IsArchived,
			CreatedAt:  n.CreatedAt,
			UpdatedAt:  n.UpdatedAt,
		})
	}
	return s
}

// Write renders columns and notes in format.
func Write(w io.Writer, format string, columns []core.Column, notes []core.Note, at time.Time) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Build(columns, notes, at))
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Build(columns, notes, at)); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown, "markdown":
		_, err := io.WriteString(w, Markdown(columns, notes, at))
		return err
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Filename returns the conventional file name for an export taken at.
func Filename(format string, at time.Time) string {
	ext := strings.ToLower(format)
	if ext == "markdown" {
		ext = FormatMarkdown
	}
	return "noteboard-" + at.Format(time.DateOnly) + "." + ext
}

// Markdown groups notes under their column in board order, followed by the
// NoColumn bucket. Empty groups are omitted, and notes pointing at a column
// that is not in columns are left out.
func Markdown(columns []core.Column, notes []core.Note, at time.Time) string {
	type group struct {
		title string
		notes []core.Note
	}

	groups := make([]*group, 0, len(columns)+1)
	byID := make(map[core.ColumnID]*group, len(columns)+1)
	for _, c := range columns {
		g := &group{title: c.Title}
		groups = append(groups, g)
		byID[c.ID] = g
	}
	orphans := &group{title: NoColumn}
	groups = append(groups, orphans)
	byID[""] = orphans

	for _, n := range notes {
		if g, ok := byID[n.Column]; ok {
			g.notes = append(g.notes, n)
		}
	}

	var b strings.Builder
	b.WriteString("# Noteboard\n\n")
	fmt.Fprintf(&b, "**Exported:** %s\n\n", at.Format("January 2, 2006"))
	b.WriteString("---\n\n")

	for _, g := range groups {
		if len(g.notes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", g.title)
		for _, n := range g.notes {
			fmt.Fprintf(&b, "### %s\n\n", n.Title)
			if n.Content != "" {
				fmt.Fprintf(&b, "%s\n\n", n.Content)
			}
			if n.IsArchived {
				b.WriteString("*[Archived]*\n\n")
			}
			b.WriteString("---\n\n")
		}
	}
	return b.String()
}
