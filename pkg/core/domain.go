// Package core holds the board domain: columns, notes, the normalized store,
// the projection engine, the drag gesture resolver and the move coordinator.
package core

import "time"

// ColumnID identifies a column. Ids are assigned by the remote and never reused.
type ColumnID string

// NoteID identifies a note. Ids are assigned by the remote and never reused.
type NoteID string

const (
	MaxColumnTitle = 50
	MaxNoteTitle   = 100

	DefaultColumnColor = "#3B82F6"
	DefaultNoteColor   = "#FFFFFF"
)

// PresetColor is a named entry of the board palette.
type PresetColor struct {
	Name  string
	Value string
}

// PresetColors is the palette offered to callers creating columns and notes.
var PresetColors = []PresetColor{
	{Name: "blue", Value: "#3B82F6"},
	{Name: "green", Value: "#10B981"},
	{Name: "yellow", Value: "#F59E0B"},
	{Name: "red", Value: "#EF4444"},
	{Name: "purple", Value: "#8B5CF6"},
	{Name: "pink", Value: "#EC4899"},
	{Name: "cyan", Value: "#06B6D4"},
	{Name: "orange", Value: "#F97316"},
}

// Column is a named, colored grouping container for notes.
// Position and NoteCount are informational; the core orders columns by the
// sequence the remote returns.
type Column struct {
	ID        ColumnID  `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Color     string    `json:"color" yaml:"color"`
	Position  int       `json:"position" yaml:"position"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	NoteCount int       `json:"note_count,omitempty" yaml:"-"`
}

// Note is a titled content item belonging to exactly one column.
type Note struct {
	ID          NoteID    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Content     string    `json:"content" yaml:"content"`
	Color       string    `json:"color" yaml:"color"`
	Column      ColumnID  `json:"column" yaml:"column"`
	ColumnTitle string    `json:"column_title,omitempty" yaml:"-"`
	Position    int       `json:"position" yaml:"position"`
	IsArchived  bool      `json:"is_archived" yaml:"is_archived"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// ColumnDraft carries the fields needed to create a column.
type ColumnDraft struct {
	Title string `json:"title" validate:"required,notblank,max=50"`
	Color string `json:"color" validate:"required,rgbhex"`
}

// NoteDraft carries the fields needed to create a note.
type NoteDraft struct {
	Title   string   `json:"title" validate:"required,notblank,max=100"`
	Content string   `json:"content"`
	Column  ColumnID `json:"column" validate:"required"`
	Color   string   `json:"color" validate:"required,rgbhex"`
}

// ColumnPatch is a partial column update. Nil fields are left unchanged.
type ColumnPatch struct {
	Title *string `json:"title,omitempty" validate:"omitempty,notblank,max=50"`
	Color *string `json:"color,omitempty" validate:"omitempty,rgbhex"`
}

// NotePatch is a partial note update. Nil fields are left unchanged.
type NotePatch struct {
	Title      *string   `json:"title,omitempty" validate:"omitempty,notblank,max=100"`
	Content    *string   `json:"content,omitempty"`
	Color      *string   `json:"color,omitempty" validate:"omitempty,rgbhex"`
	Column     *ColumnID `json:"column,omitempty"`
	IsArchived *bool     `json:"is_archived,omitempty"`
}

// NoteFilter narrows a note listing. The zero value lists every note.
type NoteFilter struct {
	ColumnID   ColumnID
	IsArchived *bool
	Search     string
}

// IsZero reports whether the filter selects every note.
func (f NoteFilter) IsZero() bool {
	return f.ColumnID == "" && f.IsArchived == nil && f.Search == ""
}

// MoveIntent is the resolved interpretation of a drag gesture.
type MoveIntent struct {
	NoteID         NoteID   `json:"note_id"`
	TargetColumnID ColumnID `json:"target_column_id"`
	TargetIndex    int      `json:"target_index"`
}

// Move is the outcome of a dispatched move.
// Applied is false when the gesture resolved to nothing and no remote call was made.
// Reconciled is false when the post-move refetch failed; the moved note is still
// replaced with the authoritative object in that case.
type Move struct {
	Intent     MoveIntent `json:"intent"`
	Note       Note       `json:"note"`
	Applied    bool       `json:"applied"`
	Reconciled bool       `json:"reconciled"`
}

// Result is returned by every mutating board operation so callers always get a
// decision point instead of a panic.
type Result[T any] struct {
	Success bool
	Data    T
	Err     error
}

// Ok builds a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail builds a failed result.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Unwrap converts the result into the usual (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.Data, r.Err
}

// EventType represents the type of change observed on the board.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
	EventLoad   EventType = "LOAD"
	EventFilter EventType = "FILTER"
)

// EntityKind tells which entity an event refers to.
type EntityKind string

const (
	KindColumn EntityKind = "column"
	KindNote   EntityKind = "note"
	KindBoard  EntityKind = "board"
)

// Event represents a change in the store or in a backend.
type Event struct {
	Type      EventType
	Kind      EntityKind
	ID        string
	Version   uint64
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer.
func (e Event) String() string {
	if e.ID == "" {
		return string(e.Type) + " " + string(e.Kind)
	}
	return string(e.Type) + " " + string(e.Kind) + " " + e.ID
}
