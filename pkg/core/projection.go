package core

import (
	"slices"
	"strings"
	"sync"
)

// Matches reports whether n is visible under the given filters: the query,
// when not empty, must appear case-insensitively in the title or the content,
// and the archived flag must equal showArchived.
func Matches(n Note, query string, showArchived bool) bool {
	if n.IsArchived != showArchived {
		return false
	}
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

type slot struct {
	column ColumnID
	index  int
}

// View is an immutable projection of one store version: visible notes grouped
// by column, in store order. Orphaned notes are absent from every column.
type View struct {
	version  uint64
	columns  []Column
	byColumn map[ColumnID][]Note
	slots    map[NoteID]slot
	visible  []Note
}

// BuildView filters and groups a snapshot.
func BuildView(s Snapshot) *View {
	v := &View{
		version:  s.Version,
		columns:  s.Columns,
		byColumn: make(map[ColumnID][]Note, len(s.Columns)),
		slots:    make(map[NoteID]slot),
	}
	for _, c := range s.Columns {
		v.byColumn[c.ID] = nil
	}

	for _, n := range s.Notes {
		list, ok := v.byColumn[n.Column]
		if !ok {
			continue
		}
		if !Matches(n, s.SearchQuery, s.ShowArchived) {
			continue
		}
		v.slots[n.ID] = slot{column: n.Column, index: len(list)}
		v.byColumn[n.Column] = append(list, n)
		v.visible = append(v.visible, n)
	}
	return v
}

// Version is the store version the view was built from.
func (v *View) Version() uint64 { return v.version }

// Columns returns the columns in store order.
func (v *View) Columns() []Column { return slices.Clone(v.columns) }

// HasColumn reports whether id names a column of the board.
func (v *View) HasColumn(id ColumnID) bool {
	_, ok := v.byColumn[id]
	return ok
}

// NotesInColumn returns a fresh ordered copy of the visible notes in a column.
func (v *View) NotesInColumn(id ColumnID) []Note {
	return slices.Clone(v.byColumn[id])
}

// Visible returns every visible note, in store order.
func (v *View) Visible() []Note { return slices.Clone(v.visible) }

// Locate finds a visible note: its column and its index within that column.
func (v *View) Locate(id NoteID) (ColumnID, int, bool) {
	s, ok := v.slots[id]
	return s.column, s.index, ok
}

// Note returns a visible note by id.
func (v *View) Note(id NoteID) (Note, bool) {
	s, ok := v.slots[id]
	if !ok {
		return Note{}, false
	}
	return v.byColumn[s.column][s.index], true
}

// Projection derives views from a store. Views are memoized on the store
// version, so a result never outlives the mutation that invalidates it.
type Projection struct {
	store *Store

	mu     sync.Mutex
	cached *View
}

// NewProjection creates a projection engine over store.
func NewProjection(store *Store) *Projection {
	return &Projection{store: store}
}

// View returns the view for the current store version.
func (p *Projection) View() *View {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.cached.version == p.store.Version() {
		return p.cached
	}
	p.cached = BuildView(p.store.Snapshot())
	return p.cached
}

// NotesInColumn returns the filtered, ordered notes of a column.
func (p *Projection) NotesInColumn(id ColumnID) []Note {
	return p.View().NotesInColumn(id)
}

// Filtered returns every visible note across columns.
func (p *Projection) Filtered() []Note {
	return p.View().Visible()
}
