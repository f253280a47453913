package core

import (
	"slices"
	"sync"
	"time"
)

// Snapshot is a consistent, detached copy of the store state.
type Snapshot struct {
	Columns      []Column
	Notes        []Note
	SearchQuery  string
	ShowArchived bool
	Version      uint64
}

// Store is the normalized, canonical local copy of the board.
// It is mutated only through its methods; every write bumps Version and is
// applied under a single lock, so readers never observe half a mutation.
type Store struct {
	mu           sync.RWMutex
	columns      []Column
	notes        []Note
	searchQuery  string
	showArchived bool
	version      uint64

	subs    map[int]chan Event
	nextSub int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[int]chan Event)}
}

// LoadColumns replaces every column. Stale entries are discarded wholesale.
func (s *Store) LoadColumns(columns []Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = slices.Clone(columns)
	s.commit(EventLoad, KindColumn, "")
}

// LoadNotes replaces every note. Stale entries are discarded wholesale.
func (s *Store) LoadNotes(notes []Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = slices.Clone(notes)
	s.commit(EventLoad, KindNote, "")
}

// Replace swaps columns and notes together, so no reader sees notes of a
// previous load next to columns of the current one.
func (s *Store) Replace(columns []Column, notes []Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = slices.Clone(columns)
	s.notes = slices.Clone(notes)
	s.commit(EventLoad, KindBoard, "")
}

// InsertColumn appends c, or replaces the column holding the same id.
func (s *Store) InsertColumn(c Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.columnIndex(c.ID); i >= 0 {
		s.columns[i] = c
		s.commit(EventModify, KindColumn, string(c.ID))
		return
	}
	s.columns = append(s.columns, c)
	s.commit(EventCreate, KindColumn, string(c.ID))
}

// ReplaceColumn swaps the stored column with the same id for c.
// It reports false, and changes nothing, when the id is unknown.
func (s *Store) ReplaceColumn(c Column) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.columnIndex(c.ID)
	if i < 0 {
		return false
	}
	s.columns[i] = c
	s.commit(EventModify, KindColumn, string(c.ID))
	return true
}

// RemoveColumn deletes the column and, in the same step, every note that
// references it. It returns the number of cascaded notes.
func (s *Store) RemoveColumn(id ColumnID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.columnIndex(id)
	if i < 0 {
		return 0, false
	}
	s.columns = slices.Delete(s.columns, i, i+1)

	before := len(s.notes)
	s.notes = slices.DeleteFunc(s.notes, func(n Note) bool { return n.Column == id })
	s.commit(EventDelete, KindColumn, string(id))
	return before - len(s.notes), true
}

// InsertNote appends n, or replaces the note holding the same id.
func (s *Store) InsertNote(n Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.noteIndex(n.ID); i >= 0 {
		s.notes[i] = n
		s.commit(EventModify, KindNote, string(n.ID))
		return
	}
	s.notes = append(s.notes, n)
	s.commit(EventCreate, KindNote, string(n.ID))
}

// ReplaceNote swaps the stored note with the same id for n, keeping its slot.
// It reports false, and changes nothing, when the id is unknown.
func (s *Store) ReplaceNote(n Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.noteIndex(n.ID)
	if i < 0 {
		return false
	}
	s.notes[i] = n
	s.commit(EventModify, KindNote, string(n.ID))
	return true
}

// RemoveNote deletes a note.
func (s *Store) RemoveNote(id NoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.noteIndex(id)
	if i < 0 {
		return false
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	s.commit(EventDelete, KindNote, string(id))
	return true
}

// SetSearchQuery sets the projection search filter.
func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchQuery == q {
		return
	}
	s.searchQuery = q
	s.commit(EventFilter, KindBoard, "")
}

// SetShowArchived toggles between the archived and the active projection.
func (s *Store) SetShowArchived(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showArchived == show {
		return
	}
	s.showArchived = show
	s.commit(EventFilter, KindBoard, "")
}

// Columns returns a copy of the columns in stored order.
func (s *Store) Columns() []Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.columns)
}

// Notes returns a copy of the notes in stored order.
func (s *Store) Notes() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notes)
}

// Column looks up a column by id.
func (s *Store) Column(id ColumnID) (Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.columnIndex(id); i >= 0 {
		return s.columns[i], true
	}
	return Column{}, false
}

// Note looks up a note by id.
func (s *Store) Note(id NoteID) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.noteIndex(id); i >= 0 {
		return s.notes[i], true
	}
	return Note{}, false
}

// SearchQuery returns the current search filter.
func (s *Store) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchQuery
}

// ShowArchived reports whether the archived projection is selected.
func (s *Store) ShowArchived() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showArchived
}

// Version returns the write counter. It changes on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a consistent copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Columns:      slices.Clone(s.columns),
		Notes:        slices.Clone(s.notes),
		SearchQuery:  s.searchQuery,
		ShowArchived: s.showArchived,
		Version:      s.version,
	}
}

// Subscribe registers a change listener. Delivery is best effort: events are
// dropped for a subscriber whose buffer is full. The returned func unsubscribes
// and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// commit bumps the version and fans the event out. Callers hold s.mu.
func (s *Store) commit(t EventType, k EntityKind, id string) {
	s.version++
	e := Event{Type: t, Kind: k, ID: id, Version: s.version, Timestamp: time.Now().Unix()}
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Store) columnIndex(id ColumnID) int {
	return slices.IndexFunc(s.columns, func(c Column) bool { return c.ID == id })
}

func (s *Store) noteIndex(id NoteID) int {
	return slices.IndexFunc(s.notes, func(n Note) bool { return n.ID == id })
}
