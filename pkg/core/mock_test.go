package core_test

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/noteboard/pkg/core"
)

// MockRemote implements core.Remote in memory.
// It keeps columns and notes in authoritative order and counts every call.
type MockRemote struct {
	mu      sync.Mutex
	columns []core.Column
	notes   []core.Note
	nextID  int

	calls map[string]int

	// Fail, when set for an operation name, is returned instead of performing it.
	Fail map[string]error
	// MoveGate, when set, blocks MoveNote until it is closed or receives a value.
	MoveGate chan struct{}
	// MoveStarted is signalled when MoveNote has been entered.
	MoveStarted chan struct{}
	// ListGate and ListStarted do the same for ListColumns.
	ListGate    chan struct{}
	ListStarted chan struct{}

	// LastMove holds the arguments of the latest MoveNote call.
	LastMove core.MoveIntent
}

func NewMockRemote() *MockRemote {
	return &MockRemote{
		calls: make(map[string]int),
		Fail:  make(map[string]error),
	}
}

// Seed replaces the remote content without counting calls.
func (m *MockRemote) Seed(columns []core.Column, notes []core.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns = slices.Clone(columns)
	m.notes = slices.Clone(notes)
}

// Calls returns how many times op was invoked.
func (m *MockRemote) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of calls across every operation.
func (m *MockRemote) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockRemote) enter(op string) error {
	m.calls[op]++
	return m.Fail[op]
}

func (m *MockRemote) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s%d", prefix, m.nextID)
}

func (m *MockRemote) ListColumns(ctx context.Context) ([]core.Column, error) {
	m.mu.Lock()
	gate, started := m.ListGate, m.ListStarted
	m.mu.Unlock()
	if err := wait(ctx, gate, started); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListColumns"); err != nil {
		return nil, err
	}
	return slices.Clone(m.columns), nil
}

func (m *MockRemote) CreateColumn(ctx context.Context, draft core.ColumnDraft) (core.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateColumn"); err != nil {
		return core.Column{}, err
	}
	c := core.Column{
		ID:        core.ColumnID(m.id("col-")),
		Title:     draft.Title,
		Color:     draft.Color,
		Position:  len(m.columns),
		CreatedAt: time.Now(),
	}
	m.columns = append(m.columns, c)
	return c, nil
}

func (m *MockRemote) UpdateColumn(ctx context.Context, id core.ColumnID, patch core.ColumnPatch) (core.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateColumn"); err != nil {
		return core.Column{}, err
	}
	i := slices.IndexFunc(m.columns, func(c core.Column) bool { return c.ID == id })
	if i < 0 {
		return core.Column{}, core.NotFound(core.KindColumn, string(id))
	}
	if patch.Title != nil {
		m.columns[i].Title = *patch.Title
	}
	if patch.Color != nil {
		m.columns[i].Color = *patch.Color
	}
	return m.columns[i], nil
}

func (m *MockRemote) DeleteColumn(ctx context.Context, id core.ColumnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteColumn"); err != nil {
		return err
	}
	m.columns = slices.DeleteFunc(m.columns, func(c core.Column) bool { return c.ID == id })
	m.notes = slices.DeleteFunc(m.notes, func(n core.Note) bool { return n.Column == id })
	return nil
}

func (m *MockRemote) ListNotes(ctx context.Context, filter core.NoteFilter) ([]core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListNotes"); err != nil {
		return nil, err
	}
	var out []core.Note
	for _, n := range m.notes {
		if filter.ColumnID != "" && n.Column != filter.ColumnID {
			continue
		}
		if filter.IsArchived != nil && n.IsArchived != *filter.IsArchived {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(n.Title+" "+n.Content), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *MockRemote) CreateNote(ctx context.Context, draft core.NoteDraft) (core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateNote"); err != nil {
		return core.Note{}, err
	}
	now := time.Now()
	n := core.Note{
		ID:        core.NoteID(m.id("note-")),
		Title:     draft.Title,
		Content:   draft.Content,
		Color:     draft.Color,
		Column:    draft.Column,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.notes = append(m.notes, n)
	return n, nil
}

func (m *MockRemote) UpdateNote(ctx context.Context, id core.NoteID, patch core.NotePatch) (core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateNote"); err != nil {
		return core.Note{}, err
	}
	i := m.noteIndex(id)
	if i < 0 {
		return core.Note{}, core.NotFound(core.KindNote, string(id))
	}
	n := &m.notes[i]
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Content != nil {
		n.Content = *patch.Content
	}
	if patch.Color != nil {
		n.Color = *patch.Color
	}
	if patch.Column != nil {
		n.Column = *patch.Column
	}
	if patch.IsArchived != nil {
		n.IsArchived = *patch.IsArchived
	}
	return *n, nil
}

func (m *MockRemote) DeleteNote(ctx context.Context, id core.NoteID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteNote"); err != nil {
		return err
	}
	m.notes = slices.DeleteFunc(m.notes, func(n core.Note) bool { return n.ID == id })
	return nil
}

// MoveNote removes the note and reinserts it before the index-th note of the
// target column, so the authoritative order shifts every sibling.
func (m *MockRemote) MoveNote(ctx context.Context, id core.NoteID, target core.ColumnID, index int) (core.Note, error) {
	m.mu.Lock()
	m.calls["MoveNote"]++
	m.LastMove = core.MoveIntent{NoteID: id, TargetColumnID: target, TargetIndex: index}
	gate, started := m.MoveGate, m.MoveStarted
	m.mu.Unlock()

	if err := wait(ctx, gate, started); err != nil {
		return core.Note{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["MoveNote"]; err != nil {
		return core.Note{}, err
	}
	i := m.noteIndex(id)
	if i < 0 {
		return core.Note{}, core.NotFound(core.KindNote, string(id))
	}
	n := m.notes[i]
	m.notes = slices.Delete(m.notes, i, i+1)
	n.Column = target
	n.Position = index

	at, seen := len(m.notes), 0
	for j, other := range m.notes {
		if other.Column != target {
			continue
		}
		if seen == index {
			at = j
			break
		}
		seen++
	}
	m.notes = slices.Insert(m.notes, at, n)
	return n, nil
}

func (m *MockRemote) ArchiveNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ArchiveNote"); err != nil {
		return core.Note{}, err
	}
	i := m.noteIndex(id)
	if i < 0 {
		return core.Note{}, core.NotFound(core.KindNote, string(id))
	}
	m.notes[i].IsArchived = !m.notes[i].IsArchived
	return m.notes[i], nil
}

// wait signals started and blocks on gate, when they are set.
func wait(ctx context.Context, gate, started chan struct{}) error {
	if started != nil {
		started <- struct{}{}
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockRemote) noteIndex(id core.NoteID) int {
	return slices.IndexFunc(m.notes, func(n core.Note) bool { return n.ID == id })
}

// ReorderingRemote adds core.Reorderer to MockRemote.
type ReorderingRemote struct {
	*MockRemote
}

func (r ReorderingRemote) ReorderColumns(ctx context.Context, ids []core.ColumnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ReorderColumns"); err != nil {
		return err
	}
	ordered := make([]core.Column, 0, len(r.columns))
	for pos, id := range ids {
		i := slices.IndexFunc(r.columns, func(c core.Column) bool { return c.ID == id })
		c := r.columns[i]
		c.Position = pos
		ordered = append(ordered, c)
	}
	r.columns = ordered
	return nil
}

func (r ReorderingRemote) ReorderNotes(ctx context.Context, column core.ColumnID, ids []core.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("ReorderNotes"); err != nil {
		return err
	}
	moved := make([]core.Note, 0, len(ids))
	for pos, id := range ids {
		n := r.notes[r.noteIndex(id)]
		n.Position = pos
		if column != "" {
			n.Column = column
		}
		moved = append(moved, n)
	}
	r.notes = slices.DeleteFunc(r.notes, func(n core.Note) bool { return slices.Contains(ids, n.ID) })
	r.notes = append(moved, r.notes...)
	return nil
}

// todoDone is the two-column board used throughout the tests:
// Todo holds a and b, Done holds c.
func todoDone() ([]core.Column, []core.Note) {
	columns := []core.Column{
		{ID: "1", Title: "Todo", Color: "#3B82F6", Position: 0},
		{ID: "2", Title: "Done", Color: "#10B981", Position: 1},
	}
	notes := []core.Note{
		{ID: "a", Title: "Write tests", Content: "cover the resolver", Column: "1", Position: 0, Color: "#FFFFFF"},
		{ID: "b", Title: "Ship", Content: "tag a release", Column: "1", Position: 1, Color: "#FFFFFF"},
		{ID: "c", Title: "Sketch", Content: "board layout", Column: "2", Position: 0, Color: "#FFFFFF"},
	}
	return columns, notes
}

func loadedBoard(ctx context.Context, remote core.Remote, seed *MockRemote, opts ...core.BoardOption) (*core.Board, error) {
	columns, notes := todoDone()
	seed.Seed(columns, notes)
	board := core.NewBoard(remote, opts...)
	return board, board.Load(ctx)
}

func ids(notes []core.Note) []core.NoteID {
	out := make([]core.NoteID, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}
