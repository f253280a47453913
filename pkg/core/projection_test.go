package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/noteboard/pkg/core"
)

func TestMatches(t *testing.T) {
	n := core.Note{Title: "Write Tests", Content: "cover the Resolver"}

	tests := []struct {
		name     string
		query    string
		archived bool
		note     core.Note
		want     bool
	}{
		{"empty query", "", false, n, true},
		{"title case-insensitive", "write", false, n, true},
		{"content substring", "RESOLV", false, n, true},
		{"no match", "done", false, n, false},
		{"archived hidden in active view", "", false, core.Note{IsArchived: true}, false},
		{"active hidden in archived view", "", true, n, false},
		{"archived shown in archived view", "", true, core.Note{IsArchived: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.Matches(tt.note, tt.query, tt.archived))
		})
	}
}

func TestProjection_GroupsInStoreOrder(t *testing.T) {
	s := core.NewStore()
	columns, notes := todoDone()
	s.Replace(columns, notes)
	p := core.NewProjection(s)

	assert.Equal(t, []core.NoteID{"a", "b"}, ids(p.NotesInColumn("1")))
	assert.Equal(t, []core.NoteID{"c"}, ids(p.NotesInColumn("2")))
	assert.Empty(t, p.NotesInColumn("missing"))
}

func TestProjection_ExcludesOrphans(t *testing.T) {
	s := core.NewStore()
	columns, notes := todoDone()
	notes = append(notes, core.Note{ID: "orphan", Column: "gone"})
	s.Replace(columns, notes)
	p := core.NewProjection(s)

	for _, c := range columns {
		assert.NotContains(t, ids(p.NotesInColumn(c.ID)), core.NoteID("orphan"))
	}
	assert.NotContains(t, ids(p.Filtered()), core.NoteID("orphan"))

	_, _, ok := p.View().Locate("orphan")
	assert.False(t, ok)
}

func TestProjection_SearchDoneIsEmpty(t *testing.T) {
	s := core.NewStore()
	columns, notes := todoDone()
	s.Replace(columns, notes)
	s.SetSearchQuery("done")
	s.SetShowArchived(false)

	p := core.NewProjection(s)
	assert.Empty(t, p.NotesInColumn("2"), "column title does not take part in the search")
}

func TestProjection_FilterCorrectness(t *testing.T) {
	s := core.NewStore()
	s.Replace(
		[]core.Column{{ID: "1"}, {ID: "2"}},
		[]core.Note{
			{ID: "a", Title: "Alpha", Column: "1"},
			{ID: "b", Title: "alphabet", Column: "1", IsArchived: true},
			{ID: "c", Title: "beta", Content: "ALPHA inside", Column: "2"},
			{ID: "d", Title: "gamma", Column: "2"},
		},
	)
	p := core.NewProjection(s)

	s.SetSearchQuery("alpha")
	for _, col := range []core.ColumnID{"1", "2"} {
		for _, n := range p.NotesInColumn(col) {
			assert.Equal(t, col, n.Column)
			assert.False(t, n.IsArchived)
			assert.True(t, core.Matches(n, "alpha", false))
		}
	}
	assert.Equal(t, []core.NoteID{"a"}, ids(p.NotesInColumn("1")))
	assert.Equal(t, []core.NoteID{"c"}, ids(p.NotesInColumn("2")))

	s.SetShowArchived(true)
	assert.Equal(t, []core.NoteID{"b"}, ids(p.NotesInColumn("1")))
	assert.Empty(t, p.NotesInColumn("2"))
}

func TestProjection_NeverStaleAcrossMutations(t *testing.T) {
	s := core.NewStore()
	columns, notes := todoDone()
	s.Replace(columns, notes)
	p := core.NewProjection(s)

	first := p.View()
	assert.Same(t, first, p.View(), "same version reuses the view")

	s.InsertNote(core.Note{ID: "d", Column: "2"})
	assert.NotSame(t, first, p.View())
	assert.Equal(t, []core.NoteID{"c", "d"}, ids(p.NotesInColumn("2")))
}

func TestProjection_ResultsAreFresh(t *testing.T) {
	s := core.NewStore()
	columns, notes := todoDone()
	s.Replace(columns, notes)
	p := core.NewProjection(s)

	got := p.NotesInColumn("1")
	require.Len(t, got, 2)
	got[0].ID = "tampered"

	assert.Equal(t, []core.NoteID{"a", "b"}, ids(p.NotesInColumn("1")))
}
