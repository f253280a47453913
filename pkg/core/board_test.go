package core_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/noteboard/pkg/core"
)

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (o *recordingObserver) Observe(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func TestBoard_DragAcrossColumns(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	board.BeginDrag("a")
	res := board.DispatchDragEnd(ctx, "a", "c")
	require.True(t, res.Success, "move failed: %v", res.Err)

	_, dragging := board.ActiveDrag()
	assert.False(t, dragging, "drag state is cleared at drop time")

	assert.Equal(t, core.MoveIntent{NoteID: "a", TargetColumnID: "2", TargetIndex: 0}, res.Data.Intent)
	assert.True(t, res.Data.Applied)
	assert.True(t, res.Data.Reconciled)
	assert.Equal(t, core.ColumnID("2"), res.Data.Note.Column)

	assert.Equal(t, 1, remote.Calls("MoveNote"))
	assert.Equal(t, 2, remote.Calls("ListNotes"), "one load plus exactly one reconciliation")

	assert.Equal(t, []core.NoteID{"b"}, ids(board.NotesInColumn("1")))
	assert.Equal(t, []core.NoteID{"a", "c"}, ids(board.NotesInColumn("2")))
}

func TestBoard_DragNoOpMakesNoCall(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	before := board.Store().Snapshot()
	calls := remote.TotalCalls()

	for _, over := range []string{"a", "1", "", "unknown"} {
		board.BeginDrag("a")
		res := board.DispatchDragEnd(ctx, "a", over)
		require.True(t, res.Success)
		assert.False(t, res.Data.Applied, "over=%q", over)
		_, dragging := board.ActiveDrag()
		assert.False(t, dragging)
	}

	assert.Equal(t, calls, remote.TotalCalls())
	assert.Equal(t, before, board.Store().Snapshot())
}

func TestBoard_FailedMoveLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	before := board.Store().Notes()
	remote.Fail["MoveNote"] = &core.RemoteError{Status: 500, Body: "boom"}

	res := board.DispatchDragEnd(ctx, "a", "c")
	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, core.ErrRemote)
	assert.Equal(t, before, board.Store().Notes())
	assert.Equal(t, 1, remote.Calls("ListNotes"), "no reconciliation after a failed move")
	assert.Empty(t, board.InFlight())
}

func TestBoard_ReconcileFailureStillSucceeds(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	remote.Fail["ListNotes"] = errors.New("network down")
	res := board.MoveNote(ctx, core.MoveIntent{NoteID: "a", TargetColumnID: "2", TargetIndex: 0})
	require.True(t, res.Success)
	assert.False(t, res.Data.Reconciled)

	n, ok := board.Store().Note("a")
	require.True(t, ok)
	assert.Equal(t, core.ColumnID("2"), n.Column, "moved note is replaced by the server object")
}

func TestBoard_SecondMoveOfSameNoteIsRejected(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	remote.MoveGate = make(chan struct{})
	remote.MoveStarted = make(chan struct{}, 2)

	first := make(chan core.Result[core.Move], 1)
	go func() {
		first <- board.MoveNote(ctx, core.MoveIntent{NoteID: "a", TargetColumnID: "2", TargetIndex: 0})
	}()
	<-remote.MoveStarted
	assert.Equal(t, []core.NoteID{"a"}, board.InFlight())

	second := board.MoveNote(ctx, core.MoveIntent{NoteID: "a", TargetColumnID: "1", TargetIndex: 1})
	require.False(t, second.Success)
	assert.ErrorIs(t, second.Err, core.ErrMoveInFlight)

	// Unrelated notes are not serialized behind the pending move.
	created := board.CreateNote(ctx, core.NoteDraft{Title: "Other", Column: "1"})
	require.True(t, created.Success, "create failed: %v", created.Err)

	close(remote.MoveGate)
	res := <-first
	require.True(t, res.Success)
	assert.Equal(t, 1, remote.Calls("MoveNote"))
	assert.Empty(t, board.InFlight())

	again := board.MoveNote(ctx, core.MoveIntent{NoteID: "a", TargetColumnID: "1", TargetIndex: 0})
	assert.True(t, again.Success, "marker is released once the move completed")
}

func TestBoard_DragOntoLaterSibling(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	columns, notes := todoDone()
	notes = append(notes,
		core.Note{ID: "d", Title: "Review", Column: "2", Position: 1, Color: "#FFFFFF"},
		core.Note{ID: "e", Title: "Deploy", Column: "2", Position: 2, Color: "#FFFFFF"},
	)
	remote.Seed(columns, notes)
	board := core.NewBoard(remote)
	require.NoError(t, board.Load(ctx))
	listed := remote.Calls("ListNotes")

	// a sits at index 0 of Todo; e sits at index 2 of Done.
	res := board.DispatchDragEnd(ctx, "a", "e")
	require.True(t, res.Success, "move failed: %v", res.Err)

	assert.Equal(t, 1, remote.Calls("MoveNote"))
	assert.Equal(t, core.MoveIntent{NoteID: "a", TargetColumnID: "2", TargetIndex: 2}, remote.LastMove)
	assert.Equal(t, listed+1, remote.Calls("ListNotes"), "exactly one reconciliation after the move")

	assert.Equal(t, []core.NoteID{"b"}, ids(board.NotesInColumn("1")))
	assert.Equal(t, []core.NoteID{"c", "d", "a", "e"}, ids(board.NotesInColumn("2")))
}

func TestBoard_NoteIsBusyWhileMovePending(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	remote.MoveGate = make(chan struct{})
	remote.MoveStarted = make(chan struct{}, 1)

	first := make(chan core.Result[core.Move], 1)
	go func() {
		first <- board.MoveNote(ctx, core.MoveIntent{NoteID: "a", TargetColumnID: "2", TargetIndex: 0})
	}()
	<-remote.MoveStarted
	calls := remote.TotalCalls()

	title := "Renamed"
	rejected := []error{
		board.UpdateNote(ctx, "a", core.NotePatch{Title: &title}).Err,
		board.ArchiveNote(ctx, "a").Err,
		board.DeleteNote(ctx, "a").Err,
	}
	for i, err := range rejected {
		assert.ErrorIs(t, err, core.ErrMoveInFlight, "case %d", i)
		assert.ErrorIs(t, err, core.ErrBusy, "case %d", i)
	}
	assert.Equal(t, calls, remote.TotalCalls(), "no remote call for a busy note")

	// Other notes are not held back by the pending move.
	other := board.ArchiveNote(ctx, "b")
	require.True(t, other.Success, "archive failed: %v", other.Err)

	close(remote.MoveGate)
	res := <-first
	require.True(t, res.Success)

	n, ok := board.Store().Note("a")
	require.True(t, ok)
	assert.Equal(t, "Write tests", n.Title)
	assert.Equal(t, core.ColumnID("2"), n.Column)
	assert.Empty(t, board.InFlight())

	after := board.UpdateNote(ctx, "a", core.NotePatch{Title: &title})
	require.True(t, after.Success, "update failed: %v", after.Err)
	assert.Equal(t, "Renamed", after.Data.Title)
}

func TestBoard_UpdateTrimsTitles(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	padded := "  Doing  "
	col := board.UpdateColumn(ctx, "1", core.ColumnPatch{Title: &padded})
	require.True(t, col.Success, "update failed: %v", col.Err)
	assert.Equal(t, "Doing", col.Data.Title)
	c, _ := board.Store().Column("1")
	assert.Equal(t, "Doing", c.Title)

	note := board.UpdateNote(ctx, "a", core.NotePatch{Title: &padded})
	require.True(t, note.Success, "update failed: %v", note.Err)
	assert.Equal(t, "Doing", note.Data.Title)

	assert.Equal(t, "  Doing  ", padded, "caller's patch is not modified")

	blank := "   "
	assert.ErrorIs(t, board.UpdateNote(ctx, "a", core.NotePatch{Title: &blank}).Err, core.ErrValidation)
}

func TestBoard_DeleteColumnCascades(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	res := board.DeleteColumn(ctx, "1")
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Data)

	assert.Len(t, board.Columns(), 1)
	for _, n := range board.Store().Notes() {
		assert.NotEqual(t, core.ColumnID("1"), n.Column)
	}
}

func TestBoard_DeleteColumnFailureKeepsNotes(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	before := board.Store().Snapshot()
	remote.Fail["DeleteColumn"] = &core.RemoteError{Status: 503}

	res := board.DeleteColumn(ctx, "1")
	require.False(t, res.Success)
	assert.Equal(t, before, board.Store().Snapshot())
}

func TestBoard_ValidationRejectsBeforeRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)
	calls := remote.TotalCalls()

	long := strings.Repeat("x", core.MaxNoteTitle+1)
	bad := "red"

	failures := []error{
		board.CreateColumn(ctx, "  ", "").Err,
		board.CreateColumn(ctx, "Ok", "#12").Err,
		board.CreateNote(ctx, core.NoteDraft{Title: "x", Column: "missing"}).Err,
		board.CreateNote(ctx, core.NoteDraft{Title: long, Column: "1"}).Err,
		board.UpdateNote(ctx, "a", core.NotePatch{Color: &bad}).Err,
		board.MoveNote(ctx, core.MoveIntent{NoteID: "a", TargetColumnID: "missing"}).Err,
		board.MoveNote(ctx, core.MoveIntent{NoteID: "a", TargetColumnID: "2", TargetIndex: -1}).Err,
	}
	for i, err := range failures {
		assert.ErrorIs(t, err, core.ErrValidation, "case %d", i)
	}

	var verr *core.ValidationError
	require.ErrorAs(t, board.CreateNote(ctx, core.NoteDraft{Title: long, Column: "1"}).Err, &verr)
	assert.Equal(t, "title", verr.Field)

	assert.ErrorIs(t, board.ArchiveNote(ctx, "missing").Err, core.ErrNotFound)
	assert.ErrorIs(t, board.DeleteColumn(ctx, "missing").Err, core.ErrNotFound)

	assert.Equal(t, calls, remote.TotalCalls(), "no remote call on rejected input")
}

func TestBoard_CRUDAppliesServerObjects(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	obs := &recordingObserver{}
	board, err := loadedBoard(ctx, remote, remote, core.WithObserver(obs))
	require.NoError(t, err)

	col := board.CreateColumn(ctx, "Doing", "")
	require.True(t, col.Success)
	assert.NotEmpty(t, col.Data.ID)
	assert.Equal(t, core.DefaultColumnColor, col.Data.Color)

	title := "In progress"
	upd := board.UpdateColumn(ctx, col.Data.ID, core.ColumnPatch{Title: &title})
	require.True(t, upd.Success)
	c, _ := board.Store().Column(col.Data.ID)
	assert.Equal(t, "In progress", c.Title)

	note := board.CreateNote(ctx, core.NoteDraft{Title: "  Review  ", Column: col.Data.ID})
	require.True(t, note.Success)
	assert.Equal(t, "Review", note.Data.Title)
	assert.Equal(t, core.DefaultNoteColor, note.Data.Color)
	assert.Equal(t, []core.NoteID{note.Data.ID}, ids(board.NotesInColumn(col.Data.ID)))

	archived := board.ArchiveNote(ctx, note.Data.ID)
	require.True(t, archived.Success)
	assert.True(t, archived.Data.IsArchived)
	assert.Empty(t, board.NotesInColumn(col.Data.ID))

	board.SetShowArchived(true)
	assert.Equal(t, []core.NoteID{note.Data.ID}, ids(board.NotesInColumn(col.Data.ID)))

	del := board.DeleteNote(ctx, note.Data.ID)
	require.True(t, del.Success)
	_, ok := board.Store().Note(note.Data.ID)
	assert.False(t, ok)

	assert.Contains(t, obs.ops, core.OpCreateColumn)
	assert.Contains(t, obs.ops, core.OpArchiveNote)
	assert.Contains(t, obs.ops, core.OpDeleteNote)
}

func TestBoard_ReorderRequiresCapability(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)

	res := board.ReorderColumns(ctx, []core.ColumnID{"2", "1"})
	assert.ErrorIs(t, res.Err, core.ErrUnsupported)
}

func TestBoard_Reorder(t *testing.T) {
	ctx := context.Background()
	mock := NewMockRemote()
	board, err := loadedBoard(ctx, ReorderingRemote{mock}, mock)
	require.NoError(t, err)

	cols := board.ReorderColumns(ctx, []core.ColumnID{"2", "1"})
	require.True(t, cols.Success, "reorder failed: %v", cols.Err)
	assert.Equal(t, core.ColumnID("2"), board.Columns()[0].ID)

	dup := board.ReorderColumns(ctx, []core.ColumnID{"2", "2"})
	assert.ErrorIs(t, dup.Err, core.ErrValidation)

	notes := board.ReorderNotes(ctx, "1", []core.NoteID{"b", "a"})
	require.True(t, notes.Success, "reorder failed: %v", notes.Err)
	assert.Equal(t, []core.NoteID{"b", "a"}, ids(board.NotesInColumn("1")))
}

func TestBoard_ConcurrentLoadsShareOneFetch(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	columns, notes := todoDone()
	remote.Seed(columns, notes)
	board := core.NewBoard(remote)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, board.Load(ctx))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, remote.Calls("ListColumns"), 10)
	assert.Len(t, board.Columns(), 2)
	assert.Len(t, board.Store().Notes(), 3)
}

func TestBoard_CancelledLoadDoesNotFailJoinedCallers(t *testing.T) {
	remote := NewMockRemote()
	columns, notes := todoDone()
	remote.Seed(columns, notes)
	board := core.NewBoard(remote)

	remote.ListGate = make(chan struct{})
	remote.ListStarted = make(chan struct{}, 4)

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := make(chan error, 1)
	go func() { first <- board.Load(firstCtx) }()
	<-remote.ListStarted

	second := make(chan error, 1)
	go func() { second <- board.Load(context.Background()) }()
	// Give the second caller time to join the pending fetch.
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(remote.ListGate)
	require.NoError(t, <-second)
	assert.Len(t, board.Columns(), 2)
	assert.Len(t, board.Store().Notes(), 3)
}

func TestBoard_FailedLoadKeepsStore(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote)
	require.NoError(t, err)
	before := board.Store().Snapshot()

	remote.Fail["ListColumns"] = errors.New("offline")
	require.Error(t, board.Load(ctx))
	assert.Equal(t, before, board.Store().Snapshot())
}

func TestBoard_State(t *testing.T) {
	ctx := context.Background()
	remote := NewMockRemote()
	board, err := loadedBoard(ctx, remote, remote, core.WithEventBuffer(7))
	require.NoError(t, err)

	state, ok := board.State().(core.BoardState)
	require.True(t, ok)
	assert.Equal(t, 2, state.Columns)
	assert.Equal(t, 3, state.Notes)
	assert.Equal(t, 7, state.EventBufferSize)
	assert.Equal(t, "remote", state.RemoteType)
	assert.Equal(t, "board", board.ComponentType())
}
