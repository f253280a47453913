package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds a shared Load round-trip.
const DefaultLoadTimeout = 30 * time.Second

// Operation names reported to an Observer.
const (
	OpLoad           = "load"
	OpReconcile      = "reconcile"
	OpCreateColumn   = "create_column"
	OpUpdateColumn   = "update_column"
	OpDeleteColumn   = "delete_column"
	OpReorderColumns = "reorder_columns"
	OpCreateNote     = "create_note"
	OpUpdateNote     = "update_note"
	OpDeleteNote     = "delete_note"
	OpArchiveNote    = "archive_note"
	OpMoveNote       = "move_note"
	OpReorderNotes   = "reorder_notes"
)

// Observer receives the outcome of every board operation.
type Observer interface {
	Observe(op string, err error, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) Observe(string, error, time.Duration) {}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) BoardOption {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithObserver registers an operation observer (metrics, tracing).
func WithObserver(o Observer) BoardOption {
	return func(b *Board) {
		if o != nil {
			b.observer = o
		}
	}
}

// WithStore injects the store the board mutates. By default the board owns a new one.
func WithStore(s *Store) BoardOption {
	return func(b *Board) {
		if s != nil {
			b.store = s
		}
	}
}

// WithEventBuffer sets the buffer of channels returned by Watch. Zero means 100.
func WithEventBuffer(size int) BoardOption {
	return func(b *Board) {
		if size > 0 {
			b.eventBuffer = size
		}
	}
}

// Board coordinates the remote, the store and the projection.
// Every mutating operation validates first, then calls the remote, and only
// applies the server-returned object to the store once the call succeeded.
// A failed call leaves the store untouched.
type Board struct {
	remote      Remote
	store       *Store
	projection  *Projection
	logger      *slog.Logger
	observer    Observer
	eventBuffer int

	mu       sync.Mutex
	inflight map[NoteID]string // note -> pending operation
	dragging NoteID

	loads singleflight.Group
}

// NewBoard creates a Board backed by remote.
func NewBoard(remote Remote, opts ...BoardOption) *Board {
	b := &Board{
		remote:      remote,
		logger:      slog.New(slog.DiscardHandler),
		observer:    noopObserver{},
		eventBuffer: 100,
		inflight:    make(map[NoteID]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = NewStore()
	}
	b.projection = NewProjection(b.store)
	return b
}

// Store returns the board's store.
func (b *Board) Store() *Store { return b.store }

// Projection returns the board's projection engine.
func (b *Board) Projection() *Projection { return b.projection }

// Remote returns the persistence client the board writes through.
func (b *Board) Remote() Remote { return b.remote }

// Columns returns the columns in authoritative order.
func (b *Board) Columns() []Column { return b.store.Columns() }

// NotesInColumn returns the filtered, ordered notes of a column.
func (b *Board) NotesInColumn(id ColumnID) []Note { return b.projection.NotesInColumn(id) }

// View returns the current projection.
func (b *Board) View() *View { return b.projection.View() }

// SetSearchQuery sets the search filter of the projection.
func (b *Board) SetSearchQuery(q string) { b.store.SetSearchQuery(q) }

// SetShowArchived switches between the archived and the active projection.
func (b *Board) SetShowArchived(show bool) { b.store.SetShowArchived(show) }

// Subscribe returns a channel of store changes and its cancel func.
func (b *Board) Subscribe() (<-chan Event, func()) { return b.store.Subscribe(b.eventBuffer) }

// Load fetches columns and notes concurrently and replaces the store content
// in one step. Concurrent calls share a single round-trip. The shared fetch is
// detached from the caller that started it and bounded by DefaultLoadTimeout,
// so a cancelled caller returns early without failing the others.
func (b *Board) Load(ctx context.Context) error {
	start := time.Now()
	flight := b.loads.DoChan("load", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultLoadTimeout)
		defer cancel()

		var columns []Column
		var notes []Note

		g, gctx := errgroup.WithContext(fctx)
		g.Go(func() error {
			c, err := b.remote.ListColumns(gctx)
			if err != nil {
				return fmt.Errorf("list columns: %w", err)
			}
			columns = c
			return nil
		})
		g.Go(func() error {
			n, err := b.remote.ListNotes(gctx, NoteFilter{})
			if err != nil {
				return fmt.Errorf("list notes: %w", err)
			}
			notes = n
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		b.store.Replace(columns, notes)
		return nil, nil
	})

	var err error
	var shared bool
	select {
	case res := <-flight:
		err, shared = res.Err, res.Shared
	case <-ctx.Done():
		return ctx.Err()
	}
	if !shared {
		b.observer.Observe(OpLoad, err, time.Since(start))
	}
	if err != nil {
		b.logger.Warn("board load failed", "error", err)
		return err
	}
	b.logger.Debug("board loaded", "version", b.store.Version())
	return nil
}

// RefreshColumns refetches every column.
func (b *Board) RefreshColumns(ctx context.Context) error {
	columns, err := b.remote.ListColumns(ctx)
	if err != nil {
		return fmt.Errorf("list columns: %w", err)
	}
	b.store.LoadColumns(columns)
	return nil
}

// RefreshNotes performs a reconciliation: a full notes refetch that replaces
// local ordering with the authoritative one.
func (b *Board) RefreshNotes(ctx context.Context) error {
	start := time.Now()
	notes, err := b.remote.ListNotes(ctx, NoteFilter{})
	b.observer.Observe(OpReconcile, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	b.store.LoadNotes(notes)
	return nil
}

// CreateColumn creates a column. An empty color selects DefaultColumnColor.
func (b *Board) CreateColumn(ctx context.Context, title, color string) Result[Column] {
	start := time.Now()
	if color == "" {
		color = DefaultColumnColor
	}
	draft := ColumnDraft{Title: strings.TrimSpace(title), Color: color}
	if err := Validate(draft); err != nil {
		return fail[Column](b, OpCreateColumn, start, err)
	}

	column, err := b.remote.CreateColumn(ctx, draft)
	if err != nil {
		return fail[Column](b, OpCreateColumn, start, fmt.Errorf("create column: %w", err))
	}
	b.store.InsertColumn(column)
	b.done(OpCreateColumn, start, "column", column.ID)
	return Ok(column)
}

// UpdateColumn applies a partial update to a known column.
func (b *Board) UpdateColumn(ctx context.Context, id ColumnID, patch ColumnPatch) Result[Column] {
	start := time.Now()
	patch.Title = trimmed(patch.Title)
	if err := Validate(patch); err != nil {
		return fail[Column](b, OpUpdateColumn, start, err)
	}
	if _, ok := b.store.Column(id); !ok {
		return fail[Column](b, OpUpdateColumn, start, NotFound(KindColumn, string(id)))
	}

	column, err := b.remote.UpdateColumn(ctx, id, patch)
	if err != nil {
		return fail[Column](b, OpUpdateColumn, start, fmt.Errorf("update column %s: %w", id, err))
	}
	b.store.ReplaceColumn(column)
	b.done(OpUpdateColumn, start, "column", id)
	return Ok(column)
}

// DeleteColumn deletes a column and, once the remote confirmed, removes it and
// its notes from the store in the same step. Data is the number of notes
// removed locally.
func (b *Board) DeleteColumn(ctx context.Context, id ColumnID) Result[int] {
	start := time.Now()
	if _, ok := b.store.Column(id); !ok {
		return fail[int](b, OpDeleteColumn, start, NotFound(KindColumn, string(id)))
	}

	if err := b.remote.DeleteColumn(ctx, id); err != nil {
		return fail[int](b, OpDeleteColumn, start, fmt.Errorf("delete column %s: %w", id, err))
	}
	cascaded, _ := b.store.RemoveColumn(id)
	b.done(OpDeleteColumn, start, "column", id)
	return Ok(cascaded)
}

// ReorderColumns sets the column order. The remote must implement Reorderer.
func (b *Board) ReorderColumns(ctx context.Context, ids []ColumnID) Result[[]Column] {
	start := time.Now()
	r, ok := b.remote.(Reorderer)
	if !ok {
		return fail[[]Column](b, OpReorderColumns, start, fmt.Errorf("reorder columns: %w", ErrUnsupported))
	}
	if err := checkPermutation(ids, b.store.Columns(), func(c Column) ColumnID { return c.ID }); err != nil {
		return fail[[]Column](b, OpReorderColumns, start, err)
	}

	if err := r.ReorderColumns(ctx, ids); err != nil {
		return fail[[]Column](b, OpReorderColumns, start, fmt.Errorf("reorder columns: %w", err))
	}
	if err := b.RefreshColumns(ctx); err != nil {
		b.logger.Warn("column refetch after reorder failed", "error", err)
	}
	b.done(OpReorderColumns, start, "count", len(ids))
	return Ok(b.store.Columns())
}

// CreateNote creates a note in an existing column. An empty color selects DefaultNoteColor.
func (b *Board) CreateNote(ctx context.Context, draft NoteDraft) Result[Note] {
	start := time.Now()
	if draft.Color == "" {
		draft.Color = DefaultNoteColor
	}
	draft.Title = strings.TrimSpace(draft.Title)
	if err := Validate(draft); err != nil {
		return fail[Note](b, OpCreateNote, start, err)
	}
	if _, ok := b.store.Column(draft.Column); !ok {
		return fail[Note](b, OpCreateNote, start, unknownColumn(draft.Column))
	}

	note, err := b.remote.CreateNote(ctx, draft)
	if err != nil {
		return fail[Note](b, OpCreateNote, start, fmt.Errorf("create note: %w", err))
	}
	b.store.InsertNote(note)
	b.done(OpCreateNote, start, "note", note.ID)
	return Ok(note)
}

// UpdateNote applies a partial update to a known note.
func (b *Board) UpdateNote(ctx context.Context, id NoteID, patch NotePatch) Result[Note] {
	start := time.Now()
	patch.Title = trimmed(patch.Title)
	if err := Validate(patch); err != nil {
		return fail[Note](b, OpUpdateNote, start, err)
	}
	if _, ok := b.store.Note(id); !ok {
		return fail[Note](b, OpUpdateNote, start, NotFound(KindNote, string(id)))
	}
	if patch.Column != nil {
		if _, ok := b.store.Column(*patch.Column); !ok {
			return fail[Note](b, OpUpdateNote, start, unknownColumn(*patch.Column))
		}
	}

	if err := b.claim(OpUpdateNote, id); err != nil {
		return fail[Note](b, OpUpdateNote, start, fmt.Errorf("update note %s: %w", id, err))
	}
	defer b.release(id)

	note, err := b.remote.UpdateNote(ctx, id, patch)
	if err != nil {
		return fail[Note](b, OpUpdateNote, start, fmt.Errorf("update note %s: %w", id, err))
	}
	b.store.ReplaceNote(note)
	b.done(OpUpdateNote, start, "note", id)
	return Ok(note)
}

// DeleteNote deletes a note.
func (b *Board) DeleteNote(ctx context.Context, id NoteID) Result[NoteID] {
	start := time.Now()
	if _, ok := b.store.Note(id); !ok {
		return fail[NoteID](b, OpDeleteNote, start, NotFound(KindNote, string(id)))
	}

	if err := b.claim(OpDeleteNote, id); err != nil {
		return fail[NoteID](b, OpDeleteNote, start, fmt.Errorf("delete note %s: %w", id, err))
	}
	defer b.release(id)

	if err := b.remote.DeleteNote(ctx, id); err != nil {
		return fail[NoteID](b, OpDeleteNote, start, fmt.Errorf("delete note %s: %w", id, err))
	}
	b.store.RemoveNote(id)
	b.done(OpDeleteNote, start, "note", id)
	return Ok(id)
}

// ArchiveNote toggles the archived flag of a note.
func (b *Board) ArchiveNote(ctx context.Context, id NoteID) Result[Note] {
	start := time.Now()
	if _, ok := b.store.Note(id); !ok {
		return fail[Note](b, OpArchiveNote, start, NotFound(KindNote, string(id)))
	}

	if err := b.claim(OpArchiveNote, id); err != nil {
		return fail[Note](b, OpArchiveNote, start, fmt.Errorf("archive note %s: %w", id, err))
	}
	defer b.release(id)

	note, err := b.remote.ArchiveNote(ctx, id)
	if err != nil {
		return fail[Note](b, OpArchiveNote, start, fmt.Errorf("archive note %s: %w", id, err))
	}
	b.store.ReplaceNote(note)
	b.done(OpArchiveNote, start, "note", id, "archived", note.IsArchived)
	return Ok(note)
}

// ReorderNotes sets the order of ids and, when column is set, moves them into
// it. The remote must implement Reorderer. Ordering is reconciled by refetch.
func (b *Board) ReorderNotes(ctx context.Context, column ColumnID, ids []NoteID) Result[[]Note] {
	start := time.Now()
	r, ok := b.remote.(Reorderer)
	if !ok {
		return fail[[]Note](b, OpReorderNotes, start, fmt.Errorf("reorder notes: %w", ErrUnsupported))
	}
	if len(ids) == 0 {
		return fail[[]Note](b, OpReorderNotes, start, &ValidationError{Field: "note_ids", Message: "is required"})
	}
	if column != "" {
		if _, ok := b.store.Column(column); !ok {
			return fail[[]Note](b, OpReorderNotes, start, unknownColumn(column))
		}
	}
	for _, id := range ids {
		if _, ok := b.store.Note(id); !ok {
			return fail[[]Note](b, OpReorderNotes, start, NotFound(KindNote, string(id)))
		}
	}

	if err := b.claim(OpReorderNotes, ids[0], ids[1:]...); err != nil {
		return fail[[]Note](b, OpReorderNotes, start, fmt.Errorf("reorder notes: %w", err))
	}
	defer b.release(ids[0], ids[1:]...)

	if err := r.ReorderNotes(ctx, column, ids); err != nil {
		return fail[[]Note](b, OpReorderNotes, start, fmt.Errorf("reorder notes: %w", err))
	}
	if err := b.RefreshNotes(ctx); err != nil {
		b.logger.Warn("reconciliation after reorder failed", "error", err)
	}
	b.done(OpReorderNotes, start, "count", len(ids))
	return Ok(b.store.Notes())
}

// BeginDrag records the note being dragged.
func (b *Board) BeginDrag(id NoteID) {
	b.mu.Lock()
	b.dragging = id
	b.mu.Unlock()
}

// ActiveDrag returns the note being dragged, if any.
func (b *Board) ActiveDrag() (NoteID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dragging, b.dragging != ""
}

// DispatchDragEnd resolves a drop against the current projection and executes
// the resulting move. The active drag is cleared before anything else, whether
// or not a move follows. A gesture that resolves to nothing succeeds with
// Applied false and issues no remote call.
func (b *Board) DispatchDragEnd(ctx context.Context, activeID, overID string) Result[Move] {
	b.mu.Lock()
	b.dragging = ""
	b.mu.Unlock()

	intent, ok := Resolve(b.projection.View(), activeID, overID)
	if !ok {
		b.logger.Debug("drag discarded", "active", activeID, "over", overID)
		return Ok(Move{})
	}
	return b.MoveNote(ctx, intent)
}

// MoveNote executes a move intent. At most one operation per note is in
// flight: a second move, update, archive or delete of the same note fails with
// ErrMoveInFlight until the move, including its reconciliation, has completed. On success the moved note
// is replaced with the server object and exactly one full notes refetch
// reconciles the siblings.
func (b *Board) MoveNote(ctx context.Context, intent MoveIntent) Result[Move] {
	start := time.Now()
	if err := b.checkIntent(intent); err != nil {
		return fail[Move](b, OpMoveNote, start, err)
	}
	if err := b.claim(OpMoveNote, intent.NoteID); err != nil {
		return fail[Move](b, OpMoveNote, start, fmt.Errorf("move note %s: %w", intent.NoteID, err))
	}
	defer b.release(intent.NoteID)

	note, err := b.remote.MoveNote(ctx, intent.NoteID, intent.TargetColumnID, intent.TargetIndex)
	if err != nil {
		return fail[Move](b, OpMoveNote, start, fmt.Errorf("move note %s: %w", intent.NoteID, err))
	}
	b.store.ReplaceNote(note)

	move := Move{Intent: intent, Note: note, Applied: true}
	if err := b.RefreshNotes(ctx); err != nil {
		b.logger.Warn("reconciliation after move failed", "note", intent.NoteID, "error", err)
	} else {
		move.Reconciled = true
	}

	b.done(OpMoveNote, start, "note", intent.NoteID, "column", intent.TargetColumnID, "index", intent.TargetIndex)
	return Ok(move)
}

// Watch reconciles the board on every change reported by a Watchable remote
// and forwards those changes. The channel closes when ctx is done or the
// remote stops reporting.
func (b *Board) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := b.remote.(Watchable)
	if !ok {
		return nil, fmt.Errorf("watch: %w", ErrUnsupported)
	}
	in, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, b.eventBuffer)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-in:
				if !ok {
					return
				}
				if err := b.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
					b.logger.Warn("reconcile after remote change failed", "event", e.String(), "error", err)
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// InFlight returns the notes that currently have an operation pending.
func (b *Board) InFlight() []NoteID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]NoteID, 0, len(b.inflight))
	for id := range b.inflight {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (b *Board) checkIntent(intent MoveIntent) error {
	if intent.NoteID == "" {
		return &ValidationError{Field: "note", Message: "is required"}
	}
	if intent.TargetIndex < 0 {
		return &ValidationError{Field: "position", Message: "must not be negative"}
	}
	if _, ok := b.store.Note(intent.NoteID); !ok {
		return NotFound(KindNote, string(intent.NoteID))
	}
	if _, ok := b.store.Column(intent.TargetColumnID); !ok {
		return unknownColumn(intent.TargetColumnID)
	}
	return nil
}

// claim marks id and more as having op pending, all or nothing. It fails with
// ErrMoveInFlight when one of them is being moved and ErrBusy otherwise.
func (b *Board) claim(op string, id NoteID, more ...NoteID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range append([]NoteID{id}, more...) {
		holder, busy := b.inflight[n]
		if !busy {
			continue
		}
		if holder == OpMoveNote {
			return ErrMoveInFlight
		}
		return fmt.Errorf("%s pending on note %s: %w", holder, n, ErrBusy)
	}
	b.inflight[id] = op
	for _, n := range more {
		b.inflight[n] = op
	}
	return nil
}

func (b *Board) release(id NoteID, more ...NoteID) {
	b.mu.Lock()
	delete(b.inflight, id)
	for _, n := range more {
		delete(b.inflight, n)
	}
	b.mu.Unlock()
}

func trimmed(title *string) *string {
	if title == nil {
		return nil
	}
	t := strings.TrimSpace(*title)
	return &t
}

func (b *Board) done(op string, start time.Time, attrs ...any) {
	elapsed := time.Since(start)
	b.observer.Observe(op, nil, elapsed)
	b.logger.Debug(op, append(attrs, "elapsed", elapsed)...)
}

func fail[T any](b *Board, op string, start time.Time, err error) Result[T] {
	b.observer.Observe(op, err, time.Since(start))
	b.logger.Warn(op+" failed", "error", err)
	return Fail[T](err)
}

func unknownColumn(id ColumnID) error {
	return &ValidationError{Field: "column", Message: fmt.Sprintf("references unknown column %q", id)}
}

func checkPermutation[T any, K comparable](ids []K, current []T, key func(T) K) error {
	if len(ids) == 0 {
		return &ValidationError{Field: "ids", Message: "is required"}
	}
	known := make(map[K]bool, len(current))
	for _, item := range current {
		known[key(item)] = false
	}
	for _, id := range ids {
		seen, ok := known[id]
		if !ok {
			return &ValidationError{Field: "ids", Message: fmt.Sprintf("unknown id %v", id)}
		}
		if seen {
			return &ValidationError{Field: "ids", Message: fmt.Sprintf("duplicate id %v", id)}
		}
		known[id] = true
	}
	return nil
}
