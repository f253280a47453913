package core

import "context"

// Remote defines the contract of the authoritative persistence service.
// The board never persists anything itself: every lifecycle change goes
// through a Remote and the returned object is what the store adopts.
// Adhering to this interface keeps the core independent of the transport
// (filesystem, HTTP, in-memory fakes).
type Remote interface {
	// ListColumns returns every column in authoritative order.
	ListColumns(ctx context.Context) ([]Column, error)

	// CreateColumn creates a column and returns it with its server-assigned id.
	CreateColumn(ctx context.Context, draft ColumnDraft) (Column, error)

	// UpdateColumn applies a partial update.
	UpdateColumn(ctx context.Context, id ColumnID, patch ColumnPatch) (Column, error)

	// DeleteColumn removes a column. The remote cascades its notes.
	DeleteColumn(ctx context.Context, id ColumnID) error

	// ListNotes returns notes in authoritative order, narrowed by filter.
	ListNotes(ctx context.Context, filter NoteFilter) ([]Note, error)

	// CreateNote creates a note and returns it with its server-assigned id and timestamps.
	CreateNote(ctx context.Context, draft NoteDraft) (Note, error)

	// UpdateNote applies a partial update.
	UpdateNote(ctx context.Context, id NoteID, patch NotePatch) (Note, error)

	// DeleteNote removes a note.
	DeleteNote(ctx context.Context, id NoteID) error

	// MoveNote places a note at index within the target column.
	// Only the moved note is returned; sibling positions must be refetched.
	MoveNote(ctx context.Context, id NoteID, target ColumnID, index int) (Note, error)

	// ArchiveNote toggles the archived flag.
	ArchiveNote(ctx context.Context, id NoteID) (Note, error)
}

// Reorderer defines remotes that accept a full ordering in one call.
type Reorderer interface {
	// ReorderColumns sets the column order to ids.
	ReorderColumns(ctx context.Context, ids []ColumnID) error

	// ReorderNotes sets the order of ids and, when column is not empty, moves them there.
	ReorderNotes(ctx context.Context, column ColumnID, ids []NoteID) error
}

// Watchable defines remotes that report out-of-band changes (other sessions,
// manual edits) so the board can reconcile.
type Watchable interface {
	// Watch emits an event for every change whose source name matches pattern.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Initializer defines remotes that need storage bootstrap before first use.
type Initializer interface {
	// Initialize ensures the underlying storage is ready (directories, git init, seed file).
	Initialize(ctx context.Context) error
}
