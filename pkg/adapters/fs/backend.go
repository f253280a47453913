// Package fs provides an authoritative, file-backed board remote.
//
// The whole board lives in a single document (board.yaml by default, or
// board.json) inside a directory. Every write goes through an atomic rename
// under a cross-process file lock and, when versioning is enabled, is
// committed to git.
package fs

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/noteboard/pkg/core"
	"github.com/aretw0/noteboard/pkg/git"
)

// BoardFile is the base name of the board document.
const BoardFile = "board"

// Backend implements core.Remote, core.Reorderer, core.Watchable and
// core.Initializer on top of a board document.
type Backend struct {
	Path string

	config      Config
	git         *git.Client
	serializers map[string]Serializer
	cache       *cache
	now         func() time.Time

	mu            sync.RWMutex
	lastWritten   []byte
	lastWrite     *time.Time
	lastReconcile *time.Time
	watcherActive bool
}

var (
	_ core.Remote      = (*Backend)(nil)
	_ core.Reorderer   = (*Backend)(nil)
	_ core.Watchable   = (*Backend)(nil)
	_ core.Initializer = (*Backend)(nil)
)

// Config holds the configuration for the filesystem backend.
type Config struct {
	Path         string
	Format       string // "yaml" (default) or "json"
	AutoInit     bool   // git init when Versioning is on and the directory is not a repository
	MustExist    bool   // fail instead of creating a missing directory
	Versioning   bool   // commit every mutation to git
	ReadOnly     bool
	Logger       *slog.Logger
	ErrorHandler func(error)
	Debounce     time.Duration // watcher coalescing window; zero means 50ms
}

// NewBackend creates a new filesystem-backed board remote.
func NewBackend(config Config) *Backend {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Format == "" {
		config.Format = "yaml"
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	return &Backend{
		Path:        config.Path,
		config:      config,
		git:         git.NewClient(config.Path, git.DefaultLockName, config.Logger),
		serializers: DefaultSerializers(),
		cache:       newCache(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Filename returns the board document name, relative to Path.
// An existing document wins over the configured format.
func (b *Backend) Filename() string {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		name := BoardFile + ext
		if _, err := os.Stat(filepath.Join(b.Path, name)); err == nil {
			return name
		}
	}
	return BoardFile + "." + b.config.Format
}

// Initialize performs the necessary setup (mkdir, git init, seed document).
func (b *Backend) Initialize(ctx context.Context) error {
	if b.config.MustExist || b.config.ReadOnly {
		info, err := os.Stat(b.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("board path does not exist: %s", b.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("board path is not a directory: %s", b.Path)
		}
	} else if err := os.MkdirAll(b.Path, 0755); err != nil {
		return fmt.Errorf("failed to create board directory: %w", err)
	}

	// Read-only boards are opened as they are.
	if b.config.ReadOnly {
		return nil
	}

	if b.config.Versioning {
		if !git.IsInstalled() {
			return fmt.Errorf("git is not installed")
		}
		if !b.git.IsRepo() {
			if !b.config.AutoInit {
				return fmt.Errorf("path is not a git repository: %s", b.Path)
			}
			if err := b.git.Init(); err != nil {
				return fmt.Errorf("failed to git init: %w", err)
			}
		}
		if _, err := b.ensureIgnore(); err != nil {
			return fmt.Errorf("failed to ensure .gitignore: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(b.Path, b.Filename())); err == nil {
		return nil
	}
	return b.update(ctx, "board", "initialize", func(*Document) error { return nil })
}

func (b *Backend) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(b.Path, ".gitignore")
	entries := []string{b.git.LockName(), TempFilePrefix + "*"}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	existing := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		existing[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, e := range entries {
		if !existing[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(strings.Join(missing, "\n") + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// --- Columns ---

// ListColumns returns every column ordered by position, with note counts.
func (b *Backend) ListColumns(ctx context.Context) ([]core.Column, error) {
	doc, err := b.read()
	if err != nil {
		return nil, err
	}
	return decorateColumns(doc), nil
}

// CreateColumn appends a column after the last one.
func (b *Backend) CreateColumn(ctx context.Context, draft core.ColumnDraft) (core.Column, error) {
	if err := core.Validate(draft); err != nil {
		return core.Column{}, err
	}

	var created core.Column
	err := b.update(ctx, "column", "create "+draft.Title, func(doc *Document) error {
		created = core.Column{
			ID:        core.ColumnID(uuid.NewString()),
			Title:     draft.Title,
			Color:     draft.Color,
			Position:  nextColumnPosition(doc.Columns),
			CreatedAt: b.now(),
		}
		doc.Columns = append(doc.Columns, created)
		return nil
	})
	return created, err
}

// UpdateColumn applies a partial update.
func (b *Backend) UpdateColumn(ctx context.Context, id core.ColumnID, patch core.ColumnPatch) (core.Column, error) {
	if err := core.Validate(patch); err != nil {
		return core.Column{}, err
	}

	var updated core.Column
	err := b.update(ctx, "column", "update "+string(id), func(doc *Document) error {
		i := columnIndex(doc, id)
		if i < 0 {
			return core.NotFound(core.KindColumn, string(id))
		}
		if patch.Title != nil {
			doc.Columns[i].Title = *patch.Title
		}
		if patch.Color != nil {
			doc.Columns[i].Color = *patch.Color
		}
		updated = doc.Columns[i]
		updated.NoteCount = countActive(doc, id)
		return nil
	})
	return updated, err
}

// DeleteColumn removes a column and its notes, then compacts the positions
// of the columns that followed it.
func (b *Backend) DeleteColumn(ctx context.Context, id core.ColumnID) error {
	return b.update(ctx, "column", "delete "+string(id), func(doc *Document) error {
		i := columnIndex(doc, id)
		if i < 0 {
			return core.NotFound(core.KindColumn, string(id))
		}
		removed := doc.Columns[i]
		doc.Columns = slices.Delete(doc.Columns, i, i+1)
		doc.Notes = slices.DeleteFunc(doc.Notes, func(n core.Note) bool { return n.Column == id })

		sortColumns(doc.Columns)
		pos := removed.Position
		for j := range doc.Columns {
			if doc.Columns[j].Position > removed.Position {
				doc.Columns[j].Position = pos
				pos++
			}
		}
		return nil
	})
}

// ReorderColumns assigns positions following ids.
func (b *Backend) ReorderColumns(ctx context.Context, ids []core.ColumnID) error {
	if len(ids) == 0 {
		return &core.ValidationError{Field: "column_ids", Message: "is required"}
	}
	return b.update(ctx, "column", fmt.Sprintf("reorder %d", len(ids)), func(doc *Document) error {
		for pos, id := range ids {
			i := columnIndex(doc, id)
			if i < 0 {
				return core.NotFound(core.KindColumn, string(id))
			}
			doc.Columns[i].Position = pos
		}
		return nil
	})
}

// --- Notes ---

// ListNotes returns notes ordered by (position, newest first), narrowed by filter.
func (b *Backend) ListNotes(ctx context.Context, filter core.NoteFilter) ([]core.Note, error) {
	doc, err := b.read()
	if err != nil {
		return nil, err
	}

	titles := make(map[core.ColumnID]string, len(doc.Columns))
	for _, c := range doc.Columns {
		titles[c.ID] = c.Title
	}

	q := strings.ToLower(filter.Search)
	notes := make([]core.Note, 0, len(doc.Notes))
	for _, n := range doc.Notes {
		if filter.ColumnID != "" && n.Column != filter.ColumnID {
			continue
		}
		if filter.IsArchived != nil && n.IsArchived != *filter.IsArchived {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		n.ColumnTitle = titles[n.Column]
		notes = append(notes, n)
	}
	sortNotes(notes)
	return notes, nil
}

// CreateNote appends a note at the end of its column.
func (b *Backend) CreateNote(ctx context.Context, draft core.NoteDraft) (core.Note, error) {
	if draft.Color == "" {
		draft.Color = core.DefaultNoteColor
	}
	if err := core.Validate(draft); err != nil {
		return core.Note{}, err
	}

	var created core.Note
	err := b.update(ctx, "note", "create "+draft.Title, func(doc *Document) error {
		if columnIndex(doc, draft.Column) < 0 {
			return unknownColumn(draft.Column)
		}
		now := b.now()
		created = core.Note{
			ID:        core.NoteID(uuid.NewString()),
			Title:     draft.Title,
			Content:   draft.Content,
			Color:     draft.Color,
			Column:    draft.Column,
			Position:  nextNotePosition(doc, draft.Column),
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc.Notes = append(doc.Notes, created)
		created.ColumnTitle = doc.Columns[columnIndex(doc, draft.Column)].Title
		return nil
	})
	return created, err
}

// UpdateNote applies a partial update. A column change appends the note to
// the end of the new column.
func (b *Backend) UpdateNote(ctx context.Context, id core.NoteID, patch core.NotePatch) (core.Note, error) {
	if err := core.Validate(patch); err != nil {
		return core.Note{}, err
	}

	var updated core.Note
	err := b.update(ctx, "note", "update "+string(id), func(doc *Document) error {
		i := noteIndex(doc, id)
		if i < 0 {
			return core.NotFound(core.KindNote, string(id))
		}
		n := &doc.Notes[i]
		if patch.Column != nil && *patch.Column != n.Column {
			if columnIndex(doc, *patch.Column) < 0 {
				return unknownColumn(*patch.Column)
			}
			n.Position = nextNotePosition(doc, *patch.Column)
			n.Column = *patch.Column
		}
		if patch.Title != nil {
			n.Title = *patch.Title
		}
		if patch.Content != nil {
			n.Content = *patch.Content
		}
		if patch.Color != nil {
			n.Color = *patch.Color
		}
		if patch.IsArchived != nil {
			n.IsArchived = *patch.IsArchived
		}
		n.UpdatedAt = b.now()
		updated = withColumnTitle(doc, *n)
		return nil
	})
	return updated, err
}

// DeleteNote removes a note.
func (b *Backend) DeleteNote(ctx context.Context, id core.NoteID) error {
	return b.update(ctx, "note", "delete "+string(id), func(doc *Document) error {
		i := noteIndex(doc, id)
		if i < 0 {
			return core.NotFound(core.KindNote, string(id))
		}
		doc.Notes = slices.Delete(doc.Notes, i, i+1)
		return nil
	})
}

// MoveNote places a note at index among the active notes of the target
// column. Siblings of the source and target columns are renumbered so their
// positions stay dense.
func (b *Backend) MoveNote(ctx context.Context, id core.NoteID, target core.ColumnID, index int) (core.Note, error) {
	if index < 0 {
		return core.Note{}, &core.ValidationError{Field: "position", Message: "must not be negative"}
	}

	var moved core.Note
	err := b.update(ctx, "note", fmt.Sprintf("move %s to %s@%d", id, target, index), func(doc *Document) error {
		i := noteIndex(doc, id)
		if i < 0 {
			return core.NotFound(core.KindNote, string(id))
		}
		if columnIndex(doc, target) < 0 {
			return unknownColumn(target)
		}

		source := doc.Notes[i].Column
		siblings := activeIn(doc, target, id)
		index = min(index, len(siblings))
		siblings = slices.Insert(siblings, index, id)

		doc.Notes[i].Column = target
		doc.Notes[i].UpdatedAt = b.now()
		renumber(doc, siblings)
		if source != target {
			renumber(doc, activeIn(doc, source, ""))
		}

		moved = withColumnTitle(doc, doc.Notes[i])
		return nil
	})
	return moved, err
}

// ArchiveNote toggles the archived flag.
func (b *Backend) ArchiveNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	var archived core.Note
	err := b.update(ctx, "note", "archive "+string(id), func(doc *Document) error {
		i := noteIndex(doc, id)
		if i < 0 {
			return core.NotFound(core.KindNote, string(id))
		}
		doc.Notes[i].IsArchived = !doc.Notes[i].IsArchived
		doc.Notes[i].UpdatedAt = b.now()
		archived = withColumnTitle(doc, doc.Notes[i])
		return nil
	})
	return archived, err
}

// ReorderNotes assigns positions following ids and, when column is set,
// moves every listed note into it.
func (b *Backend) ReorderNotes(ctx context.Context, column core.ColumnID, ids []core.NoteID) error {
	if len(ids) == 0 {
		return &core.ValidationError{Field: "note_ids", Message: "is required"}
	}
	return b.update(ctx, "note", fmt.Sprintf("reorder %d", len(ids)), func(doc *Document) error {
		if column != "" && columnIndex(doc, column) < 0 {
			return unknownColumn(column)
		}
		now := b.now()
		for pos, id := range ids {
			i := noteIndex(doc, id)
			if i < 0 {
				return core.NotFound(core.KindNote, string(id))
			}
			doc.Notes[i].Position = pos
			if column != "" {
				doc.Notes[i].Column = column
			}
			doc.Notes[i].UpdatedAt = now
		}
		return nil
	})
}

// --- Storage ---

func (b *Backend) serializer(name string) (Serializer, error) {
	s, ok := b.serializers[filepath.Ext(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported board format %q", filepath.Ext(name))
	}
	return s, nil
}

// read loads the board document. A missing document reads as an empty board.
func (b *Backend) read() (*Document, error) {
	name := b.Filename()
	s, err := b.serializer(name)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(b.Path, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, err
	}
	if doc, ok := b.cache.Get(name, info); ok {
		return doc, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := s.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	b.cache.Set(name, info, doc)
	return doc, nil
}

// update runs fn against the current document and persists the result.
// Nothing is written when fn fails.
func (b *Backend) update(ctx context.Context, scope, change string, fn func(doc *Document) error) error {
	if b.config.ReadOnly {
		return core.ErrReadOnly
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	unlock, err := b.git.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := b.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	sortColumns(doc.Columns)

	name := b.Filename()
	s, err := b.serializer(name)
	if err != nil {
		return err
	}
	data, err := s.Serialize(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize board: %w", err)
	}
	path := filepath.Join(b.Path, name)
	if err := writeFileAtomic(path, data, 0644); err != nil {
		b.cache.Delete(name)
		return fmt.Errorf("failed to write board: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		b.cache.Set(name, info, doc)
	}

	now := time.Now()
	b.lastWritten = data
	b.lastWrite = &now
	b.config.Logger.Debug("board written", "file", name, "scope", scope, "change", change)

	if b.config.Versioning {
		if err := b.commit(name, scope, change); err != nil {
			return err
		}
	}
	return nil
}

// commit records the document change. Creations are features, every other
// change is a chore.
func (b *Backend) commit(name, scope, change string) error {
	if err := b.git.Add(name); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	ctype := git.CommitTypeChore
	if strings.HasPrefix(change, "create ") {
		ctype = git.CommitTypeFeat
	}
	msg := git.FormatCommitMessage(ctype, scope, change, "")
	if err := b.git.Commit(msg); err != nil && !errors.Is(err, git.ErrNothingToCommit) {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// ownWrite reports whether data is what this backend wrote last.
func (b *Backend) ownWrite(data []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastWritten != nil && bytes.Equal(b.lastWritten, data)
}

// --- Document helpers ---

func columnIndex(doc *Document, id core.ColumnID) int {
	return slices.IndexFunc(doc.Columns, func(c core.Column) bool { return c.ID == id })
}

func noteIndex(doc *Document, id core.NoteID) int {
	return slices.IndexFunc(doc.Notes, func(n core.Note) bool { return n.ID == id })
}

func sortColumns(columns []core.Column) {
	slices.SortStableFunc(columns, func(a, b core.Column) int {
		return cmp.Compare(a.Position, b.Position)
	})
}

// sortNotes orders by position, newest first among equal positions.
func sortNotes(notes []core.Note) {
	slices.SortStableFunc(notes, func(a, b core.Note) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func nextColumnPosition(columns []core.Column) int {
	pos := 0
	for _, c := range columns {
		pos = max(pos, c.Position+1)
	}
	return pos
}

func nextNotePosition(doc *Document, column core.ColumnID) int {
	pos := 0
	for _, n := range doc.Notes {
		if n.Column == column && !n.IsArchived {
			pos = max(pos, n.Position+1)
		}
	}
	return pos
}

func countActive(doc *Document, column core.ColumnID) int {
	count := 0
	for _, n := range doc.Notes {
		if n.Column == column && !n.IsArchived {
			count++
		}
	}
	return count
}

// activeIn returns the ids of the active notes of a column in list order,
// leaving out skip.
func activeIn(doc *Document, column core.ColumnID, skip core.NoteID) []core.NoteID {
	var notes []core.Note
	for _, n := range doc.Notes {
		if n.Column == column && !n.IsArchived && n.ID != skip {
			notes = append(notes, n)
		}
	}
	sortNotes(notes)

	ids := make([]core.NoteID, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	return ids
}

func renumber(doc *Document, ids []core.NoteID) {
	for pos, id := range ids {
		if i := noteIndex(doc, id); i >= 0 {
			doc.Notes[i].Position = pos
		}
	}
}

func decorateColumns(doc *Document) []core.Column {
	columns := slices.Clone(doc.Columns)
	sortColumns(columns)
	for i := range columns {
		columns[i].NoteCount = countActive(doc, columns[i].ID)
	}
	return columns
}

func withColumnTitle(doc *Document, n core.Note) core.Note {
	if i := columnIndex(doc, n.Column); i >= 0 {
		n.ColumnTitle = doc.Columns[i].Title
	}
	return n
}

func unknownColumn(id core.ColumnID) error {
	return &core.ValidationError{Field: "column", Message: fmt.Sprintf("references unknown column %q", id)}
}
