package core

// Resolve converts a drag-end gesture into a move intent using the view
// taken at drop time. It performs no I/O.
//
// activeID is the dragged note; overID is whatever was under the pointer on
// release: a column id, a note id, or nothing. The second result is false
// when the gesture means no move:
//   - the dragged note is not visible, or overID resolves to nothing visible;
//   - the note is dropped on the empty area of its own column;
//   - the note is dropped on a note of its own column at its current index.
//
// A drop on a column appends at the end of that column. A drop on a note
// targets that note's index in its column.
func Resolve(v *View, activeID, overID string) (MoveIntent, bool) {
	if activeID == "" || overID == "" {
		return MoveIntent{}, false
	}

	active := NoteID(activeID)
	fromColumn, fromIndex, ok := v.Locate(active)
	if !ok {
		return MoveIntent{}, false
	}

	if target := ColumnID(overID); v.HasColumn(target) {
		if target == fromColumn {
			return MoveIntent{}, false
		}
		return MoveIntent{
			NoteID:         active,
			TargetColumnID: target,
			TargetIndex:    len(v.NotesInColumn(target)),
		}, true
	}

	target, overIndex, ok := v.Locate(NoteID(overID))
	if !ok {
		return MoveIntent{}, false
	}
	if target == fromColumn && overIndex == fromIndex {
		return MoveIntent{}, false
	}
	return MoveIntent{
		NoteID:         active,
		TargetColumnID: target,
		TargetIndex:    overIndex,
	}, true
}
