// Package noteboard is the composition root of the note board engine.
//
// It connects the board core (columns, notes, projection, drag resolution and
// move coordination) with an authoritative remote, following the Hexagonal
// Architecture pattern: pkg/core defines the ports, pkg/adapters implements
// them.
//
// The board never persists anything itself. Every create, update, delete,
// archive and move goes through the remote, and the store only adopts what
// the remote returns. After a move exactly one full notes refetch restores
// the authoritative ordering of the siblings.
//
// Adapters:
//
//   - fs: a single board document (YAML or JSON) in a directory, written
//     atomically under a file lock and optionally committed to git.
//   - rest: an HTTP client for the board REST API, as served by
//     `noteboard serve`.
//
// Usage:
//
//	board, err := noteboard.Open(ctx, "./board",
//		noteboard.WithAutoInit(true),
//		noteboard.WithLogger(logger),
//	)
//
//	todo := board.CreateColumn(ctx, "Todo", "")
//	if !todo.Success {
//		return todo.Err
//	}
package noteboard
