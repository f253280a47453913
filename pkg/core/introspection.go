package core

import (
	"github.com/aretw0/introspection"
)

// BoardState exposes internal state for observability.
type BoardState struct {
	Columns         int      `json:"columns"`
	Notes           int      `json:"notes"`
	Version         uint64   `json:"version"`
	InFlight        []NoteID `json:"in_flight"`
	Dragging        NoteID   `json:"dragging,omitempty"`
	SearchQuery     string   `json:"search_query,omitempty"`
	ShowArchived    bool     `json:"show_archived"`
	EventBufferSize int      `json:"event_buffer_size"`
	RemoteType      string   `json:"remote_type"`
}

// State implements introspection.Introspectable.
func (b *Board) State() any {
	snap := b.store.Snapshot()
	dragging, _ := b.ActiveDrag()

	remoteType := "unknown"
	if b.remote != nil {
		remoteType = "remote"
		// Try to get component type if the remote implements introspection.Component
		if comp, ok := b.remote.(introspection.Component); ok {
			remoteType = comp.ComponentType()
		}
	}

	return BoardState{
		Columns:         len(snap.Columns),
		Notes:           len(snap.Notes),
		Version:         snap.Version,
		InFlight:        b.InFlight(),
		Dragging:        dragging,
		SearchQuery:     snap.SearchQuery,
		ShowArchived:    snap.ShowArchived,
		EventBufferSize: b.eventBuffer,
		RemoteType:      remoteType,
	}
}

// ComponentType implements introspection.Component.
func (b *Board) ComponentType() string {
	return "board"
}

var _ introspection.Introspectable = (*Board)(nil)
var _ introspection.Component = (*Board)(nil)
