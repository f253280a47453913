// Package lifecycle exposes board change streams as lifecycle sources.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/noteboard/pkg/core"
)

type boardSource struct {
	events <-chan core.Event
	kinds  map[core.EntityKind]bool
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits board events, for example
// the channel returned by Board.Subscribe or Board.Watch. When kinds is not
// empty only events of those kinds are forwarded.
func NewSource(events <-chan core.Event, kinds ...core.EntityKind) lifecycle.Source {
	s := &boardSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	if len(kinds) > 0 {
		s.kinds = make(map[core.EntityKind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	return s
}

func (s *boardSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *boardSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if s.kinds != nil && !s.kinds[e.Kind] {
					continue
				}
				// lifecycle.Event only needs String().
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
