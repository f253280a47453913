package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/noteboard/pkg/adapters/lifecycle"
	"github.com/aretw0/noteboard/pkg/core"
)

func TestSource_ForwardsStoreEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := core.NewStore()
	events, unsubscribe := store.Subscribe(10)
	defer unsubscribe()

	src := lifecycle.NewSource(events, core.KindNote)
	require.NoError(t, src.Start(ctx))

	store.InsertColumn(core.Column{ID: "1"})
	store.InsertNote(core.Note{ID: "a", Column: "1"})

	select {
	case e := <-src.Events():
		assert.Equal(t, "CREATE note a", e.String())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-src.Events()
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestSource_ClosesWithInput(t *testing.T) {
	in := make(chan core.Event)
	src := lifecycle.NewSource(in)
	require.NoError(t, src.Start(context.Background()))

	close(in)
	select {
	case _, open := <-src.Events():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("source did not close")
	}
}
