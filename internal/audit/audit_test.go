package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherAndWorker(t *testing.T) {
	t.Run("events flow through the worker into the store", func(t *testing.T) {
		inbox := make(chan Event, 8)
		store := NewMemoryStore()
		worker := NewWorker(store, inbox)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = worker.Run(ctx)
		}()

		pub := NewPublisher(inbox)
		assert.True(t, pub.Emit(Event{Action: ActionIngest, EntityID: "e1"}))
		assert.True(t, pub.Emit(Event{Action: ActionCheck, Outcome: "duplicate"}))

		require.Eventually(t, func() bool {
			events, err := store.List(context.Background())
			return err == nil && len(events) == 2
		}, time.Second, 5*time.Millisecond)

		events, err := store.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ActionIngest, events[0].Action)
		assert.False(t, events[0].Timestamp.IsZero())

		cancel()
		<-done
	})

	t.Run("emit drops instead of blocking when the inbox is full", func(t *testing.T) {
		inbox := make(chan Event, 1)
		pub := NewPublisher(inbox)
		assert.True(t, pub.Emit(Event{Action: ActionCheck}))
		assert.False(t, pub.Emit(Event{Action: ActionCheck}))
	})

	t.Run("worker stops on context cancellation", func(t *testing.T) {
		inbox := make(chan Event)
		worker := NewWorker(NewMemoryStore(), inbox)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, worker.Run(ctx), context.Canceled)
	})
}
