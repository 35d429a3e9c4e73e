package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribePublish(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received []*Event
	bus.Subscribe(SignalUpdated, func(e *Event) {
		received = append(received, e)
	})

	bus.Publish(&Event{Type: SignalUpdated, Module: "risk"})
	bus.Publish(&Event{Type: PipelineCompleted, Module: "risk"}) // different type, not delivered

	require.Len(t, received, 1)
	assert.Equal(t, SignalUpdated, received[0].Type)
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	countA, countB := 0, 0
	bus.Subscribe(JobCompleted, func(*Event) { countA++ })
	bus.Subscribe(JobCompleted, func(*Event) { countB++ })

	bus.Publish(&Event{Type: JobCompleted})
	assert.Equal(t, 1, countA)
	assert.Equal(t, 1, countB)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	count := 0
	id := bus.Subscribe(SignalUpdated, func(*Event) { count++ })

	bus.Publish(&Event{Type: SignalUpdated})
	bus.Unsubscribe(SignalUpdated, id)
	bus.Publish(&Event{Type: SignalUpdated})

	assert.Equal(t, 1, count)

	// Unknown tokens are ignored
	bus.Unsubscribe(SignalUpdated, 9999)
	bus.Unsubscribe(PipelineCompleted, id)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var types []EventType
	id := bus.SubscribeAll(func(e *Event) {
		types = append(types, e.Type)
	})

	bus.Publish(&Event{Type: SignalUpdated})
	bus.Publish(&Event{Type: JobFailed})
	assert.Equal(t, []EventType{SignalUpdated, JobFailed}, types)

	bus.UnsubscribeAll(id)
	bus.Publish(&Event{Type: SignalUpdated})
	assert.Len(t, types, 2)
}

func TestBus_HandlerCanSubscribeDuringPublish(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	nested := 0
	bus.Subscribe(SignalUpdated, func(*Event) {
		// Subscribing from inside a handler must not deadlock
		bus.Subscribe(PipelineCompleted, func(*Event) { nested++ })
	})

	bus.Publish(&Event{Type: SignalUpdated})
	bus.Publish(&Event{Type: PipelineCompleted})
	assert.Equal(t, 1, nested)
}

func TestBus_PublishNil(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	assert.NotPanics(t, func() { bus.Publish(nil) })
}

func TestManager_Emit(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(PipelineCompleted, func(e *Event) { received = e })

	manager.Emit("risk", &PipelineCompletedData{RunID: "run-7", RowsScored: 12})

	require.NotNil(t, received)
	assert.Equal(t, PipelineCompleted, received.Type)
	assert.Equal(t, "risk", received.Module)
	assert.False(t, received.Timestamp.IsZero())

	data, ok := received.Data.(*PipelineCompletedData)
	require.True(t, ok)
	assert.Equal(t, "run-7", data.RunID)
	assert.Same(t, bus, manager.Bus())
}
