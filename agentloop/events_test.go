package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventEmitterDropsWhenFull(t *testing.T) {
	bus := NewEventEmitter(2)
	events := sessionEvents{bus: bus, id: "s1"}
	for i := 0; i < 5; i++ {
		events.Emit(EventNudge, map[string]any{"n": i})
	}
	assert.EqualValues(t, 3, bus.Dropped())

	bus.Close()
	bus.Close()
	events.Emit(EventNudge, nil)

	var got []SessionEvent
	for ev := range bus.Events() {
		got = append(got, ev)
	}
	if assert.Len(t, got, 2) {
		assert.Equal(t, "s1", got[0].SessionID)
		assert.Equal(t, 0, got[0].Data["n"])
		assert.False(t, got[0].Timestamp.IsZero())
	}
}

func TestNilEventEmitter(t *testing.T) {
	var bus *EventEmitter
	assert.NotPanics(t, func() {
		sessionEvents{bus: bus}.Emit(EventWarning, nil)
		bus.Close()
	})
	assert.Zero(t, bus.Dropped())
}
