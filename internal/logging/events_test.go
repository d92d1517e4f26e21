package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventRingDrainsInOrder(t *testing.T) {
	r := NewEventRing(8)
	r.Push(EventUnderflow, 1)
	r.Push(EventOverflow, 2)
	r.Push(EventWorkerCrash, 3)

	var got []EventCode
	r.Drain(func(code EventCode, aux uint32) { got = append(got, code) })

	assert.Equal(t, []EventCode{EventUnderflow, EventOverflow, EventWorkerCrash}, got)
}

func TestEventRingDrainIsIdempotentWhenEmpty(t *testing.T) {
	r := NewEventRing(4)
	r.Push(EventFailover, 0)

	var n int
	r.Drain(func(EventCode, uint32) { n++ })
	r.Drain(func(EventCode, uint32) { n++ })

	assert.Equal(t, 1, n)
}

func TestEventRingSurvivesOverwriteUnderPressure(t *testing.T) {
	r := NewEventRing(4)
	for i := 0; i < 100; i++ {
		r.Push(EventUnderflow, uint32(i))
	}
	assert.NotPanics(t, func() {
		r.Drain(func(EventCode, uint32) {})
	})
}
