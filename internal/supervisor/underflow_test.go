package supervisor

import (
	"testing"

	"github.com/norsninja/chronus/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestCheckUnderflowRateAlertsAboveThreshold(t *testing.T) {
	sv := newTestSupervisor(t)
	sv.callbackSeq.Store(underflowWindowSize)
	for i := 0; i < 10; i++ { // 10/1000 = 1% > 0.5% threshold
		sv.underflowWindow[i].Store(1)
	}

	sv.checkUnderflowRate()

	var codes []logging.EventCode
	sv.events.Drain(func(code logging.EventCode, aux uint32) { codes = append(codes, code) })
	assert.Contains(t, codes, logging.EventUnderflowRateAlert)
}

func TestCheckUnderflowRateSilentBelowThreshold(t *testing.T) {
	sv := newTestSupervisor(t)
	sv.callbackSeq.Store(underflowWindowSize)
	sv.underflowWindow[0].Store(1) // 1/1000 = 0.1% < 0.5% threshold

	sv.checkUnderflowRate()

	var codes []logging.EventCode
	sv.events.Drain(func(code logging.EventCode, aux uint32) { codes = append(codes, code) })
	assert.NotContains(t, codes, logging.EventUnderflowRateAlert)
}

func TestCheckUnderflowRateDoesNotRepeatAlertWhileSustained(t *testing.T) {
	sv := newTestSupervisor(t)
	sv.callbackSeq.Store(underflowWindowSize)
	for i := 0; i < 10; i++ {
		sv.underflowWindow[i].Store(1)
	}

	sv.checkUnderflowRate()
	sv.events.Drain(func(logging.EventCode, uint32) {})

	sv.checkUnderflowRate()
	var n int
	sv.events.Drain(func(logging.EventCode, uint32) { n++ })
	assert.Equal(t, 0, n)
}

func TestCheckUnderflowRateClearsAfterRecovery(t *testing.T) {
	sv := newTestSupervisor(t)
	sv.callbackSeq.Store(underflowWindowSize)
	for i := 0; i < 10; i++ {
		sv.underflowWindow[i].Store(1)
	}
	sv.checkUnderflowRate()
	sv.events.Drain(func(logging.EventCode, uint32) {})

	for i := 0; i < 10; i++ {
		sv.underflowWindow[i].Store(0)
	}
	sv.checkUnderflowRate()

	for i := 0; i < 10; i++ {
		sv.underflowWindow[i].Store(1)
	}
	sv.checkUnderflowRate()

	var codes []logging.EventCode
	sv.events.Drain(func(code logging.EventCode, aux uint32) { codes = append(codes, code) })
	assert.Contains(t, codes, logging.EventUnderflowRateAlert)
}
