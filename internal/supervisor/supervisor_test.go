package supervisor

import (
	"testing"
	"time"

	"github.com/norsninja/chronus/internal/config"
	"github.com/norsninja/chronus/internal/dsp"
	"github.com/norsninja/chronus/internal/logging"
	"github.com/norsninja/chronus/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.BufferSize = 64
	cfg.Supervisor.RingDepth = 8
	cfg.Supervisor.PrimeTimeoutMs = 500
	cfg.Supervisor.HeartbeatPeriodMs = 2
	sv, err := New(cfg, logging.New())
	require.NoError(t, err)
	t.Cleanup(func() { sv.Close() })
	return sv
}

func sineSpec() patch.GraphSpec {
	return patch.GraphSpec{
		Modules:     []patch.ModuleSpec{{ID: "osc1", Type: dsp.TypeSine}},
		ChainOutput: "osc1",
		Prime: []patch.PrimeOp{
			{ModuleID: "osc1", Param: "freq", Value: 440},
			{ModuleID: "osc1", Param: "gain", Value: 0.5},
		},
	}
}

func TestCommitSwapsActiveSlot(t *testing.T) {
	sv := newTestSupervisor(t)
	initial := slotIndex(sv.activeIdx.Load())

	require.NoError(t, sv.Commit(sineSpec()))

	assert.NotEqual(t, initial, slotIndex(sv.activeIdx.Load()))
}

func TestCommitRejectsConcurrentCommit(t *testing.T) {
	sv := newTestSupervisor(t)
	sv.pendingCommit.Store(true)
	err := sv.Commit(sineSpec())
	assert.ErrorIs(t, err, ErrCommitBusy)
	sv.pendingCommit.Store(false)
}

func TestAudioCallbackDeliversExactBufferSize(t *testing.T) {
	sv := newTestSupervisor(t)
	require.NoError(t, sv.Commit(sineSpec()))

	// give the newly active worker a tick to produce a frame
	require.Eventually(t, func() bool {
		return sv.activeSlot().audioRing.Occupancy() > 0
	}, time.Second, time.Millisecond)

	out := make([]float32, sv.bufferSize)
	sv.AudioCallback(out)
	assert.Len(t, out, sv.bufferSize)
}

func TestAudioCallbackReplaysLastGoodOnUnderflow(t *testing.T) {
	sv := newTestSupervisor(t)
	out := make([]float32, sv.bufferSize)
	// No commit has happened yet: the active slot's empty graph only
	// produces silent frames, and reading far faster than the worker
	// produces drains its ring, so the callback must fall back to
	// last-known-good (all zero) without panic.
	for i := 0; i < 2*sv.activeSlot().audioRing.Capacity(); i++ {
		sv.AudioCallback(out)
	}
	for _, v := range out {
		assert.Equal(t, float32(0), v)
	}
	assert.Greater(t, sv.UnderflowCount(), uint64(0))
}
