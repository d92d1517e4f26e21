package oscctl

import (
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/norsninja/chronus/internal/config"
	"github.com/norsninja/chronus/internal/dsp"
	"github.com/norsninja/chronus/internal/logging"
	"github.com/norsninja/chronus/internal/patch"
	"github.com/norsninja/chronus/internal/ring"
	"github.com/norsninja/chronus/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oscMsg(addr string, args ...interface{}) *osc.Message {
	msg := osc.NewMessage(addr)
	for _, a := range args {
		msg.Append(a)
	}
	return msg
}

func TestWriteParamToBuildsParamSetCommand(t *testing.T) {
	r := &Router{logger: logging.New()}
	host := patch.NewHost(48000, 64)
	require.NoError(t, host.Reset(patch.GraphSpec{
		Modules:     []patch.ModuleSpec{{ID: "osc1", Type: dsp.TypeSine}},
		ChainOutput: "osc1",
	}))
	cmdRing := ring.NewCommandRing(8)

	r.writeParamTo(host, cmdRing, "osc1", "freq", 9000) // above the 5000Hz declared max

	cmd, err := cmdRing.Read()
	require.NoError(t, err)
	assert.Equal(t, ring.OpParamSet, cmd.Op)
}

func TestWriteParamToDropsUnknownParam(t *testing.T) {
	r := &Router{logger: logging.New()}
	host := patch.NewHost(48000, 64)
	require.NoError(t, host.Reset(patch.GraphSpec{
		Modules:     []patch.ModuleSpec{{ID: "osc1", Type: dsp.TypeSine}},
		ChainOutput: "osc1",
	}))
	cmdRing := ring.NewCommandRing(8)

	r.writeParamTo(host, cmdRing, "osc1", "nonexistent", 1)

	assert.Equal(t, 0, cmdRing.Occupancy())
}

func TestWriteGateToBuildsCommand(t *testing.T) {
	r := &Router{logger: logging.New()}
	host := patch.NewHost(48000, 64)
	require.NoError(t, host.Reset(patch.GraphSpec{
		Modules:     []patch.ModuleSpec{{ID: "env1", Type: dsp.TypeADSR}},
		ChainOutput: "env1",
	}))
	cmdRing := ring.NewCommandRing(8)

	r.writeGateTo(host, cmdRing, "env1", true)

	cmd, err := cmdRing.Read()
	require.NoError(t, err)
	assert.Equal(t, ring.OpGate, cmd.Op)
	assert.Equal(t, float32(1), cmd.Value)
}

func newTestRouter(t *testing.T) (*Router, *supervisor.Supervisor) {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.BufferSize = 64
	cfg.Supervisor.RingDepth = 8
	cfg.Supervisor.PrimeTimeoutMs = 500
	cfg.Supervisor.HeartbeatPeriodMs = 2
	sv, err := supervisor.New(cfg, logging.New())
	require.NoError(t, err)
	t.Cleanup(func() { sv.Close() })

	r := NewRouter(sv, logging.New(), "localhost", 0, "localhost", 5006)
	return r, sv
}

func TestRouterPatchLifecycleCommitsGraph(t *testing.T) {
	r, sv := newTestRouter(t)

	r.handlePatchCreate(oscMsg("/patch/create", "osc1", "sine"))
	r.handlePatchCreate(oscMsg("/patch/create", "filt1", "biquad_lp"))
	r.handlePatchConnect(oscMsg("/patch/connect", "osc1", "filt1"))
	r.handlePatchCommit()

	names := sv.ActiveHost().ModuleNames()
	assert.Contains(t, names, "osc1")
	assert.Contains(t, names, "filt1")
}

func TestRouterPatchAbortDiscardsPendingEdits(t *testing.T) {
	r, sv := newTestRouter(t)

	r.handlePatchCreate(oscMsg("/patch/create", "osc1", "sine"))
	r.handlePatchCommit()

	r.handlePatchCreate(oscMsg("/patch/create", "filt1", "biquad_lp"))
	r.handlePatchAbort()

	pending := r.stage.snapshot()
	assert.Len(t, pending.Modules, 1)
	assert.Equal(t, "osc1", pending.Modules[0].ID)
	_ = sv
}

func TestRouterModAfterCommitProducesAudibleSignal(t *testing.T) {
	r, sv := newTestRouter(t)

	r.handlePatchCreate(oscMsg("/patch/create", "osc1", "sine"))
	r.handlePatchCommit()

	r.handleMod("/mod/osc1/freq", oscMsg("/mod/osc1/freq", float32(300)))
	r.handleMod("/mod/osc1/gain", oscMsg("/mod/osc1/gain", float32(0.8)))

	out := make([]float32, 64)
	require.Eventually(t, func() bool {
		sv.AudioCallback(out)
		for _, v := range out {
			if v != 0 {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestRouteUnrecognizedAddressDoesNotPanic(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.NotPanics(t, func() {
		r.route(oscMsg("/unknown/address"))
	})
}
