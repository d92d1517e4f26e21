package patch

import (
	"testing"

	"github.com/norsninja/chronus/internal/dsp"
	"github.com/norsninja/chronus/internal/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleSineSpec() GraphSpec {
	return GraphSpec{
		Modules:     []ModuleSpec{{ID: "osc1", Type: dsp.TypeSine}},
		ChainOutput: "osc1",
		Prime: []PrimeOp{
			{ModuleID: "osc1", Param: "freq", Value: 440},
			{ModuleID: "osc1", Param: "gain", Value: 0.5},
		},
	}
}

func TestHostResetAndTickProducesExactBufferSize(t *testing.T) {
	h := NewHost(48000, 256)
	require.NoError(t, h.Reset(simpleSineSpec()))

	out := make([]float32, 256)
	h.Tick(out)
	assert.Len(t, out, 256)

	var sumSq float64
	for _, v := range out {
		sumSq += float64(v) * float64(v)
	}
	assert.Greater(t, sumSq, 0.0)
}

func TestHostRejectsCycle(t *testing.T) {
	h := NewHost(48000, 256)
	spec := GraphSpec{
		Modules: []ModuleSpec{
			{ID: "a", Type: dsp.TypeBiquadLP},
			{ID: "b", Type: dsp.TypeBiquadLP},
		},
		Edges: []EdgeSpec{{Src: "a", Dst: "b"}, {Src: "b", Dst: "a"}},
	}
	assert.Error(t, h.Reset(spec))
}

func TestHostSumsMultipleDrivers(t *testing.T) {
	h := NewHost(48000, 64)
	spec := GraphSpec{
		Modules: []ModuleSpec{
			{ID: "osc1", Type: dsp.TypeSine},
			{ID: "osc2", Type: dsp.TypeSine},
			{ID: "mix", Type: dsp.TypeBiquadLP},
		},
		Edges:       []EdgeSpec{{Src: "osc1", Dst: "mix"}, {Src: "osc2", Dst: "mix"}},
		ChainOutput: "mix",
		Prime: []PrimeOp{
			{ModuleID: "osc1", Param: "gain", Value: 1},
			{ModuleID: "osc2", Param: "gain", Value: 1},
			{ModuleID: "mix", Param: "cutoff", Value: 8000},
		},
	}
	require.NoError(t, h.Reset(spec))
	out := make([]float32, 64)
	h.Tick(out)
	// With both oscillators driving the same input and a wide-open
	// lowpass, the summed signal must reach the chain output.
	var sumAbs float64
	for _, v := range out {
		sumAbs += float64(abs(v))
	}
	assert.Greater(t, sumAbs, 0.0)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestHostApplyOutOfRangeParamKeepsOutputBounded(t *testing.T) {
	h := NewHost(48000, 128)
	require.NoError(t, h.Reset(simpleSineSpec()))

	modIdx, paramIdx, ok := h.ResolveParam("osc1", "freq")
	require.True(t, ok)

	require.NoError(t, h.Apply(ring.Command{Op: ring.OpParamSet, ModuleID: modIdx, ParamID: paramIdx, Value: 999999}))
	// clamped to [20,5000]; not observable directly here without a
	// module accessor, but applying must not error and must not panic.
	out := make([]float32, 128)
	h.Tick(out)
	for _, v := range out {
		assert.LessOrEqual(t, v, float32(1.0))
		assert.GreaterOrEqual(t, v, float32(-1.0))
	}
}

func TestHostWarmupReportsEnergyForSoundingGraph(t *testing.T) {
	h := NewHost(48000, 32)
	require.NoError(t, h.Reset(simpleSineSpec()))
	sawEnergy := h.Warmup(8)
	assert.True(t, sawEnergy)
}
