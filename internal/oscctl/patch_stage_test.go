package oscctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchStageCreateSetsInitialChainOutput(t *testing.T) {
	s := newPatchStage()
	require.NoError(t, s.create("osc1", "sine"))
	spec := s.snapshot()
	assert.Equal(t, "osc1", spec.ChainOutput)
	require.Len(t, spec.Modules, 1)
}

func TestPatchStageConnectAdvancesChainOutput(t *testing.T) {
	s := newPatchStage()
	require.NoError(t, s.create("osc1", "sine"))
	require.NoError(t, s.create("filt1", "biquad_lp"))
	require.NoError(t, s.connect("osc1", "filt1"))

	spec := s.snapshot()
	assert.Equal(t, "filt1", spec.ChainOutput)
	require.Len(t, spec.Edges, 1)
}

func TestPatchStageRemoveDropsEdgesAndChainOutput(t *testing.T) {
	s := newPatchStage()
	require.NoError(t, s.create("osc1", "sine"))
	require.NoError(t, s.create("filt1", "biquad_lp"))
	require.NoError(t, s.connect("osc1", "filt1"))
	require.NoError(t, s.remove("filt1"))

	spec := s.snapshot()
	assert.Empty(t, spec.Edges)
	assert.Empty(t, spec.ChainOutput)
	assert.Len(t, spec.Modules, 1)
}

func TestPatchStageMarkCommittedReseedsPending(t *testing.T) {
	s := newPatchStage()
	require.NoError(t, s.create("osc1", "sine"))
	committed := s.snapshot()
	s.markCommitted(committed)

	require.NoError(t, s.create("filt1", "biquad_lp"))
	require.NoError(t, s.connect("osc1", "filt1"))

	pending := s.snapshot()
	require.Len(t, pending.Modules, 2)

	s.abort()
	reverted := s.snapshot()
	assert.Len(t, reverted.Modules, 1)
}

func TestPatchStageConnectRejectsUnknownModule(t *testing.T) {
	s := newPatchStage()
	require.NoError(t, s.create("osc1", "sine"))
	assert.Error(t, s.connect("osc1", "nope"))
}
