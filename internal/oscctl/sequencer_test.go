package oscctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatternVelocities(t *testing.T) {
	vel, err := parsePattern("X.x.")
	require.NoError(t, err)
	assert.Equal(t, []float32{1.0, 0, 0.6, 0}, vel)
}

func TestParsePatternRejectsUnknownSymbol(t *testing.T) {
	_, err := parsePattern("X.y.")
	assert.Error(t, err)
}

func TestParsePatternRejectsEmpty(t *testing.T) {
	_, err := parsePattern("")
	assert.Error(t, err)
}

func TestSequencerBPMRange(t *testing.T) {
	s := newSequencer(nil)
	assert.NoError(t, s.SetBPM(120))
	assert.Error(t, s.SetBPM(29))
	assert.Error(t, s.SetBPM(301))
}

func TestSequencerSwingRange(t *testing.T) {
	s := newSequencer(nil)
	assert.NoError(t, s.SetSwing(0.3))
	assert.Error(t, s.SetSwing(-0.1))
	assert.Error(t, s.SetSwing(0.61))
}

func TestSequencerTrackLifecycle(t *testing.T) {
	s := newSequencer(nil)
	require.NoError(t, s.AddTrack("kick", "voice1", "X...X...X...X...", 60, 200, nil))
	require.Contains(t, s.order, "kick")

	require.NoError(t, s.UpdatePattern("kick", "X.X.X.X."))
	assert.Error(t, s.UpdatePattern("missing", "X.X."))

	s.RemoveTrack("kick")
	assert.NotContains(t, s.order, "kick")

	require.NoError(t, s.AddTrack("hat", "voice2", "xxxx", 0, 0, nil))
	s.Clear()
	assert.Empty(t, s.order)
	assert.Empty(t, s.tracks)
}

func TestSequencerUpdateNotesRequiresExistingTrack(t *testing.T) {
	s := newSequencer(nil)
	require.NoError(t, s.AddTrack("kick", "voice1", "X...", 60, 0, nil))
	require.NoError(t, s.UpdateNotes("kick", []float32{220, 440}))
	assert.Error(t, s.UpdateNotes("nope", []float32{220}))
}
