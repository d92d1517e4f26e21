package supervisor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderPushIsNoopWhenInactive(t *testing.T) {
	r := newRecorder(48000, 64)
	r.push(make([]float32, 64))
	assert.Equal(t, uint64(0), r.DroppedFrames())
}

func TestRecorderWritesPushedFrames(t *testing.T) {
	r := newRecorder(48000, 4)
	name := t.TempDir() + "/rec.wav"
	require.NoError(t, r.start(name))
	t.Cleanup(func() { os.Remove(name) })

	for i := 0; i < 8; i++ {
		r.push([]float32{0.1, 0.2, 0.3, 0.4})
	}
	r.stop()

	assert.Equal(t, uint64(0), r.DroppedFrames())
	assert.Equal(t, uint64(0), r.WriteErrors())

	info, err := os.Stat(name)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRecorderDropsFramesWhenPoolExhausted(t *testing.T) {
	r := newRecorder(48000, 4)
	name := t.TempDir() + "/rec.wav"
	require.NoError(t, r.start(name))
	t.Cleanup(func() { os.Remove(name) })

	// Drain the free pool directly, simulating a writer goroutine that
	// has fallen behind, so the next push has nothing to borrow.
	for i := 0; i < recorderQueueDepth; i++ {
		<-r.free
	}
	r.push([]float32{1, 2, 3, 4})
	assert.Equal(t, uint64(1), r.DroppedFrames())

	for i := 0; i < recorderQueueDepth; i++ {
		r.free <- make([]float32, 4)
	}
	r.stop()
}

func TestRecorderStartRejectsDoubleStart(t *testing.T) {
	r := newRecorder(48000, 4)
	name := t.TempDir() + "/rec.wav"
	require.NoError(t, r.start(name))
	t.Cleanup(func() {
		r.stop()
		os.Remove(name)
	})
	assert.Error(t, r.start(name))
}

func TestRecorderStatusReflectsActiveFilename(t *testing.T) {
	r := newRecorder(48000, 4)
	active, filename := r.status()
	assert.False(t, active)
	assert.Empty(t, filename)

	name := t.TempDir() + "/rec.wav"
	require.NoError(t, r.start(name))
	t.Cleanup(func() { os.Remove(name) })

	active, filename = r.status()
	assert.True(t, active)
	assert.Equal(t, name, filename)

	r.stop()
	active, _ = r.status()
	assert.False(t, active)
}
