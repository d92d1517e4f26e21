package wavfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNameUsesUTCTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "recording_20260305-143000.wav", DefaultName(ts))
}

func TestWriterRoundTripsSampleCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	w, err := Create(path, 48000)
	require.NoError(t, err)

	frame := make([]float32, 256)
	for i := range frame {
		frame[i] = 0.25
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, w.WriteFrame(frame))
	}
	assert.EqualValues(t, 2560, w.Samples())
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(2560*2)) // PCM16 payload plus header
}
