// Package wavfile writes 16-bit PCM mono WAV recordings of the audio
// the device actually received, using github.com/go-audio/wav and
// github.com/go-audio/audio.
package wavfile

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/lestrrat-go/strftime"
)

const bitDepth = 16

var defaultNamePattern = strftime.MustNew("recording_%Y%m%d-%H%M%S.wav")

// DefaultName returns the fallback recording filename for /record/start
// with no name argument, per the UTC timestamp convention.
func DefaultName(now time.Time) string {
	return defaultNamePattern.FormatString(now.UTC())
}

// Writer encodes float32 frames to a 16-bit PCM mono WAV file. It is
// driven entirely from the recorder's own writer goroutine, never from
// the audio callback.
type Writer struct {
	f       *os.File
	enc     *wav.Encoder
	samples int64
}

// Create opens path and prepares a mono WAV encoder at sampleRate.
func Create(path string, sampleRate int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wavfile: create %s: %w", path, err)
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	return &Writer{f: f, enc: enc}, nil
}

// WriteFrame appends one buffer's worth of samples, converting from
// the engine's float32 [-1,1] domain to signed 16-bit PCM.
func (w *Writer) WriteFrame(frame []float32) error {
	ints := make([]int, len(frame))
	for i, v := range frame {
		ints[i] = int(clamp16(v))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: w.enc.SampleRate},
		Data:           ints,
		SourceBitDepth: bitDepth,
	}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("wavfile: write frame: %w", err)
	}
	w.samples += int64(len(frame))
	return nil
}

// Samples returns the total number of samples written so far.
func (w *Writer) Samples() int64 { return w.samples }

// Close finalizes the WAV header and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("wavfile: finalize: %w", err)
	}
	return w.f.Close()
}

func clamp16(v float32) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
