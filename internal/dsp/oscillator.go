package dsp

import "math"

const twoPi = 2 * math.Pi

// Oscillator is a phase-accumulator sine source. Frequency changes
// are interpolated sample-by-sample across the buffer (rather than
// stepped at the buffer boundary) so a fast /mod/.../freq sweep never
// produces a mid-buffer discontinuity.
type Oscillator struct {
	baseModule
	sampleRate float64
	phase      float64

	freq *Param
	gain *Param
}

func newOscillator(sampleRate float64) *Oscillator {
	freq := NewParam("freq", 20, 5000, 440, float32(0.010*sampleRate))
	gain := NewParam("gain", 0, 1, 0.5, float32(0.010*sampleRate))
	return &Oscillator{
		baseModule: newBase(freq, gain),
		sampleRate: sampleRate,
		freq:       freq,
		gain:       gain,
	}
}

func (o *Oscillator) Type() Type { return TypeSine }

// Process ignores in: an oscillator is a source node.
func (o *Oscillator) Process(in, out []float32) {
	n := len(out)
	for i := 0; i < n; i++ {
		freqHz := float64(o.freq.At(i, n))
		gain := o.gain.At(i, n)
		out[i] = gain * float32(math.Sin(o.phase))
		o.phase += twoPi * freqHz / o.sampleRate
		if o.phase >= twoPi {
			o.phase -= twoPi
		} else if o.phase < 0 {
			o.phase += twoPi
		}
	}
}
