package dsp

import "math"

// denormalGuard is a DC offset added to a filter's state (once per
// buffer in BiquadLP, once per sample in the distortion's highpass
// stages) to keep it out of the denormal range, where flush-to-zero-less
// FPUs slow to a crawl processing near-zero float32s.
const denormalGuard = 1e-20

// BiquadLP is a transposed-direct-form-II lowpass biquad. Coefficients
// are recomputed once per buffer from the RBJ cookbook formulas using
// the buffer-start smoothed cutoff/q.
type BiquadLP struct {
	baseModule
	sampleRate float64

	cutoff *Param
	q      *Param

	z1, z2 float32
}

func newBiquadLP(sampleRate float64) *BiquadLP {
	cutoff := NewParam("cutoff", 50, 8000, 1000, float32(0.025*sampleRate))
	q := NewParam("q", 0.5, 10, 0.707, float32(0.025*sampleRate))
	return &BiquadLP{
		baseModule: newBase(cutoff, q),
		sampleRate: sampleRate,
		cutoff:     cutoff,
		q:          q,
	}
}

func (b *BiquadLP) Type() Type { return TypeBiquadLP }

func (b *BiquadLP) coefficients() (b0, b1, b2, a1, a2 float32) {
	cutoff := float64(b.cutoff.Value())
	q := float64(b.q.Value())
	omega := twoPi * cutoff / b.sampleRate
	sinO, cosO := math.Sin(omega), math.Cos(omega)
	alpha := sinO / (2 * q)

	a0 := 1 + alpha
	nb0 := (1 - cosO) / 2 / a0
	nb1 := (1 - cosO) / a0
	nb2 := nb0
	na1 := (-2 * cosO) / a0
	na2 := (1 - alpha) / a0

	return float32(nb0), float32(nb1), float32(nb2), float32(na1), float32(na2)
}

func (b *BiquadLP) Process(in, out []float32) {
	b0, b1, b2, a1, a2 := b.coefficients()
	z1, z2 := b.z1+denormalGuard, b.z2+denormalGuard

	for i, x := range in {
		y := b0*x + z1
		z1 = b1*x - a1*y + z2
		z2 = b2*x - a2*y
		out[i] = y
	}
	b.z1, b.z2 = z1, z2
}
