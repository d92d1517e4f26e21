package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testSampleRate = 48000.0
const testBufferSize = 256

func tickAll(m Module) { m.Tick() }

func TestOscillatorFreqClamped(t *testing.T) {
	osc := newOscillator(testSampleRate)
	osc.freq.Immediate = true
	osc.freq.Set(999999) // far outside [20,5000]
	tickAll(osc)
	assert.Equal(t, float32(5000), osc.freq.Value())

	out := make([]float32, testBufferSize)
	osc.Process(nil, out)
	for _, v := range out {
		require.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		assert.LessOrEqual(t, v, float32(1.0))
		assert.GreaterOrEqual(t, v, float32(-1.0))
	}
}

func TestEnvelopeRetriggerResetsToZero(t *testing.T) {
	env := newEnvelope(testSampleRate)
	env.attack.Set(10)
	env.decay.Set(50)
	env.sustain.Set(0.7)
	env.release.Set(200)
	tickAll(env)

	in := make([]float32, testBufferSize)
	for i := range in {
		in[i] = 1
	}
	out := make([]float32, testBufferSize)

	env.Gate(true)
	for i := 0; i < 50; i++ {
		env.Process(in, out)
	}
	assert.Greater(t, out[len(out)-1], float32(0))

	// Retrigger mid-envelope: the very next sample must be 0 * input = 0,
	// regardless of the prior level.
	env.Gate(true) // already on; force a synthetic retrigger via gate cycle
	env.Gate(false)
	env.Gate(true)
	env.Process(in[:1], out[:1])
	assert.Equal(t, float32(0), out[0])
}

func TestDistortionNoNaNAcrossDriveSweep(t *testing.T) {
	for drive := float32(0); drive <= 1.0; drive += 0.01 {
		d := newDistortion(testSampleRate)
		d.drive.Set(drive)
		d.drive.Immediate = true
		d.drive.Tick()
		tickAll(d)

		in := make([]float32, testBufferSize)
		for i := range in {
			in[i] = 0.95 * float32(math.Sin(2*math.Pi*45*float64(i)/testSampleRate))
		}
		out := make([]float32, testBufferSize)
		d.Process(in, out)
		for _, v := range out {
			require.Falsef(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0), "drive=%v produced non-finite output", drive)
		}
	}
}

func TestDelayFeedbackBounded(t *testing.T) {
	d := newDelay(testSampleRate)
	d.feedback.Set(10) // clamps to the hard-capped 0.7
	d.feedback.Immediate = true
	d.feedback.Tick()
	assert.LessOrEqual(t, d.feedback.Value(), float32(delayFeedbackCap))

	in := make([]float32, testBufferSize)
	in[0] = 1
	out := make([]float32, testBufferSize)
	for i := 0; i < 2000; i++ {
		d.Process(in, out)
		in[0] = 0
		for _, v := range out {
			require.Less(t, math.Abs(float64(v)), 10.0)
		}
	}
}

func TestBiquadNoBlowupUnderRapidParamChanges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := newBiquadLP(testSampleRate)
		in := make([]float32, testBufferSize)
		out := make([]float32, testBufferSize)
		for i := range in {
			in[i] = float32(math.Sin(2 * math.Pi * 220 * float64(i) / testSampleRate))
		}
		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for s := 0; s < steps; s++ {
			cutoff := rapid.Float32Range(50, 8000).Draw(t, "cutoff")
			q := rapid.Float32Range(0.5, 10).Draw(t, "q")
			b.cutoff.Set(cutoff)
			b.q.Set(q)
			b.cutoff.Immediate = true
			b.q.Immediate = true
			b.Tick()
			b.Process(in, out)
			for _, v := range out {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
					t.Fatalf("biquad produced non-finite output at cutoff=%v q=%v", cutoff, q)
				}
			}
		}
	})
}
