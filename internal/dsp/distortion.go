package dsp

import "math"

const waveshaperEpsilon = 1e-9

// hpStage is one second-order RBJ highpass section, used twice in
// series to build the distortion's fixed 20Hz fourth-order pre-filter
// that strips subsonic energy before the waveshaper.
type hpStage struct {
	b0, b1, b2, a1, a2 float32
	z1, z2             float32
}

func newHPStage(sampleRate, cutoff, q float64) *hpStage {
	omega := twoPi * cutoff / sampleRate
	sinO, cosO := math.Sin(omega), math.Cos(omega)
	alpha := sinO / (2 * q)
	a0 := 1 + alpha

	return &hpStage{
		b0: float32((1 + cosO) / 2 / a0),
		b1: float32(-(1 + cosO) / a0),
		b2: float32((1 + cosO) / 2 / a0),
		a1: float32((-2 * cosO) / a0),
		a2: float32((1 - alpha) / a0),
	}
}

func (s *hpStage) step(x float32) float32 {
	z1, z2 := s.z1+denormalGuard, s.z2+denormalGuard
	y := s.b0*x + z1
	z1 = s.b1*x - s.a1*y + z2
	z2 = s.b2*x - s.a2*y
	s.z1, s.z2 = z1, z2
	return y
}

// Distortion is a waveshaper with a subsonic-safe pre-filter and a
// tone-controlled dry/wet output stage.
type Distortion struct {
	baseModule
	sampleRate float64

	drive *Param
	mix   *Param
	tone  *Param

	hp1, hp2 *hpStage

	dcX, dcY float32 // one-pole DC blocker state
	toneZ    float32 // tone lowpass state
}

func newDistortion(sampleRate float64) *Distortion {
	drive := NewParam("drive", 0, 1, 0.3, float32(0.010*sampleRate))
	mix := NewParam("mix", 0, 1, 1.0, float32(0.010*sampleRate))
	tone := NewParam("tone", 0, 1, 0.5, float32(0.010*sampleRate))
	return &Distortion{
		baseModule: newBase(drive, mix, tone),
		sampleRate: sampleRate,
		drive:      drive,
		mix:        mix,
		tone:       tone,
		hp1:        newHPStage(sampleRate, 20, 0.707),
		hp2:        newHPStage(sampleRate, 20, 0.707),
	}
}

func (d *Distortion) Type() Type { return TypeDistortion }

func driveEffective(drive float32) float32 {
	const knee = 0.7
	if drive <= knee {
		return drive
	}
	return knee + 0.5*(drive-knee)
}

func (d *Distortion) Process(in, out []float32) {
	driveEff := driveEffective(d.drive.Value())
	k := 2 * driveEff / (1 - driveEff)
	mix := d.mix.Value()

	// Map tone [0,1] to a lowpass cutoff of 1-8kHz and derive a
	// one-pole coefficient for it once per buffer.
	toneHz := 1000 + d.tone.Value()*7000
	toneCoeff := float32(1 - math.Exp(-twoPi*float64(toneHz)/d.sampleRate))

	for i, x := range in {
		hp := d.hp1.step(d.hp2.step(x))

		denom := 1 + k*absf32(hp)
		if denom < waveshaperEpsilon {
			denom = waveshaperEpsilon
		}
		shaped := (1 + k) * hp / denom

		if shaped > 1 {
			shaped = 1
		} else if shaped < -1 {
			shaped = -1
		}

		// one-pole DC blocker: y = x - xPrev + R*yPrev
		const dcR = 0.995
		blocked := shaped - d.dcX + dcR*d.dcY
		d.dcX, d.dcY = shaped, blocked

		d.toneZ += toneCoeff * (blocked - d.toneZ)
		wet := d.toneZ

		out[i] = x*(1-mix) + wet*mix
	}
}

func absf32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
