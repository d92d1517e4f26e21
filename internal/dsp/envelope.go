package dsp

// sustainFloor is the minimum sustain level accepted: it is the
// sustain param's declared minimum, and Process raises any lower
// sustain to it. The reference material disagrees between 0.01 and
// 0.1; this repo uses the tighter 0.01 floor (see DESIGN.md).
const sustainFloor = 0.01

type envState uint8

const (
	envIdle envState = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// Envelope is a four-stage ADSR gain envelope applied to its input
// signal. Gate is an immediate control input: a rising edge always
// resets level to 0 before entering ATTACK, which is what eliminates
// the retrigger click regardless of the envelope's prior level.
type Envelope struct {
	baseModule
	sampleRate float64

	attack  *Param
	decay   *Param
	sustain *Param
	release *Param

	state   envState
	level   float32
	gateOn  bool
}

func newEnvelope(sampleRate float64) *Envelope {
	attack := NewParam("attack", 1, 5000, 10, 0)
	attack.Immediate = true
	decay := NewParam("decay", 1, 5000, 50, 0)
	decay.Immediate = true
	sustain := NewParam("sustain", sustainFloor, 1, 0.7, 0)
	sustain.Immediate = true
	release := NewParam("release", 1, 8000, 200, 0)
	release.Immediate = true
	return &Envelope{
		baseModule: newBase(attack, decay, sustain, release),
		sampleRate: sampleRate,
		attack:     attack,
		decay:      decay,
		sustain:    sustain,
		release:    release,
	}
}

func (e *Envelope) Type() Type { return TypeADSR }

func (e *Envelope) msToSamples(ms float32) float32 {
	s := float32(e.sampleRate) * ms / 1000
	if s < 1 {
		s = 1
	}
	return s
}

// Gate applies immediately: a rising edge resets level to 0 and
// starts ATTACK; a falling edge from any active state starts RELEASE.
func (e *Envelope) Gate(on bool) {
	if on && !e.gateOn {
		e.level = 0
		e.state = envAttack
	} else if !on && e.gateOn && e.state != envIdle {
		e.state = envRelease
	}
	e.gateOn = on
}

func (e *Envelope) Process(in, out []float32) {
	attackSamples := e.msToSamples(e.attack.Value())
	decaySamples := e.msToSamples(e.decay.Value())
	releaseSamples := e.msToSamples(e.release.Value())
	sustain := e.sustain.Value()
	if sustain < sustainFloor {
		sustain = sustainFloor
	}

	for i, x := range in {
		// Emit the level as it stands *before* this sample's ramp
		// step, so the first sample after a gate-triggered reset to
		// 0 is always exactly 0 regardless of the envelope's prior
		// level.
		out[i] = x * e.level

		switch e.state {
		case envAttack:
			e.level += 1 / attackSamples
			if e.level >= 1 {
				e.level = 1
				e.state = envDecay
			}
		case envDecay:
			e.level -= (1 - sustain) / decaySamples
			if e.level <= sustain {
				e.level = sustain
				e.state = envSustain
			}
		case envSustain:
			e.level = sustain
		case envRelease:
			e.level -= e.level / releaseSamples
			if e.level <= 0.0005 {
				e.level = 0
				e.state = envIdle
			}
		case envIdle:
			e.level = 0
		}
	}
}
