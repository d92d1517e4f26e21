package dsp

// Voice bundles oscillator -> ADSR -> biquad lowpass into a single
// polyphony unit, re-exporting the chain's parameters under the
// freq/amp/filter/adsr naming spec.md §4.2 describes, plus two bus
// send levels (send/reverb, send/delay). The sends are plain smoothed
// params that carry no DSP; the patch host does not read them, so
// they do not mix this voice into any reverb or delay bus.
type Voice struct {
	baseModule
	osc    *Oscillator
	env    *Envelope
	filter *BiquadLP

	sendReverb *Param
	sendDelay  *Param

	scratch1, scratch2 []float32
}

func newVoice(sampleRate float64) *Voice {
	osc := newOscillator(sampleRate)
	env := newEnvelope(sampleRate)
	filter := newBiquadLP(sampleRate)
	sendReverb := NewParam("send/reverb", 0, 1, 0, float32(0.020*sampleRate))
	sendDelay := NewParam("send/delay", 0, 1, 0, float32(0.020*sampleRate))

	v := &Voice{
		osc: osc, env: env, filter: filter,
		sendReverb: sendReverb, sendDelay: sendDelay,
	}
	v.baseModule = newBase(
		osc.freq, osc.gain,
		filter.cutoff, filter.q,
		env.attack, env.decay, env.sustain, env.release,
		sendReverb, sendDelay,
	)
	return v
}

func (v *Voice) Type() Type { return TypeVoice }

// Param resolves the voice's public names (freq, amp, filter/cutoff,
// filter/q, adsr/attack, ...) onto the wrapped modules' own params.
func (v *Voice) Param(name string) (*Param, bool) {
	switch name {
	case "freq":
		return v.osc.freq, true
	case "amp":
		return v.osc.gain, true
	case "filter/freq", "filter/cutoff":
		return v.filter.cutoff, true
	case "filter/q":
		return v.filter.q, true
	case "adsr/attack":
		return v.env.attack, true
	case "adsr/decay":
		return v.env.decay, true
	case "adsr/sustain":
		return v.env.sustain, true
	case "adsr/release":
		return v.env.release, true
	case "send/reverb":
		return v.sendReverb, true
	case "send/delay":
		return v.sendDelay, true
	default:
		return nil, false
	}
}

func (v *Voice) Gate(on bool) { v.env.Gate(on) }

// SendLevels returns the current smoothed reverb/delay bus send
// levels. Nothing in the patch host calls it.
func (v *Voice) SendLevels() (reverb, delay float32) {
	return v.sendReverb.Value(), v.sendDelay.Value()
}

func (v *Voice) Process(in, out []float32) {
	n := len(out)
	if cap(v.scratch1) < n {
		v.scratch1 = make([]float32, n)
		v.scratch2 = make([]float32, n)
	}
	oscOut := v.scratch1[:n]
	envOut := v.scratch2[:n]

	v.osc.Process(nil, oscOut)
	v.env.Process(oscOut, envOut)
	v.filter.Process(envOut, out)
}
