package dsp

// Freeverb-style comb + allpass bank. Tuning lengths are the classic
// Freeverb values (in samples at 44.1kHz), scaled to the engine's
// actual sample rate so the reverb's character doesn't change with
// buffer_size/sample_rate configuration.
var combTuningsMs = []float64{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
var allpassTuningsMs = []float64{556, 441, 341, 225}

const freeverbReferenceRate = 44100.0

type combFilter struct {
	buf      []float32
	idx      int
	feedback float32
	damp1    float32
	damp2    float32
	store    float32
}

func newCombFilter(lengthSamples int) *combFilter {
	return &combFilter{buf: make([]float32, lengthSamples)}
}

func (c *combFilter) step(x float32) float32 {
	out := c.buf[c.idx]
	c.store = out*c.damp2 + c.store*c.damp1
	c.buf[c.idx] = x + c.store*c.feedback
	c.idx++
	if c.idx >= len(c.buf) {
		c.idx = 0
	}
	return out
}

type allpassFilter struct {
	buf []float32
	idx int
}

func newAllpassFilter(lengthSamples int) *allpassFilter {
	return &allpassFilter{buf: make([]float32, lengthSamples)}
}

func (a *allpassFilter) step(x float32) float32 {
	const feedback = 0.5
	bufout := a.buf[a.idx]
	out := -x + bufout
	a.buf[a.idx] = x + bufout*feedback
	a.idx++
	if a.idx >= len(a.buf) {
		a.idx = 0
	}
	return out
}

// Reverb is an algorithmic Freeverb-style comb+allpass reverb.
type Reverb struct {
	baseModule
	mix  *Param
	room *Param
	damp *Param

	combs    []*combFilter
	allpasss []*allpassFilter
}

func newReverb(sampleRate float64) *Reverb {
	mix := NewParam("mix", 0, 1, 0.3, float32(0.020*sampleRate))
	room := NewParam("room", 0, 1, 0.5, float32(0.020*sampleRate))
	damp := NewParam("damp", 0, 1, 0.5, float32(0.020*sampleRate))

	scale := sampleRate / freeverbReferenceRate
	combs := make([]*combFilter, len(combTuningsMs))
	for i, ms := range combTuningsMs {
		combs[i] = newCombFilter(int(ms * scale))
	}
	allpasss := make([]*allpassFilter, len(allpassTuningsMs))
	for i, ms := range allpassTuningsMs {
		allpasss[i] = newAllpassFilter(int(ms * scale))
	}

	return &Reverb{
		baseModule: newBase(mix, room, damp),
		mix:        mix, room: room, damp: damp,
		combs: combs, allpasss: allpasss,
	}
}

func (r *Reverb) Type() Type { return TypeReverb }

func (r *Reverb) Process(in, out []float32) {
	room := r.room.Value()
	damp := r.damp.Value()
	mix := r.mix.Value()

	feedback := 0.7 + room*0.28     // classic Freeverb roomsize mapping
	damp1 := damp * 0.4             // damping coefficient
	damp2 := 1 - damp1

	for _, c := range r.combs {
		c.feedback = feedback
		c.damp1 = damp1
		c.damp2 = damp2
	}

	for i, x := range in {
		var wet float32
		for _, c := range r.combs {
			wet += c.step(x)
		}
		for _, a := range r.allpasss {
			wet = a.step(wet)
		}
		out[i] = x*(1-mix) + wet*mix*0.5
	}
}
