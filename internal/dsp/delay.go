package dsp

// Delay is a circular delay line of at least 600ms. feedback is hard
// capped at 0.7 (independent of the param's declared max) so it can
// never runaway even if a caller somehow bypassed clamping.
type Delay struct {
	baseModule
	sampleRate float64

	time     *Param
	feedback *Param
	mix      *Param

	buf []float32
	idx int
}

const maxDelaySeconds = 0.6
const delayFeedbackCap = 0.7

func newDelay(sampleRate float64) *Delay {
	timeP := NewParam("time", 0.1, maxDelaySeconds, 0.3, float32(0.020*sampleRate))
	feedback := NewParam("feedback", 0, delayFeedbackCap, 0.35, float32(0.020*sampleRate))
	mix := NewParam("mix", 0, 1, 0.3, float32(0.020*sampleRate))
	return &Delay{
		baseModule: newBase(timeP, feedback, mix),
		sampleRate: sampleRate,
		time:       timeP, feedback: feedback, mix: mix,
		buf: make([]float32, int(maxDelaySeconds*sampleRate)+1),
	}
}

func (d *Delay) Type() Type { return TypeDelay }

func (d *Delay) Process(in, out []float32) {
	delaySamples := int(d.time.Value() * float32(d.sampleRate))
	if delaySamples < 1 {
		delaySamples = 1
	}
	if delaySamples >= len(d.buf) {
		delaySamples = len(d.buf) - 1
	}
	feedback := d.feedback.Value()
	if feedback > delayFeedbackCap {
		feedback = delayFeedbackCap
	}
	mix := d.mix.Value()

	n := len(d.buf)
	for i, x := range in {
		readIdx := d.idx - delaySamples
		if readIdx < 0 {
			readIdx += n
		}
		delayed := d.buf[readIdx]
		d.buf[d.idx] = x + delayed*feedback
		d.idx++
		if d.idx >= n {
			d.idx = 0
		}
		out[i] = x*(1-mix) + delayed*mix
	}
}
