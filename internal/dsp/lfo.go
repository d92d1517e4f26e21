package dsp

import "math"

// LFOShape selects the LFO's waveform.
type LFOShape uint8

const (
	LFOSine LFOShape = iota
	LFOTriangle
	LFOSaw
	LFOSquare
	LFOSampleHold
)

func ParseLFOShape(s string) (LFOShape, bool) {
	switch s {
	case "sine":
		return LFOSine, true
	case "tri":
		return LFOTriangle, true
	case "saw":
		return LFOSaw, true
	case "square":
		return LFOSquare, true
	case "s&h", "sh":
		return LFOSampleHold, true
	default:
		return 0, false
	}
}

// LFO is a free-running low-frequency oscillator. Its output is a
// control signal in [-depth,depth] (sample-and-hold draws from a
// small xorshift generator with a fixed seed so it stays
// deterministic and allocation-free). The signal goes to the LFO's
// output buffer like any module's; the patch host has no modulation
// routing, so it reaches another module only as a summed input edge.
type LFO struct {
	baseModule
	sampleRate float64
	phase      float64
	shape      LFOShape

	rate  *Param
	depth *Param

	held   float32
	lcg    uint32
}

func newLFO(sampleRate float64) *LFO {
	rate := NewParam("rate", 0.01, 20, 1, float32(0.050*sampleRate))
	depth := NewParam("depth", 0, 1, 1, float32(0.050*sampleRate))
	return &LFO{
		baseModule: newBase(rate, depth),
		sampleRate: sampleRate,
		shape:      LFOSine,
		rate:       rate,
		depth:      depth,
		lcg:        0x2545F491,
	}
}

func (l *LFO) Type() Type { return TypeLFO }

// SetShape is not part of the Module interface (shape isn't a smoothed
// float parameter). Neither the patch host nor the PRIME path calls
// it, so an LFO built from a graph spec keeps the sine shape.
func (l *LFO) SetShape(s LFOShape) { l.shape = s }

func (l *LFO) nextLCG() uint32 {
	l.lcg ^= l.lcg << 13
	l.lcg ^= l.lcg >> 17
	l.lcg ^= l.lcg << 5
	return l.lcg
}

// Process ignores in: an LFO is a source node.
func (l *LFO) Process(in, out []float32) {
	n := len(out)
	for i := 0; i < n; i++ {
		rateHz := float64(l.rate.At(i, n))
		depth := l.depth.At(i, n)

		var raw float32
		frac := l.phase / twoPi
		switch l.shape {
		case LFOSine:
			raw = float32(math.Sin(l.phase))
		case LFOTriangle:
			raw = float32(4*math.Abs(frac-0.5) - 1)
		case LFOSaw:
			raw = float32(2*frac - 1)
		case LFOSquare:
			if frac < 0.5 {
				raw = 1
			} else {
				raw = -1
			}
		case LFOSampleHold:
			if l.phase < twoPi*rateHz/l.sampleRate {
				l.held = float32(l.nextLCG())/float32(math.MaxUint32)*2 - 1
			}
			raw = l.held
		}
		out[i] = raw * depth

		l.phase += twoPi * rateHz / l.sampleRate
		if l.phase >= twoPi {
			l.phase -= twoPi
		}
	}
}
