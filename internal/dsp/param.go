package dsp

import "math"

// Param is a named float parameter with a declared range, a default,
// and a smoothing time expressed in samples. Smoothing is a one-pole
// step applied once per buffer boundary (never per sample); the
// buffer's start and end values are exposed separately so a module
// that needs a click-free ramp (the oscillator's phase increment) can
// linearly interpolate across the buffer instead of stepping.
type Param struct {
	Name          string
	Min, Max      float32
	Default       float32
	SmoothSamples float32 // 0 or Immediate=true means "apply target directly"
	Immediate     bool

	target  float32
	prev    float32 // smoothed value at the start of the previous buffer
	current float32 // smoothed value at the start of the current buffer
}

// NewParam constructs a parameter initialized to its default.
func NewParam(name string, min, max, def, smoothSamples float32) *Param {
	return &Param{
		Name: name, Min: min, Max: max, Default: def, SmoothSamples: smoothSamples,
		target: def, prev: def, current: def,
	}
}

// Set clamps v to [Min,Max] and stores it as the new target. Out-of-
// range writes are clamped per spec, never rejected.
func (p *Param) Set(v float32) {
	if v < p.Min {
		v = p.Min
	} else if v > p.Max {
		v = p.Max
	}
	p.target = v
	if p.Immediate {
		p.prev = v
		p.current = v
	}
}

// SetImmediate clamps v to [Min,Max] and applies it right away,
// bypassing smoothing entirely. Used by the patch-commit PRIME step,
// which must land a standby graph's initial parameters before warmup
// runs rather than have them ramp in over the warmup frames.
func (p *Param) SetImmediate(v float32) {
	if v < p.Min {
		v = p.Min
	} else if v > p.Max {
		v = p.Max
	}
	p.target = v
	p.prev = v
	p.current = v
}

// Tick advances smoothing by one buffer boundary. Must be called
// exactly once per processed buffer, before the module reads Value,
// Start, or End.
func (p *Param) Tick() {
	p.prev = p.current
	if p.Immediate || p.SmoothSamples <= 0 {
		p.current = p.target
		return
	}
	alpha := float32(1 - math.Exp(-1/float64(p.SmoothSamples)))
	p.current += (p.target - p.current) * alpha
}

// Value returns the smoothed value as of the start of the current
// buffer, for modules that only need one value per buffer (biquad
// coefficients, effect mix levels).
func (p *Param) Value() float32 { return p.current }

// At linearly interpolates between the previous buffer's smoothed
// value and the current buffer's smoothed value, for sample i of n in
// the current buffer. Used by modules whose per-sample recurrence
// would audibly click on a stepped parameter change (oscillator
// frequency).
func (p *Param) At(i, n int) float32 {
	if n <= 1 {
		return p.current
	}
	t := float32(i) / float32(n-1)
	return p.prev + (p.current-p.prev)*t
}
