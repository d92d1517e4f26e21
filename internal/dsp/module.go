package dsp

import "fmt"

// Type is the closed set of module variants a patch graph may
// instantiate. Keeping this a small enum, rather than dispatching on
// a free-form type string, lets the host devirtualize module
// construction through a single factory switch instead of a registry
// of constructors.
type Type uint8

const (
	TypeSine Type = iota
	TypeADSR
	TypeBiquadLP
	TypeDistortion
	TypeReverb
	TypeDelay
	TypeVoice
	TypeLFO
)

func (t Type) String() string {
	switch t {
	case TypeSine:
		return "sine"
	case TypeADSR:
		return "adsr"
	case TypeBiquadLP:
		return "biquad_lp"
	case TypeDistortion:
		return "distortion"
	case TypeReverb:
		return "reverb"
	case TypeDelay:
		return "delay"
	case TypeVoice:
		return "voice"
	case TypeLFO:
		return "lfo"
	default:
		return "unknown"
	}
}

// ParseType maps the module-type token used in /patch/create to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "sine":
		return TypeSine, nil
	case "adsr":
		return TypeADSR, nil
	case "biquad_lp":
		return TypeBiquadLP, nil
	case "distortion":
		return TypeDistortion, nil
	case "reverb":
		return TypeReverb, nil
	case "delay":
		return TypeDelay, nil
	case "voice":
		return TypeVoice, nil
	case "lfo":
		return TypeLFO, nil
	default:
		return 0, fmt.Errorf("dsp: unknown module type %q", s)
	}
}

// Module is the contract every DSP graph node satisfies: fill output
// with exactly len(output) samples from exactly one (already summed)
// input buffer, with no allocation and no blocking. Gate is an
// immediate control input; modules that ignore it (oscillators,
// filters) no-op.
type Module interface {
	Type() Type
	Process(in, out []float32)
	Gate(on bool)
	Param(name string) (*Param, bool)
	Params() []*Param
	// Tick advances every owned Param's smoothing by one buffer
	// boundary. Called once per tick by the host before Process.
	Tick()
}

// New constructs a zero-valued module of the given type for the
// given sample rate. Modules are otherwise stateless until parameters
// are primed.
func New(t Type, sampleRate float64) (Module, error) {
	switch t {
	case TypeSine:
		return newOscillator(sampleRate), nil
	case TypeADSR:
		return newEnvelope(sampleRate), nil
	case TypeBiquadLP:
		return newBiquadLP(sampleRate), nil
	case TypeDistortion:
		return newDistortion(sampleRate), nil
	case TypeReverb:
		return newReverb(sampleRate), nil
	case TypeDelay:
		return newDelay(sampleRate), nil
	case TypeVoice:
		return newVoice(sampleRate), nil
	case TypeLFO:
		return newLFO(sampleRate), nil
	default:
		return nil, fmt.Errorf("dsp: unsupported module type %v", t)
	}
}

// baseModule centralizes the Param table bookkeeping (name lookup,
// ordered list, and the per-buffer Tick fan-out) that every concrete
// module embeds.
type baseModule struct {
	params []*Param
	byName map[string]*Param
}

func newBase(params ...*Param) baseModule {
	b := baseModule{params: params, byName: make(map[string]*Param, len(params))}
	for _, p := range params {
		b.byName[p.Name] = p
	}
	return b
}

func (b *baseModule) Param(name string) (*Param, bool) {
	p, ok := b.byName[name]
	return p, ok
}

func (b *baseModule) Params() []*Param { return b.params }

func (b *baseModule) Tick() {
	for _, p := range b.params {
		p.Tick()
	}
}

// Gate is a no-op default; modules with a gate input override it.
func (b *baseModule) Gate(bool) {}
