// Package patch implements the module host: the owner of a slot's set
// of DSP modules, their connectivity, per-edge buffers, and the
// boundary-aligned application of parameter commands.
package patch

import (
	"errors"
	"fmt"

	"github.com/norsninja/chronus/internal/dsp"
	"github.com/norsninja/chronus/internal/ring"
)

// ErrUnknownModule is returned when a command or prime op addresses a
// module id the host's current graph doesn't have.
var ErrUnknownModule = errors.New("patch: unknown module")

// ErrUnknownParam is returned when a command or prime op addresses a
// parameter id a module doesn't have.
var ErrUnknownParam = errors.New("patch: unknown parameter")

type builtModule struct {
	id     string
	module dsp.Module
	out    []float32
	in     []float32
	peak   float32
}

// Host owns one slot's module graph. Only the worker goroutine that
// owns it mutates it, through the command records it drains; the
// supervisor's audio callback and the OSC router read peaks and
// name-to-index lookups from it directly.
type Host struct {
	sampleRate float64
	bufferSize int

	modules    []*builtModule
	nameToIdx  map[string]uint32
	inputsOf   [][]uint32 // per module index, list of source module indices
	chainIdx   int        // -1 if no chain output set
	scratch    []float32  // warmup scratch buffer; never touches the audio ring
	lastSpec   *GraphSpec // the spec most recently landed by Reset, for mirroring onto a respawned standby
}

// NewHost constructs an empty host for the given engine configuration.
func NewHost(sampleRate float64, bufferSize int) *Host {
	return &Host{
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		chainIdx:   -1,
		scratch:    make([]float32, bufferSize),
	}
}

// Reset discards the current graph and builds spec's graph from
// scratch: instantiating modules, wiring edges, and determining a
// topologically ordered execution list. Modules omitted from spec
// relative to the prior graph are simply not recreated — spec.md's
// "destroyed on the next commit that omits it" lifecycle falls out of
// rebuilding from nothing each time.
func (h *Host) Reset(spec GraphSpec) error {
	if err := validateSingleDriver(spec.Edges); err != nil {
		return err
	}
	order, err := topoSort(spec.Modules, spec.Edges)
	if err != nil {
		return err
	}

	byID := make(map[string]dsp.Type, len(spec.Modules))
	for _, m := range spec.Modules {
		byID[m.ID] = m.Type
	}

	modules := make([]*builtModule, 0, len(spec.Modules))
	nameToIdx := make(map[string]uint32, len(spec.Modules))
	for _, id := range order {
		mod, err := dsp.New(byID[id], h.sampleRate)
		if err != nil {
			return fmt.Errorf("patch: instantiate %q: %w", id, err)
		}
		nameToIdx[id] = uint32(len(modules))
		modules = append(modules, &builtModule{
			id:     id,
			module: mod,
			out:    make([]float32, h.bufferSize),
			in:     make([]float32, h.bufferSize),
		})
	}

	inputsOf := make([][]uint32, len(modules))
	for _, e := range spec.Edges {
		dst := nameToIdx[e.Dst]
		src := nameToIdx[e.Src]
		inputsOf[dst] = append(inputsOf[dst], src)
	}

	chainIdx := -1
	if spec.ChainOutput != "" {
		idx, ok := nameToIdx[spec.ChainOutput]
		if !ok {
			return fmt.Errorf("%w: chain output %q", ErrUnknownModule, spec.ChainOutput)
		}
		chainIdx = int(idx)
	}

	h.modules = modules
	h.nameToIdx = nameToIdx
	h.inputsOf = inputsOf
	h.chainIdx = chainIdx
	specCopy := spec
	h.lastSpec = &specCopy

	return h.ApplyPrime(spec.Prime)
}

// CurrentSpec returns the graph spec most recently landed by Reset,
// or nil if Reset has never been called. Used to mirror the active
// graph onto a freshly respawned standby after failover.
func (h *Host) CurrentSpec() *GraphSpec {
	return h.lastSpec
}

// ApplyPrime applies a batch of immediate parameter/gate writes,
// landing a standby graph's initial state before warmup runs.
func (h *Host) ApplyPrime(ops []PrimeOp) error {
	for _, op := range ops {
		idx, ok := h.nameToIdx[op.ModuleID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownModule, op.ModuleID)
		}
		bm := h.modules[idx]
		p, ok := bm.module.Param(op.Param)
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrUnknownParam, op.ModuleID, op.Param)
		}
		p.SetImmediate(op.Value)
		if op.HasGate {
			bm.module.Gate(op.Gate)
		}
	}
	return nil
}

// ResolveParam maps a module/parameter name pair to the stable
// (moduleIdx, paramIdx) indices the wire-format Command record
// carries, for the OSC control plane to build PARAM_SET/PRIME
// commands against the currently committed graph shape.
func (h *Host) ResolveParam(moduleID, paramName string) (moduleIdx, paramIdx uint32, ok bool) {
	idx, ok := h.nameToIdx[moduleID]
	if !ok {
		return 0, 0, false
	}
	mod := h.modules[idx].module
	target, ok := mod.Param(paramName)
	if !ok {
		return 0, 0, false
	}
	for i, p := range mod.Params() {
		if p == target {
			return idx, uint32(i), true
		}
	}
	return 0, 0, false
}

// ResolveModule maps a module name to its stable index, for /gate
// commands which address a module but no parameter.
func (h *Host) ResolveModule(moduleID string) (uint32, bool) {
	idx, ok := h.nameToIdx[moduleID]
	return idx, ok
}

// Apply mutates the graph's live parameter/gate state from one
// drained command record. Called once per ring record, in ring order,
// from the worker's tick loop only.
func (h *Host) Apply(cmd ring.Command) error {
	if int(cmd.ModuleID) >= len(h.modules) {
		return fmt.Errorf("%w: index %d", ErrUnknownModule, cmd.ModuleID)
	}
	bm := h.modules[cmd.ModuleID]

	switch cmd.Op {
	case ring.OpParamSet, ring.OpPrime:
		params := bm.module.Params()
		if int(cmd.ParamID) >= len(params) {
			return fmt.Errorf("%w: index %d on %s", ErrUnknownParam, cmd.ParamID, bm.id)
		}
		if cmd.Op == ring.OpPrime {
			params[cmd.ParamID].SetImmediate(cmd.Value)
		} else {
			params[cmd.ParamID].Set(cmd.Value)
		}
	case ring.OpGate:
		bm.module.Gate(cmd.Value != 0)
	default:
		return fmt.Errorf("patch: command op %s not valid against a live graph", cmd.Op)
	}
	return nil
}

// Tick advances every module's parameter smoothing by one buffer,
// processes the graph in topological order summing multi-driver
// inputs, and copies the chain output's result into out. Modules with
// no connected input process against a zeroed buffer.
func (h *Host) Tick(out []float32) {
	for i, bm := range h.modules {
		in := bm.in
		for j := range in {
			in[j] = 0
		}
		for _, srcIdx := range h.inputsOf[i] {
			srcOut := h.modules[srcIdx].out
			for j, v := range srcOut {
				in[j] += v
			}
		}
		bm.module.Tick()
		bm.module.Process(in, bm.out)

		var peak float32
		for _, v := range bm.out {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		bm.peak = peak
	}

	if h.chainIdx >= 0 {
		copy(out, h.modules[h.chainIdx].out)
	} else {
		for i := range out {
			out[i] = 0
		}
	}
}

// Warmup runs n silent ticks (writing into the host's own scratch
// buffer, never the audio ring) so envelopes, filters, and delay
// lines reach steady state before a commit makes this graph active.
// It reports whether any warmup frame reached non-negligible RMS, so
// the commit handler can treat a graph that stays silent throughout
// warmup (e.g. every voice ungated) as ready once k is reached rather
// than waiting on energy that will never arrive.
func (h *Host) Warmup(n int) (sawEnergy bool) {
	for i := 0; i < n; i++ {
		h.Tick(h.scratch)
		var sumSq float64
		for _, v := range h.scratch {
			sumSq += float64(v) * float64(v)
		}
		rms := sumSq / float64(len(h.scratch))
		if rms > 1e-6 {
			sawEnergy = true
		}
	}
	return sawEnergy
}

// VoicePeaks returns the peak magnitude observed in the most recent
// Tick for every module of type Voice, in graph order, capped at 4
// entries to match the /viz/levels wire format.
func (h *Host) VoicePeaks() [4]float32 {
	var peaks [4]float32
	n := 0
	for _, bm := range h.modules {
		if bm.module.Type() != dsp.TypeVoice {
			continue
		}
		if n >= len(peaks) {
			break
		}
		peaks[n] = bm.peak
		n++
	}
	return peaks
}

// MasterPeak returns the chain output's peak from the most recent Tick.
func (h *Host) MasterPeak() float32 {
	if h.chainIdx < 0 {
		return 0
	}
	return h.modules[h.chainIdx].peak
}

// ModuleNames returns the graph's module ids in execution order, for
// status reporting.
func (h *Host) ModuleNames() []string {
	names := make([]string, len(h.modules))
	for i, bm := range h.modules {
		names[i] = bm.id
	}
	return names
}
