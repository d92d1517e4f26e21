package oscctl

import (
	"fmt"
	"sync"

	"github.com/norsninja/chronus/internal/dsp"
	"github.com/norsninja/chronus/internal/patch"
)

// patchStage accumulates the sequence of /patch/create, /patch/connect,
// and /patch/remove messages into a pending graph, the way spec.md
// §4.5's commit handler expects to receive it in one shot. After a
// successful commit the stage is reseeded from the committed spec so
// that a later edit only needs to name what changes, not the whole
// graph (spec.md §3 "destroyed on the next commit that omits it" is an
// explicit removal, not an implicit one).
type patchStage struct {
	mu        sync.Mutex
	pending   patch.GraphSpec
	committed patch.GraphSpec
}

func newPatchStage() *patchStage {
	return &patchStage{}
}

// create stages a new module. Re-creating an existing id replaces its
// type in place, preserving edges that still reference it.
func (s *patchStage) create(id, typeName string) error {
	t, err := dsp.ParseType(typeName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.pending.Modules {
		if m.ID == id {
			s.pending.Modules[i].Type = t
			return nil
		}
	}
	s.pending.Modules = append(s.pending.Modules, patch.ModuleSpec{ID: id, Type: t})
	if s.pending.ChainOutput == "" {
		s.pending.ChainOutput = id
	}
	return nil
}

// connect stages a directed edge and, per spec.md's worked scenario 4,
// advances the pending chain output to the edge's destination: the
// newest thing fed by another module becomes the new end of the chain
// until a later edit says otherwise.
func (s *patchStage) connect(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasModule(src) {
		return fmt.Errorf("oscctl: /patch/connect: unknown source module %q", src)
	}
	if !s.hasModule(dst) {
		return fmt.Errorf("oscctl: /patch/connect: unknown destination module %q", dst)
	}
	s.pending.Edges = append(s.pending.Edges, patch.EdgeSpec{Src: src, Dst: dst})
	s.pending.ChainOutput = dst
	return nil
}

// remove stages a module's removal, dropping every edge that touches
// it and clearing the chain output if it pointed there.
func (s *patchStage) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasModule(id) {
		return fmt.Errorf("oscctl: /patch/remove: unknown module %q", id)
	}

	modules := s.pending.Modules[:0]
	for _, m := range s.pending.Modules {
		if m.ID != id {
			modules = append(modules, m)
		}
	}
	s.pending.Modules = modules

	edges := s.pending.Edges[:0]
	for _, e := range s.pending.Edges {
		if e.Src != id && e.Dst != id {
			edges = append(edges, e)
		}
	}
	s.pending.Edges = edges

	if s.pending.ChainOutput == id {
		s.pending.ChainOutput = ""
	}
	return nil
}

func (s *patchStage) hasModule(id string) bool {
	for _, m := range s.pending.Modules {
		if m.ID == id {
			return true
		}
	}
	return false
}

// snapshot returns a deep copy of the pending graph, safe for the
// caller to hand to supervisor.Commit without holding the stage lock
// across the commit's blocking wait.
func (s *patchStage) snapshot() patch.GraphSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyGraphSpec(s.pending)
}

// markCommitted records spec as the newly active graph and reseeds the
// pending stage from it.
func (s *patchStage) markCommitted(spec patch.GraphSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = copyGraphSpec(spec)
	s.pending = copyGraphSpec(spec)
}

// abort discards in-progress edits, reverting the stage to the last
// committed graph.
func (s *patchStage) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = copyGraphSpec(s.committed)
}

func copyGraphSpec(spec patch.GraphSpec) patch.GraphSpec {
	out := spec
	out.Modules = append([]patch.ModuleSpec(nil), spec.Modules...)
	out.Edges = append([]patch.EdgeSpec(nil), spec.Edges...)
	out.Prime = append([]patch.PrimeOp(nil), spec.Prime...)
	return out
}
