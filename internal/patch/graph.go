package patch

import (
	"fmt"

	"github.com/norsninja/chronus/internal/dsp"
)

// ModuleSpec names one module to instantiate in a commit's graph.
type ModuleSpec struct {
	ID   string
	Type dsp.Type
}

// EdgeSpec is a directed connection from Src's output into Dst's
// (summed) input.
type EdgeSpec struct {
	Src, Dst string
}

// PrimeOp is one (module, parameter, value) tuple applied immediately
// (bypassing smoothing) when a pending graph is primed, optionally
// alongside a gate write.
type PrimeOp struct {
	ModuleID string
	Param    string
	Value    float32
	HasGate  bool
	Gate     bool
}

// GraphSpec is the full description of a pending patch, built by the
// OSC control plane from a sequence of /patch/create, /patch/connect,
// and /patch/remove messages and handed to a standby Host in one shot
// when /patch/commit fires.
type GraphSpec struct {
	Modules     []ModuleSpec
	Edges       []EdgeSpec
	ChainOutput string
	Prime       []PrimeOp
	WarmupFrames int
}

// topoSort returns modules in dependency order (sources before the
// sinks they feed) or an error if the edge set contains a cycle. An
// input with no source edge is left out of the adjacency map entirely
// and is treated as zero-driven by the host.
func topoSort(modules []ModuleSpec, edges []EdgeSpec) ([]string, error) {
	inDegree := make(map[string]int, len(modules))
	adj := make(map[string][]string, len(modules))
	known := make(map[string]bool, len(modules))
	for _, m := range modules {
		inDegree[m.ID] = 0
		known[m.ID] = true
	}
	for _, e := range edges {
		if !known[e.Src] {
			return nil, fmt.Errorf("patch: edge references unknown source module %q", e.Src)
		}
		if !known[e.Dst] {
			return nil, fmt.Errorf("patch: edge references unknown destination module %q", e.Dst)
		}
		adj[e.Src] = append(adj[e.Src], e.Dst)
		inDegree[e.Dst]++
	}

	var queue []string
	for _, m := range modules {
		if inDegree[m.ID] == 0 {
			queue = append(queue, m.ID)
		}
	}

	order := make([]string, 0, len(modules))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, dst := range adj[id] {
			inDegree[dst]--
			if inDegree[dst] == 0 {
				queue = append(queue, dst)
			}
		}
	}

	if len(order) != len(modules) {
		return nil, fmt.Errorf("patch: graph contains a cycle")
	}
	return order, nil
}

// validateSingleDriver rejects the same (src,dst) pair being declared
// twice, which would silently double a signal's level. A destination
// fed by several distinct sources is accepted; the host sums them.
func validateSingleDriver(edges []EdgeSpec) error {
	seen := make(map[EdgeSpec]bool, len(edges))
	for _, e := range edges {
		if seen[e] {
			return fmt.Errorf("patch: duplicate edge %s -> %s", e.Src, e.Dst)
		}
		seen[e] = true
	}
	return nil
}
