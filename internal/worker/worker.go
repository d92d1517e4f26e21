// Package worker implements the DSP worker: the tick loop that owns
// one patch.Host, drains its command ring, produces one audio frame
// per tick, and reports liveness to the supervisor.
//
// spec.md describes each slot as a separate OS process communicating
// over shared memory. This repo runs each slot as a goroutine over a
// real mmap'd arena (internal/shm) instead — see DESIGN.md and
// SPEC_FULL.md §D.1 for why. A worker "crash" is therefore a
// recovered panic that closes Done, which the supervisor's sentinel
// selects on exactly as it would a process-exit handle.
package worker

import (
	"sync/atomic"
	"time"

	"github.com/norsninja/chronus/internal/patch"
	"github.com/norsninja/chronus/internal/ring"
)

// MaxCmdsPerTick bounds how much command-ring draining one tick will
// do, so a burst of OSC traffic can never make a tick miss its
// deadline.
const MaxCmdsPerTick = 256

// Worker owns one slot's module host and the two rings connecting it
// to the supervisor.
type Worker struct {
	Name string

	host       *patch.Host
	audioRing  *ring.AudioRing
	cmdRing    *ring.CommandRing
	heartbeat  *atomic.Uint64
	bufferSize int
	tickPeriod time.Duration
	leadTarget int

	pendingGraph atomic.Pointer[patch.GraphSpec]
	primeReady   atomic.Bool
	overflow     atomic.Uint64
	ticks        atomic.Uint64

	done chan struct{}
}

// New constructs a worker. heartbeat must be a cell the supervisor's
// liveness monitor also has a pointer to (normally carved from the
// shared shm.Arena). leadTarget is how many frames Run produces
// immediately at startup, ahead of the deadline-paced steady loop, so
// the audio ring already holds a buffer before the real-time consumer
// starts draining it (supervisor.lead_target_frames).
func New(name string, host *patch.Host, audioRing *ring.AudioRing, cmdRing *ring.CommandRing, heartbeat *atomic.Uint64, sampleRate float64, bufferSize, leadTarget int) *Worker {
	return &Worker{
		Name:       name,
		host:       host,
		audioRing:  audioRing,
		cmdRing:    cmdRing,
		heartbeat:  heartbeat,
		bufferSize: bufferSize,
		tickPeriod: time.Duration(float64(bufferSize) / sampleRate * float64(time.Second)),
		leadTarget: leadTarget,
		done:       make(chan struct{}),
	}
}

// Done is closed when the worker's run loop exits, by normal shutdown
// or by a recovered panic. The supervisor's liveness monitor selects
// on it as its sentinel mechanism.
func (w *Worker) Done() <-chan struct{} { return w.done }

// StageGraph publishes a pending graph spec for the next
// PATCH_COMMIT_TAG command this worker drains to pick up. It must be
// called strictly before the corresponding command is written to the
// command ring: the happens-before edge the ring's own release/acquire
// pair establishes is what makes this pointer visible to the worker
// goroutine once it observes the tag.
func (w *Worker) StageGraph(spec *patch.GraphSpec) {
	w.primeReady.Store(false)
	w.pendingGraph.Store(spec)
}

// PrimeReady reports whether the most recently staged graph has
// finished its warmup. The commit handler polls this with a timeout.
func (w *Worker) PrimeReady() bool { return w.primeReady.Load() }

// OverflowCount returns how many produced frames were dropped because
// the audio ring was full.
func (w *Worker) OverflowCount() uint64 { return w.overflow.Load() }

// Host exposes the owned module host for read-only status reporting
// (peaks, module names). The worker's own tick loop is still the only
// writer.
func (w *Worker) Host() *patch.Host { return w.host }

// Run produces leadTarget frames as fast as it can, then drains
// commands, ticks the host, and writes frames at the paced tick
// period until stopCh closes. It recovers from any panic in the DSP
// path, treating it as a worker crash: the panic is swallowed, Done is
// closed, and Run returns. This never touches the host from any other
// goroutine.
func (w *Worker) Run(stopCh <-chan struct{}) {
	defer close(w.done)
	defer func() {
		_ = recover() // a panicking tick is a crash, not a propagating error
	}()

	frame := make([]float32, w.bufferSize)

	for i := 0; i < w.leadTarget; i++ {
		select {
		case <-stopCh:
			return
		default:
		}
		w.drainCommands()
		w.host.Tick(frame)
		if err := w.audioRing.Write(frame); err != nil {
			w.overflow.Add(1)
		}
		w.heartbeat.Add(1)
		w.ticks.Add(1)
	}

	deadline := time.Now()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		w.drainCommands()

		w.host.Tick(frame)

		if err := w.audioRing.Write(frame); err != nil {
			w.overflow.Add(1)
		}

		w.heartbeat.Add(1)
		w.ticks.Add(1)

		deadline = deadline.Add(w.tickPeriod)
		if sleep := time.Until(deadline); sleep > 0 {
			time.Sleep(sleep)
		} else {
			// Fell behind: resync instead of accumulating drift, per
			// spec.md §4.4's "pace against a deadline... to avoid
			// unbounded drift".
			deadline = time.Now()
		}
	}
}

func (w *Worker) drainCommands() {
	for i := 0; i < MaxCmdsPerTick; i++ {
		cmd, err := w.cmdRing.Read()
		if err != nil {
			return
		}
		switch cmd.Op {
		case ring.OpPatchCommitTag:
			w.handleCommitTag()
		case ring.OpShutdown:
			panic(workerShutdown{})
		default:
			_ = w.host.Apply(cmd) // unknown module/param ids are dropped, not fatal
		}
	}
}

// workerShutdown is recovered by Run's deferred recover, turning a
// graceful SHUTDOWN command into the same exit path as a crash
// (closing Done). The supervisor's liveness monitor does not tell the
// two apart: either exit is handled as a worker failure.
type workerShutdown struct{}

func (w *Worker) handleCommitTag() {
	spec := w.pendingGraph.Load()
	if spec == nil {
		return
	}
	if err := w.host.Reset(*spec); err != nil {
		return // pending patch discarded; active graph (if any) is untouched
	}
	sawEnergy := w.host.Warmup(spec.WarmupFrames)
	_ = sawEnergy // readiness is k-frames-reached OR energy-observed, both satisfied by completing Warmup
	w.primeReady.Store(true)
}
