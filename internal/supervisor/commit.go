package supervisor

import (
	"errors"
	"time"

	"github.com/norsninja/chronus/internal/logging"
	"github.com/norsninja/chronus/internal/patch"
	"github.com/norsninja/chronus/internal/ring"
)

// ErrPrimeTimeout is returned when a pending patch's standby host does
// not reach prime_ready within the configured timeout.
var ErrPrimeTimeout = errors.New("supervisor: prime timeout")

// ErrCommitBusy is returned when a commit is already in flight.
var ErrCommitBusy = errors.New("supervisor: commit already in progress")

// ErrCommandRingFull is returned when the standby's command ring
// cannot accept the commit sequence.
var ErrCommandRingFull = errors.New("supervisor: command ring full during commit")

// defaultWarmupFrames is spec.md §4.5's "k typically 8".
const defaultWarmupFrames = 8

// Commit runs the patch-commit protocol of spec.md §4.5 against spec,
// targeting whichever slot is standby at the moment the handler
// starts (captured once, per §5's ordering guarantee, to avoid races
// with a concurrent failover). On success the new graph is active and
// the former active slot has been staged to mirror it as the new
// standby. On failure the active graph is left untouched.
func (sv *Supervisor) Commit(spec patch.GraphSpec) error {
	if !sv.pendingCommit.CompareAndSwap(false, true) {
		return ErrCommitBusy
	}
	defer sv.pendingCommit.Store(false)

	if spec.WarmupFrames <= 0 {
		spec.WarmupFrames = defaultWarmupFrames
	}

	standbyIdx := slotIndex(sv.activeIdx.Load()).other()
	standby := sv.slots[standbyIdx]

	standby.worker.StageGraph(&spec)
	if err := standby.cmdRing.Write(ring.Command{Op: ring.OpPatchCommitTag}); err != nil {
		return ErrCommandRingFull
	}

	timeout := time.Duration(sv.primeTimeoutMs) * time.Millisecond
	if !waitForPrime(standby.worker.PrimeReady, timeout) {
		sv.events.Push(logging.EventPrimeTimeout, uint32(standbyIdx))
		return ErrPrimeTimeout
	}

	// Atomic swap: the next callback invocation reads the new graph.
	sv.activeIdx.Store(uint64(standbyIdx))

	// Mirror the new graph onto the former active slot so it becomes an
	// immediately-ready standby.
	former := sv.slots[standbyIdx.other()]
	specCopy := spec
	former.worker.StageGraph(&specCopy)
	if err := former.cmdRing.Write(ring.Command{Op: ring.OpPatchCommitTag}); err != nil {
		// The new active graph is already live; a failed mirror only
		// means the next commit must wait longer for this standby, not
		// a failure of this commit.
		sv.events.Push(logging.EventCommitBusy, uint32(standbyIdx.other()))
	}

	return nil
}

// Abort discards any staged-but-uncommitted graph on the standby slot
// by simply not committing it; spec.md §6's /patch/abort has no
// ring-side effect beyond this, since nothing has touched active_idx.
func (sv *Supervisor) Abort() {
	sv.pendingCommit.Store(false)
}

// PendingCommit reports whether a commit is currently in flight, for
// the OSC router's broadcast-vs-active-only routing decision.
func (sv *Supervisor) PendingCommit() bool { return sv.pendingCommit.Load() }

// ActiveCommandRing and StandbyCommandRing expose the two command
// rings for the OSC router to address, per spec.md §4.5's steady-state
// vs. during-commit routing rule.
func (sv *Supervisor) ActiveCommandRing() *ring.CommandRing {
	return sv.slots[slotIndex(sv.activeIdx.Load())].cmdRing
}

func (sv *Supervisor) StandbyCommandRing() *ring.CommandRing {
	return sv.slots[slotIndex(sv.activeIdx.Load()).other()].cmdRing
}

// ActiveHost exposes the active slot's host for read-only parameter
// resolution (the OSC router needs module/param name -> index lookups
// against whichever graph is currently live).
func (sv *Supervisor) ActiveHost() *patch.Host {
	return sv.slots[slotIndex(sv.activeIdx.Load())].worker.Host()
}

// StandbyHost exposes the standby slot's host, for resolving
// parameter names against a graph staged but not yet committed (the
// broadcast-to-both-slots routing rule of spec.md §4.5 "OSC parameter
// routing" needs its own index lookup since the two graphs may differ
// in shape during a commit).
func (sv *Supervisor) StandbyHost() *patch.Host {
	return sv.slots[slotIndex(sv.activeIdx.Load()).other()].worker.Host()
}

func waitForPrime(ready func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if ready() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
