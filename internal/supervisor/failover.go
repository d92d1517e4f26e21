package supervisor

import (
	"time"

	"github.com/norsninja/chronus/internal/logging"
	"github.com/norsninja/chronus/internal/ring"
)

// nHeartbeatStale is N_HB from spec.md §4.5: the number of consecutive
// stale heartbeat-monitor cycles before a worker is declared hung.
const nHeartbeatStale = 3

// runLiveness is the non-audio liveness-monitor thread: it polls each
// slot's heartbeat counter every heartbeatPeriodMs and also selects on
// each worker's Done channel as the sentinel mechanism, triggering
// failover on either signal.
func (sv *Supervisor) runLiveness() {
	period := time.Duration(sv.heartbeatPeriodMs) * time.Millisecond
	if period <= 0 {
		period = 5 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-sv.stopMonitor:
			return
		case <-sv.slots[slotA].worker.Done():
			sv.handleCrash(slotA)
		case <-sv.slots[slotB].worker.Done():
			sv.handleCrash(slotB)
		case <-ticker.C:
			sv.pollHeartbeats()
		}
	}
}

func (sv *Supervisor) pollHeartbeats() {
	for i := range sv.slots {
		s := sv.slots[i]
		cur := s.heartbeat.Load()
		if cur != s.lastHeartbeatSeen {
			s.lastHeartbeatSeen = cur
			s.staleCycles = 0
			s.lastHeartbeatUnixNano.Store(time.Now().UnixNano())
			continue
		}
		s.staleCycles++
		if s.staleCycles >= nHeartbeatStale && slotIndex(i) == slotIndex(sv.activeIdx.Load()) {
			sv.handleCrash(slotIndex(i))
		}
	}
}

// handleCrash performs the failover+respawn sequence for a detected
// failure of slot idx. If idx is the active slot, the supervisor
// switches active_idx to the surviving slot first so the callback
// never reads from the dead one; the failed slot is then respawned as
// the new standby.
func (sv *Supervisor) handleCrash(idx slotIndex) {
	start := time.Now()
	sv.events.Push(logging.EventWorkerCrash, uint32(idx))

	if slotIndex(sv.activeIdx.Load()) == idx {
		sv.activeIdx.Store(uint64(idx.other()))
		sv.events.Push(logging.EventFailover, uint32(idx))
	}

	failed := sv.slots[idx]
	select {
	case <-failed.worker.Done():
	default:
		// still running (a stale-heartbeat failover, not a crash): ask
		// it to stop before respawning over it.
		close(failed.stopCh)
		<-failed.worker.Done()
	}

	failed.respawn(sv.sampleRate, sv.bufferSize, sv.leadTarget)

	// Mirror the surviving slot's graph onto the freshly respawned
	// standby so it is immediately ready for the next commit or
	// another failover, matching the commit protocol's own mirror step.
	survivor := sv.slots[idx.other()]
	if spec := survivor.worker.Host().CurrentSpec(); spec != nil {
		failed.worker.StageGraph(spec)
		failed.cmdRing.Write(ring.Command{Op: ring.OpPatchCommitTag})
	}

	elapsed := time.Since(start)
	sv.lastRespawnMillis.Store(elapsed.Milliseconds())
	if elapsed > respawnTarget {
		sv.events.Push(logging.EventRespawnFailed, uint32(elapsed.Milliseconds()))
	} else {
		sv.events.Push(logging.EventRespawnOK, uint32(elapsed.Milliseconds()))
	}
}

// respawnTarget is the ≤150ms goal of spec.md §4.5/§9; on a
// constrained host it may be exceeded, which is reported, not
// enforced (SPEC_FULL.md §D.4).
const respawnTarget = 150 * time.Millisecond
