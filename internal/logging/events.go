// events.go implements the real-time-safe error reporting path: the
// audio callback and DSP worker tick loop never call into the
// structured logger directly, since github.com/charmbracelet/log
// allocates and may block on its writer. Instead they push an opaque
// EventCode onto a lock-free MPSC ring; a drain goroutine turns each
// code into a structured log line on its own schedule.
package logging

import (
	"sync/atomic"
)

// EventCode identifies one real-time-path occurrence worth logging,
// without carrying any allocation-requiring payload.
type EventCode uint8

const (
	EventUnderflow EventCode = iota
	EventOverflow
	EventWorkerCrash
	EventFailover
	EventRespawnOK
	EventRespawnFailed
	EventPrimeTimeout
	EventCommitBusy
	EventUnderflowRateAlert
)

func (e EventCode) String() string {
	switch e {
	case EventUnderflow:
		return "underflow"
	case EventOverflow:
		return "overflow"
	case EventWorkerCrash:
		return "worker_crash"
	case EventFailover:
		return "failover"
	case EventRespawnOK:
		return "respawn_ok"
	case EventRespawnFailed:
		return "respawn_failed"
	case EventPrimeTimeout:
		return "prime_timeout"
	case EventCommitBusy:
		return "commit_busy"
	case EventUnderflowRateAlert:
		return "underflow_rate_alert"
	default:
		return "unknown"
	}
}

// eventSlot holds one pending (code, aux) pair. Multiple producers
// (the audio callback, the liveness monitor, the commit handler) may
// publish concurrently; a single drain goroutine consumes.
type eventSlot struct {
	seq uint64 // 0: never written; otherwise idx+1 of the Push that last filled the slot
	code uint32
	aux  uint32
}

// EventRing is a fixed-capacity MPSC ring of EventCode occurrences,
// sized generously so a burst of transient errors never blocks a
// producer: Push always succeeds, overwriting the oldest unread slot
// if the ring is saturated, because losing an old log line is
// preferable to the audio callback ever waiting.
type EventRing struct {
	slots []eventSlot
	mask  uint64
	head  atomic.Uint64 // next slot index to claim, producer side
	tail  uint64        // next slot index to drain, consumer-only, no synchronization needed beyond seq
}

// NewEventRing creates a ring with room for capacity events; capacity
// must be a power of two.
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("logging: event ring capacity must be a power of two")
	}
	return &EventRing{slots: make([]eventSlot, capacity), mask: uint64(capacity - 1)}
}

// Push records one event occurrence. Safe to call from the audio
// callback and any number of concurrent goroutines: it never blocks,
// never allocates, and never returns an error.
func (r *EventRing) Push(code EventCode, aux uint32) {
	idx := r.head.Add(1) - 1
	slot := &r.slots[idx&r.mask]
	atomic.StoreUint32(&slot.code, uint32(code))
	atomic.StoreUint32(&slot.aux, aux)
	atomic.StoreUint64(&slot.seq, idx+1) // nonzero marks the slot ready; idx+1 also lets Drain detect staleness
}

// Drain calls fn once for every event pushed since the last Drain
// call, in approximate push order. Called only from the logger's
// single drain goroutine.
func (r *EventRing) Drain(fn func(code EventCode, aux uint32)) {
	head := r.head.Load()
	for r.tail < head {
		slot := &r.slots[r.tail&r.mask]
		seq := atomic.LoadUint64(&slot.seq)
		if seq != r.tail+1 {
			// Producer lapped this slot before we read it; skip ahead
			// rather than block, consistent with "losing an old event
			// beats stalling the drain".
			if head > uint64(len(r.slots)) {
				r.tail = head - uint64(len(r.slots))
			} else {
				r.tail = 0
			}
			continue
		}
		fn(EventCode(atomic.LoadUint32(&slot.code)), atomic.LoadUint32(&slot.aux))
		r.tail++
	}
}
