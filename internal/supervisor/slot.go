package supervisor

import (
	"sync/atomic"
	"time"

	"github.com/norsninja/chronus/internal/patch"
	"github.com/norsninja/chronus/internal/ring"
	"github.com/norsninja/chronus/internal/worker"
)

// slotIndex names the two interchangeable worker contexts. spec.md
// calls this "slot"; Go's zero value (0) is slot A, matching the
// supervisor's initial active_idx.
type slotIndex uint32

const (
	slotA slotIndex = iota
	slotB
	numSlots = 2
)

func (s slotIndex) other() slotIndex {
	if s == slotA {
		return slotB
	}
	return slotA
}

func (s slotIndex) String() string {
	if s == slotA {
		return "a"
	}
	return "b"
}

// slot bundles one worker with the rings and heartbeat cell the
// supervisor uses to drive and monitor it. The supervisor owns every
// slot's consumer-side ring handles and heartbeat read access; the
// slot's own worker owns the producer-side handles exclusively.
type slot struct {
	name      slotIndex
	worker    *worker.Worker
	audioRing *ring.AudioRing
	cmdRing   *ring.CommandRing
	heartbeat *atomic.Uint64
	stopCh    chan struct{}

	lastHeartbeatSeen     uint64 // liveness monitor's own bookkeeping
	staleCycles           int
	lastHeartbeatUnixNano atomic.Int64 // written only by the liveness monitor; read by Status()
}

func newSlot(name slotIndex, sampleRate float64, bufferSize, ringDepth, leadTarget int, heartbeat *atomic.Uint64) *slot {
	host := patch.NewHost(sampleRate, bufferSize)
	audioRing := ring.NewAudioRing(ringDepth, bufferSize)
	cmdRing := ring.NewCommandRing(64)
	w := worker.New(name.String(), host, audioRing, cmdRing, heartbeat, sampleRate, bufferSize, leadTarget)
	s := &slot{
		name:      name,
		worker:    w,
		audioRing: audioRing,
		cmdRing:   cmdRing,
		heartbeat: heartbeat,
		stopCh:    make(chan struct{}),
	}
	s.lastHeartbeatUnixNano.Store(time.Now().UnixNano())
	return s
}

func (s *slot) start() {
	go s.worker.Run(s.stopCh)
}

// respawn replaces a dead worker in place: the slot keeps its
// heartbeat cell and ring capacities but gets a fresh host, fresh
// audio and command rings, and a new goroutine, so the supervisor
// still reaches it through the same slot index.
func (s *slot) respawn(sampleRate float64, bufferSize, leadTarget int) {
	host := patch.NewHost(sampleRate, bufferSize)
	s.audioRing = ring.NewAudioRing(s.audioRing.Capacity(), bufferSize)
	s.cmdRing = ring.NewCommandRing(s.cmdRing.Capacity())
	s.heartbeat.Store(0)
	s.worker = worker.New(s.name.String(), host, s.audioRing, s.cmdRing, s.heartbeat, sampleRate, bufferSize, leadTarget)
	s.stopCh = make(chan struct{})
	s.lastHeartbeatSeen = 0
	s.staleCycles = 0
	s.lastHeartbeatUnixNano.Store(time.Now().UnixNano())
	s.start()
}
