// Package supervisor owns the audio device, the two DSP worker slots,
// the active-slot index, liveness monitoring, the patch-commit
// protocol, the recording tap, and the visualizer broadcast. It is
// the component spec.md §4.5 describes.
package supervisor

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/norsninja/chronus/internal/config"
	"github.com/norsninja/chronus/internal/logging"
	"github.com/norsninja/chronus/internal/shm"
)

// arenaSize is generous: the two heartbeat cells and the one
// active-index cell, each cache-line aligned, use 192 of its bytes.
const arenaSize = 64 * 16

// eventDrainPeriod is how often the logger goroutine drains the
// real-time event ring. Coarser than the heartbeat period: dropped
// log lines under burst pressure are acceptable, dropped heartbeats
// are not.
const eventDrainPeriod = 20 * time.Millisecond

// Supervisor is the fault-tolerant core: it never itself produces
// audio, it only arbitrates which slot's worker does and keeps a
// standby warm.
type Supervisor struct {
	logger *logging.Logger
	events *logging.EventRing

	sampleRate float64
	bufferSize int
	leadTarget int
	primeTimeoutMs int
	heartbeatPeriodMs int

	arena     *shm.Arena
	slots     [numSlots]*slot
	activeIdx *atomic.Uint64

	lastGood []float32

	underflow atomic.Uint64
	overflow  atomic.Uint64

	callbackSeq       atomic.Uint64
	underflowWindow   [underflowWindowSize]atomic.Uint32
	underflowAlerting atomic.Bool

	snapshot   *frameSnapshot
	voicePeaks [4]atomic.Uint32
	masterPeak atomic.Uint32

	pendingCommit     atomic.Bool
	lastRespawnMillis atomic.Int64

	recorder *Recorder

	stopMonitor chan struct{}
}

// New constructs a supervisor with both slots started as idle
// (moduleless) workers and the first slot active.
func New(cfg config.Config, logger *logging.Logger) (*Supervisor, error) {
	arena, err := shm.NewArena(arenaSize)
	if err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}

	sampleRate := float64(cfg.Audio.SampleRate)
	bufferSize := cfg.Audio.BufferSize
	ringDepth := cfg.Supervisor.RingDepth

	sv := &Supervisor{
		logger:            logger,
		events:            logging.NewEventRing(256),
		sampleRate:        sampleRate,
		bufferSize:        bufferSize,
		leadTarget:        cfg.Supervisor.LeadTargetFrames,
		primeTimeoutMs:    cfg.Supervisor.PrimeTimeoutMs,
		heartbeatPeriodMs: cfg.Supervisor.HeartbeatPeriodMs,
		arena:             arena,
		activeIdx:         arena.AtomicUint64(),
		lastGood:          make([]float32, bufferSize),
		snapshot:          newFrameSnapshot(bufferSize),
		stopMonitor:       make(chan struct{}),
	}

	sv.slots[slotA] = newSlot(slotA, sampleRate, bufferSize, ringDepth, sv.leadTarget, arena.AtomicUint64())
	sv.slots[slotB] = newSlot(slotB, sampleRate, bufferSize, ringDepth, sv.leadTarget, arena.AtomicUint64())
	sv.slots[slotA].start()
	sv.slots[slotB].start()
	sv.activeIdx.Store(uint64(slotA))

	sv.recorder = newRecorder(sampleRate, bufferSize)

	go sv.logger.RunEventDrain(sv.events, eventDrainPeriod, sv.stopMonitor)
	go sv.runLiveness()
	go sv.runUnderflowMonitor()

	return sv, nil
}

// Close tears down both slots and the shared arena.
func (sv *Supervisor) Close() error {
	close(sv.stopMonitor)
	for _, s := range sv.slots {
		close(s.stopCh)
	}
	sv.recorder.stop()
	return sv.arena.Close()
}

func (sv *Supervisor) activeSlot() *slot {
	return sv.slots[slotIndex(sv.activeIdx.Load())]
}

func (sv *Supervisor) standbySlot() *slot {
	return sv.slots[slotIndex(sv.activeIdx.Load()).other()]
}

// AudioCallback is the real-time audio device callback body: load the
// active slot, try to read one frame, and on failure replay the last
// known good frame. It never allocates, locks, or logs — transient
// errors only bump a counter and push an opaque event code.
//
// out must already be exactly bufferSize samples; the caller (device.go)
// owns binding this to the actual hardware output buffer.
func (sv *Supervisor) AudioCallback(out []float32) {
	idx := slotIndex(sv.activeIdx.Load())
	s := sv.slots[idx]

	seq := sv.callbackSeq.Add(1) - 1
	slotInWindow := &sv.underflowWindow[seq%underflowWindowSize]
	if err := s.audioRing.Read(out); err != nil {
		copy(out, sv.lastGood)
		sv.underflow.Add(1)
		sv.events.Push(logging.EventUnderflow, uint32(idx))
		slotInWindow.Store(1)
	} else {
		copy(sv.lastGood, out)
		slotInWindow.Store(0)
	}

	sv.recorder.push(out)
	sv.snapshot.publish(out)

	peaks := s.worker.Host().VoicePeaks()
	for i, p := range peaks {
		sv.voicePeaks[i].Store(math.Float32bits(p))
	}
	sv.masterPeak.Store(math.Float32bits(s.worker.Host().MasterPeak()))
}

// UnderflowCount returns the cumulative underflow counter.
func (sv *Supervisor) UnderflowCount() uint64 { return sv.underflow.Load() }

// Status builds the current stable status snapshot.
func (sv *Supervisor) Status() Status {
	active := slotIndex(sv.activeIdx.Load())
	rec, recFile := sv.recorder.status()
	now := time.Now()
	var age [2]time.Duration
	for i, s := range sv.slots {
		age[i] = now.Sub(time.Unix(0, s.lastHeartbeatUnixNano.Load()))
	}
	return Status{
		SampleRate:        int(sv.sampleRate),
		BufferSize:        sv.bufferSize,
		ActiveSlot:        active.String(),
		HeartbeatAge:      age,
		Underflows:        sv.underflow.Load(),
		Overflows:         sv.overflowTotal(),
		Recording:         rec,
		RecordFile:        recFile,
		RecordDropped:     sv.recorder.DroppedFrames(),
		RecordWriteErrors: sv.recorder.WriteErrors(),
		LastRespawnMillis: sv.lastRespawnMillis.Load(),
		CommitPending:     sv.pendingCommit.Load(),
	}
}

// StartRecording begins capturing the active audio stream to a WAV
// file; name may be empty to use the default timestamped filename.
func (sv *Supervisor) StartRecording(name string) error {
	return sv.recorder.start(name)
}

// StopRecording finalizes the current recording, if any.
func (sv *Supervisor) StopRecording() {
	sv.recorder.stop()
}

func (sv *Supervisor) overflowTotal() uint64 {
	return sv.slots[slotA].worker.OverflowCount() + sv.slots[slotB].worker.OverflowCount()
}
