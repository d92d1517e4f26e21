package supervisor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/norsninja/chronus/internal/wavfile"
)

// recorderQueueDepth bounds how many pending frames the recorder will
// buffer before dropping; at typical buffer sizes this is a few
// hundred milliseconds of slack for a slow disk.
const recorderQueueDepth = 256

// Recorder is the read-only tap described in spec.md §4.5: it copies
// frames the callback already delivered into a bounded queue and
// drains them on its own writer goroutine, never blocking the
// callback. The frame buffers themselves come from a preallocated pool
// sized at construction, so the hot-path push never calls make — it
// only borrows a buffer, copies into it, and hands it off; the writer
// goroutine returns each buffer to the pool once it's been written.
type Recorder struct {
	sampleRate float64
	bufferSize int

	active    atomic.Bool
	queue     chan []float32
	free      chan []float32
	dropped   atomic.Uint64
	writeErrs atomic.Uint64

	mu       sync.Mutex
	filename string
	done     chan struct{}
}

func newRecorder(sampleRate float64, bufferSize int) *Recorder {
	r := &Recorder{sampleRate: sampleRate, bufferSize: bufferSize}
	r.free = make(chan []float32, recorderQueueDepth)
	for i := 0; i < recorderQueueDepth; i++ {
		r.free <- make([]float32, bufferSize)
	}
	return r
}

// push copies frame into a pool-owned buffer and enqueues it if
// recording is active. Called from the audio callback: never blocks
// or allocates, and silently drops the frame if the pool is exhausted
// (writer goroutine falling behind) or the queue is full.
func (r *Recorder) push(frame []float32) {
	if !r.active.Load() {
		return
	}
	var buf []float32
	select {
	case buf = <-r.free:
	default:
		r.dropped.Add(1)
		return
	}
	copy(buf, frame)
	select {
	case r.queue <- buf:
	default:
		r.dropped.Add(1)
		r.free <- buf
	}
}

// start begins a new recording to filename (created fresh), launching
// the writer goroutine. If name is empty, a timestamped default is
// used per spec.md §6.
func (r *Recorder) start(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active.Load() {
		return fmt.Errorf("supervisor: recorder already active (recording %q)", r.filename)
	}
	if name == "" {
		name = wavfile.DefaultName(time.Now())
	}
	w, err := wavfile.Create(name, int(r.sampleRate))
	if err != nil {
		return err
	}

	r.filename = name
	r.queue = make(chan []float32, recorderQueueDepth)
	r.done = make(chan struct{})
	r.active.Store(true)

	queue, done := r.queue, r.done
	go func() {
		defer close(done)
		defer w.Close()
		for frame := range queue {
			if err := w.WriteFrame(frame); err != nil {
				r.writeErrs.Add(1)
			}
			select {
			case r.free <- frame:
			default:
				// Pool over-full (shouldn't happen: queue and free
				// share the same buffer set), drop the buffer rather
				// than block the writer.
			}
		}
	}()
	return nil
}

// stop finalizes the current recording, draining any queued frames.
func (r *Recorder) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active.CompareAndSwap(true, false) {
		return
	}
	close(r.queue)
	<-r.done
	r.filename = ""
}

// status reports whether a recording is active and its filename.
func (r *Recorder) status() (active bool, filename string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.Load(), r.filename
}

// DroppedFrames returns the cumulative count of frames dropped because
// the buffer pool was exhausted or the recorder queue was full.
func (r *Recorder) DroppedFrames() uint64 { return r.dropped.Load() }

// WriteErrors returns the cumulative count of failed WAV frame writes.
func (r *Recorder) WriteErrors() uint64 { return r.writeErrs.Load() }
