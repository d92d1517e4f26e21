// Package ring implements the lock-free single-producer/single-consumer
// ring buffers that carry audio frames from a DSP worker to the
// supervisor's audio callback, and command records from the supervisor
// to a DSP worker.
//
// Both ring kinds share the same discipline: capacity is a power of
// two so index arithmetic is a mask, head and tail are independently
// cache-line padded to avoid false sharing, and the single producer
// and single consumer never touch the other's counter except to read
// it with an acquire/release fence.
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by Write when the ring has no free cell.
var ErrFull = errors.New("ring: full")

// ErrEmpty is returned by Read when the ring has no pending cell.
var ErrEmpty = errors.New("ring: empty")

const cacheLinePad = 64 - 8 // one uint64 counter occupies 8 of the 64 bytes

// paddedCounter is a monotonic SPSC counter padded to its own cache
// line so the producer's writes to head never invalidate the
// consumer's cache line holding tail, and vice versa.
type paddedCounter struct {
	v   atomic.Uint64
	_   [cacheLinePad]byte
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// AudioRing is an SPSC ring of fixed-length float32 audio frames.
type AudioRing struct {
	head       paddedCounter // producer-owned
	tail       paddedCounter // consumer-owned
	cells      [][]float32
	mask       uint64
	bufferSize int
}

// NewAudioRing creates a ring with room for capacity frames, each
// bufferSize samples long. capacity must be a power of two.
func NewAudioRing(capacity, bufferSize int) *AudioRing {
	if !isPowerOfTwo(capacity) {
		panic("ring: audio ring capacity must be a power of two")
	}
	cells := make([][]float32, capacity)
	for i := range cells {
		cells[i] = make([]float32, bufferSize)
	}
	return &AudioRing{cells: cells, mask: uint64(capacity - 1), bufferSize: bufferSize}
}

// Write copies frame (which must be exactly bufferSize samples) into
// the next free cell. Called only by the ring's single producer.
func (r *AudioRing) Write(frame []float32) error {
	if len(frame) != r.bufferSize {
		panic("ring: frame length mismatch")
	}
	head := r.head.v.Load()
	tail := r.tail.v.Load() // acquire: synchronizes with the consumer's release on tail
	if head-tail == uint64(len(r.cells)) {
		return ErrFull
	}
	copy(r.cells[head&r.mask], frame)
	r.head.v.Store(head + 1) // release: publishes the cell contents to the consumer
	return nil
}

// Read copies the oldest pending frame into out (which must be
// exactly bufferSize samples). Called only by the ring's single
// consumer.
func (r *AudioRing) Read(out []float32) error {
	if len(out) != r.bufferSize {
		panic("ring: frame length mismatch")
	}
	tail := r.tail.v.Load()
	head := r.head.v.Load() // acquire: synchronizes with the producer's release on head
	if head == tail {
		return ErrEmpty
	}
	copy(out, r.cells[tail&r.mask])
	r.tail.v.Store(tail + 1) // release
	return nil
}

// Occupancy returns a snapshot of the number of frames pending. Under
// concurrent progress this is a lower bound from the consumer's side
// and an upper bound from the producer's, but it is always in
// [0, capacity].
func (r *AudioRing) Occupancy() int {
	head := r.head.v.Load()
	tail := r.tail.v.Load()
	return int(head - tail)
}

// Free returns the number of cells available for Write.
func (r *AudioRing) Free() int {
	return len(r.cells) - r.Occupancy()
}

// Capacity returns the number of cells in the ring.
func (r *AudioRing) Capacity() int {
	return len(r.cells)
}

// BufferSize returns the fixed frame length each cell holds.
func (r *AudioRing) BufferSize() int {
	return r.bufferSize
}
