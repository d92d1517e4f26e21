package shm

import (
	"sync/atomic"
	"unsafe"
)

// AtomicUint64 carves a cache-line-aligned 8-byte cell out of the
// arena and hands back a *atomic.Uint64 over it. This is the one
// unsafe-pointer cast in the package: atomic.Uint64's memory layout
// is a bare uint64, and Alloc's cache-line alignment guarantees the
// 8-byte alignment atomic operations require, so reinterpreting the
// cell is sound. Used for the handful of words that genuinely need to
// look like cross-process shared memory: each slot's heartbeat
// counter and the supervisor's single active-slot index.
func (a *Arena) AtomicUint64() *atomic.Uint64 {
	cell := a.Alloc(8)
	return (*atomic.Uint64)(unsafe.Pointer(&cell[0]))
}
