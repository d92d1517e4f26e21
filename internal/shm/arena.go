// Package shm backs the supervisor/worker shared state with a real
// anonymous mmap'd region instead of ordinary heap memory, so the
// heartbeat cells and active-slot word live in a fixed-layout arena
// the way a multi-process implementation would require, even though
// producer and consumer here are goroutines in one address space. The
// ring buffers are ordinary heap slices and are not placed here.
package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const cacheLine = 64

// Arena is a fixed-size, page-aligned region obtained via mmap. Callers
// carve cache-line-aligned byte ranges out of it with Alloc; the arena
// itself never grows or moves, so pointers into it stay valid for its
// lifetime.
type Arena struct {
	mem    []byte
	offset int
}

// NewArena maps size bytes of anonymous, zero-filled memory shared
// across fork boundaries (MAP_SHARED|MAP_ANON) so the layout would
// still be valid if a future revision split slots across processes.
func NewArena(size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: arena size must be positive, got %d", size)
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %d bytes: %w", size, err)
	}
	return &Arena{mem: mem}, nil
}

// Alloc reserves n bytes, cache-line aligned, and returns the backing
// slice. It panics on exhaustion: the arena is sized once at startup
// from the fixed set of slots the supervisor and workers need, so
// running out indicates a programming error, not a runtime condition.
func (a *Arena) Alloc(n int) []byte {
	aligned := (a.offset + cacheLine - 1) &^ (cacheLine - 1)
	if aligned+n > len(a.mem) {
		panic(fmt.Sprintf("shm: arena exhausted: need %d bytes at offset %d, have %d", n, aligned, len(a.mem)))
	}
	a.offset = aligned + n
	return a.mem[aligned : aligned+n]
}

// Close unmaps the arena. Safe to call once all producer/consumer
// handles derived from it have stopped using it.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}
