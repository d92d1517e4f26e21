package supervisor

import "sync/atomic"

// frameSnapshot publishes the most recently delivered audio frame for
// the non-audio visualizer/status threads to read, using a seqlock:
// the producer (the audio callback) never blocks or allocates, and a
// torn read is simply retried by the consumer, which is allowed to
// spin since it never runs on the audio thread.
//
// Grounded on the same seqlock discipline as a cache-line-aligned
// shared-memory ring: odd sequence means "write in progress", even
// means "stable", and a reader that observes the same even sequence
// before and after its copy knows it saw a consistent frame.
type frameSnapshot struct {
	seq  atomic.Uint32
	data []float32
}

func newFrameSnapshot(bufferSize int) *frameSnapshot {
	return &frameSnapshot{data: make([]float32, bufferSize)}
}

// publish copies frame into the snapshot. Called only from the audio
// callback; allocation-free.
func (f *frameSnapshot) publish(frame []float32) {
	f.seq.Add(1) // now odd: write in progress
	copy(f.data, frame)
	f.seq.Add(1) // now even: stable
}

// read copies the most recent stable frame into out, retrying if it
// catches the producer mid-write. Never called from the audio thread.
func (f *frameSnapshot) read(out []float32) {
	for {
		s1 := f.seq.Load()
		if s1%2 == 1 {
			continue
		}
		copy(out, f.data)
		s2 := f.seq.Load()
		if s1 == s2 {
			return
		}
	}
}
