package supervisor

import (
	"fmt"
	"strings"
	"time"
)

// Status is the stable snapshot served by /engine/status and rendered
// to engine_status.txt. spec.md names both surfaces without defining
// a payload; this is that definition (SPEC_FULL.md §C).
type Status struct {
	SampleRate   int
	BufferSize   int
	ActiveSlot   string
	HeartbeatAge [2]time.Duration // index matches slotIndex
	Underflows   uint64
	Overflows    uint64
	Recording    bool
	RecordFile   string
	RecordDropped    uint64
	RecordWriteErrors uint64
	LastRespawnMillis int64
	CommitPending     bool
}

// AsOSCArgs flattens Status into the typed argument list an OSC
// message can carry: go-osc messages are untyped args, so the wire
// order here is the contract /engine/status clients parse against.
func (s Status) AsOSCArgs() []interface{} {
	return []interface{}{
		int32(s.SampleRate),
		int32(s.BufferSize),
		s.ActiveSlot,
		int32(s.HeartbeatAge[0].Milliseconds()),
		int32(s.HeartbeatAge[1].Milliseconds()),
		int32(s.Underflows),
		int32(s.Overflows),
		s.Recording,
		s.RecordFile,
		int32(s.RecordDropped),
		int32(s.RecordWriteErrors),
		int32(s.LastRespawnMillis),
		s.CommitPending,
	}
}

// Render produces the human-readable engine_status.txt body.
func (s Status) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sample_rate: %d\n", s.SampleRate)
	fmt.Fprintf(&b, "buffer_size: %d\n", s.BufferSize)
	fmt.Fprintf(&b, "active_slot: %s\n", s.ActiveSlot)
	fmt.Fprintf(&b, "heartbeat_age_ms: a=%d b=%d\n", s.HeartbeatAge[0].Milliseconds(), s.HeartbeatAge[1].Milliseconds())
	fmt.Fprintf(&b, "underflows: %d\n", s.Underflows)
	fmt.Fprintf(&b, "overflows: %d\n", s.Overflows)
	fmt.Fprintf(&b, "recording: %v %s\n", s.Recording, s.RecordFile)
	fmt.Fprintf(&b, "record_dropped: %d\n", s.RecordDropped)
	fmt.Fprintf(&b, "record_write_errors: %d\n", s.RecordWriteErrors)
	fmt.Fprintf(&b, "last_respawn_ms: %d\n", s.LastRespawnMillis)
	fmt.Fprintf(&b, "commit_pending: %v\n", s.CommitPending)
	return b.String()
}
