package ring

// Opcode identifies the kind of mutation a Command record requests of
// a DSP worker's module host.
type Opcode uint8

const (
	OpParamSet Opcode = iota
	OpGate
	OpPatchCommitTag
	OpPrime
	OpShutdown
)

func (op Opcode) String() string {
	switch op {
	case OpParamSet:
		return "PARAM_SET"
	case OpGate:
		return "GATE"
	case OpPatchCommitTag:
		return "PATCH_COMMIT_TAG"
	case OpPrime:
		return "PRIME"
	case OpShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Command is a fixed-size IPC record; it carries no version field. It
// is sized to fit comfortably within one cache line so a single write
// is never torn across cells the consumer could observe mid-write.
type Command struct {
	Seq      uint64 // monotonic sequence number, assigned by the producer
	Op       Opcode
	_        [7]byte // pad Op out to the next 8-byte boundary
	ModuleID uint32  // index into the patch's module arena; see patch.Host.ResolveParam
	ParamID  uint32  // index into the module's parameter table
	Value    float32
	_        [4]byte // pad struct to a multiple of 8 bytes
}

// CommandRing is an SPSC ring of fixed-size Command records.
type CommandRing struct {
	head  paddedCounter
	tail  paddedCounter
	cells []Command
	mask  uint64
}

// NewCommandRing creates a ring with room for capacity records.
// capacity must be a power of two.
func NewCommandRing(capacity int) *CommandRing {
	if !isPowerOfTwo(capacity) {
		panic("ring: command ring capacity must be a power of two")
	}
	return &CommandRing{cells: make([]Command, capacity), mask: uint64(capacity - 1)}
}

// Write enqueues a command record. Called only by the ring's single
// producer (the supervisor's OSC thread or commit handler).
func (r *CommandRing) Write(cmd Command) error {
	head := r.head.v.Load()
	tail := r.tail.v.Load()
	if head-tail == uint64(len(r.cells)) {
		return ErrFull
	}
	r.cells[head&r.mask] = cmd
	r.head.v.Store(head + 1)
	return nil
}

// Read dequeues the oldest pending command record. Called only by the
// ring's single consumer (the owning worker's tick loop).
func (r *CommandRing) Read() (Command, error) {
	tail := r.tail.v.Load()
	head := r.head.v.Load()
	if head == tail {
		return Command{}, ErrEmpty
	}
	cmd := r.cells[tail&r.mask]
	r.tail.v.Store(tail + 1)
	return cmd, nil
}

// Occupancy returns a snapshot of the number of commands pending.
func (r *CommandRing) Occupancy() int {
	return int(r.head.v.Load() - r.tail.v.Load())
}

// Free returns the number of cells available for Write.
func (r *CommandRing) Free() int {
	return len(r.cells) - r.Occupancy()
}

// Capacity returns the number of cells in the ring.
func (r *CommandRing) Capacity() int {
	return len(r.cells)
}
