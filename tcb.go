package kernel

// TCB is the per-task control block (spec.md §3, component C1).
//
// The original's sp/stack-frame field is meaningless in a hosted Go
// process (there is no register frame to save/restore); it is replaced
// by resume, a per-task channel the scheduler uses to hand control to
// this task's goroutine — the Go-idiomatic "context switch" (see
// SPEC_FULL.md §0). prev/next are reused for two different lists
// depending on state, exactly as the original specifies: the scheduler's
// circular doubly-linked ring (prev and next both meaningful) or a wait
// queue's singly-linked successor (next only) — a TCB is never on both at
// once.
type TCB struct {
	// Name is an observability addition (not present in the original);
	// it has no effect on scheduling and exists purely so tests and logs
	// can identify a task by something more legible than a pointer.
	Name string

	priority int
	state    TaskState

	// data is scratch storage; while sleeping it holds the absolute
	// wake-tick (spec.md §3).
	data uint32

	// ring neighbors (priority ring) or wait-queue successor (next only).
	prev, next *TCB

	// resume is the Go substitution for a saved register frame: sending
	// on it is "switch to this task," receiving on it (by the task's own
	// goroutine) is "this task has the CPU again."
	resume chan struct{}

	fn  func(arg any)
	arg any
}

// TaskState is a lifecycle enum. The original additionally multiplexes a
// PRIORITY_INHERITED bit into the same word for a feature that spec.md
// lists as future work (priority inheritance is an explicit Non-goal);
// this port omits that bit rather than carry a field nothing ever reads.
type TaskState uint32

const (
	// StateRunnable: on a priority ring, eligible to be picked by schedule().
	StateRunnable TaskState = iota
	// StateRunning: currently holds the CPU.
	StateRunning
	// StateSleeping: in the sleep heap, not on any ring.
	StateSleeping
	// StateWaiting: on a resource's wait queue, not on any ring.
	StateWaiting
	// StateExited: removed from the scheduler for good. Per spec.md §9's
	// open question, an exited TCB must never be re-added; this port
	// makes that an assertion failure rather than silent UB.
	StateExited
)

func (s TaskState) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateWaiting:
		return "waiting"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// NewTCB prepares a task control block. priority is clamped to
// PriorityMax() if it exceeds it; per spec.md §9's open question,
// priority 0 is accepted without rejection even though the scheduler's
// ring loop only ever iterates p > 0 (idle is the only priority-0
// occupant in a correctly configured system), preserving rather than
// silently changing that behavior.
//
// fn is the task entry point; it receives arg once the task is first
// scheduled. This is the Go stand-in for OS_init_tcb's stack-frame
// construction (spec.md §6): there is no stack to prime, only a closure
// to remember and a resume channel to synchronize on.
func NewTCB(name string, priority int, fn func(arg any), arg any, cfg Config) *TCB {
	cfg, err := cfg.withDefaults()
	assertf(err == nil, "kernel: NewTCB: invalid config: %v", err)

	if priority > cfg.PriorityMax() {
		assertf(false, "kernel: NewTCB: priority %d exceeds PRIORITY_MAX %d, clamping", priority, cfg.PriorityMax())
		priority = cfg.PriorityMax()
	}
	if priority < 0 {
		assertf(false, "kernel: NewTCB: negative priority %d, clamping to 0", priority)
		priority = 0
	}

	return &TCB{
		Name:     name,
		priority: priority,
		state:    StateRunnable,
		resume:   make(chan struct{}, 1),
		fn:       fn,
		arg:      arg,
	}
}

// Priority returns the task's scheduling priority.
func (t *TCB) Priority() int { return t.priority }

// State returns the task's current lifecycle state.
func (t *TCB) State() TaskState { return t.state }

// WakeTick returns the absolute tick this TCB will wake at, valid only
// while State() == StateSleeping.
func (t *TCB) WakeTick() uint32 { return t.data }
