package kernel

import "sync"

// waitQueue is a resource's wait-queue head, addressable so the scheduler
// can mutate it in place. This replaces the original's "pointer to a
// wait-queue head pointer" parameter (spec.md §4.1's wait/notify take a
// queue_head_ptr) with a small owned struct, which is the idiomatic Go
// rendition of "pointer to pointer."
type waitQueue struct {
	head *TCB
}

func (q *waitQueue) len() int { return waitQueueLen(q.head) }

// SchedulerVTable is the polymorphic scheduler surface the original
// selects via a table of function pointers at OS_init (spec.md §9,
// Design Notes: "Dynamic dispatch"). Kernel depends only on this
// interface, so an alternative scheduling policy can be substituted
// without touching the kernel entry/init code.
type SchedulerVTable interface {
	Schedule(now uint32) *TCB
	AddTask(t *TCB) bool
	ExitTask(t *TCB)
	RemoveTask(t *TCB)
	Wait(q *waitQueue, t *TCB, fastFailSeen uint32) bool
	Notify(q *waitQueue) *TCB
	FastFailSnapshot() uint32
	Preemptive() bool
}

// Scheduler is the fixed-priority round-robin scheduler (spec.md §4.1,
// component C3): per-priority circular ring lists, idle fallback, and
// the cross-cutting wait/notify fabric (component the spec calls out
// separately as the "Wait/Notify Fabric," §1).
type Scheduler struct {
	cfg Config

	mu    sync.Mutex
	heads []*TCB // indexed by priority; index 0 unused (reserved for idle)
	count int

	idle *TCB

	sleep    *sleepHeap
	fastFail llWord

	// onReschedule is invoked whenever remove/sleep/wait require an
	// immediate reschedule request; Kernel wires it to a debug log line,
	// and performs the actual switch itself in Kernel.dispatch.
	// It must never block (spec.md §5: kernel-side operations must stay
	// bounded and non-allocating).
	onReschedule func()

	// taskWatermark and sleepWatermark are procedural observability
	// additions (SPEC_FULL.md's supplemented features, not in spec.md's
	// original scope): the high-water mark of live tasks and concurrent
	// sleepers, for capacity-planning diagnostics.
	taskWatermark  Watermark[int]
	sleepWatermark Watermark[int]
}

// NewScheduler constructs a fixed-priority round-robin scheduler for cfg.
func NewScheduler(cfg Config) *Scheduler {
	cfg, err := cfg.withDefaults()
	assertf(err == nil, "kernel: NewScheduler: invalid config: %v", err)
	return &Scheduler{
		cfg:   cfg,
		heads: make([]*TCB, cfg.PriorityLevels),
		sleep: newSleepHeap(cfg.MaxTasks),
	}
}

// SetIdle installs the task returned by Schedule when every priority
// ring is empty. Must be called once before the scheduler is used.
func (s *Scheduler) SetIdle(idle *TCB) { s.idle = idle }

// SetRescheduleHook installs the callback Wait/RemoveTask use to request
// an immediate context switch (spec.md §4.1).
func (s *Scheduler) SetRescheduleHook(fn func()) { s.onReschedule = fn }

func (s *Scheduler) requestReschedule() {
	if s.onReschedule != nil {
		s.onReschedule()
	}
}

// Preemptive reports the scheduler table's preemptive flag, which is
// always true for this policy. Kernel does not act on it: its tick source
// only advances the tick count, and tasks are switched only at
// Kernel.dispatch points, never on a tick.
func (s *Scheduler) Preemptive() bool { return true }

// FastFailSnapshot returns the current value of the monotonic fast-fail
// counter (spec.md §3, component C5), to be captured by a would-be
// waiter before its atomic acquire attempt.
func (s *Scheduler) FastFailSnapshot() uint32 { return s.fastFail.llLoad() }

// Schedule is called from the context-switch path (spec.md §4.1). It
// first drains any expired sleepers back onto their priority rings, then
// picks the highest-priority non-empty ring's next task, advancing that
// ring's head. If every ring is empty, it returns the idle task.
func (s *Scheduler) Schedule(now uint32) *TCB {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.sleep.needsWakeup(now) {
		woken := s.sleep.extractMin(now)
		woken.state = StateRunnable
		s.heads[woken.priority] = ringInsert(s.heads[woken.priority], woken)
	}

	for p := s.cfg.PriorityMax(); p >= 1; p-- {
		head := s.heads[p]
		if head == nil {
			continue
		}
		next := head.next
		s.heads[p] = next
		next.state = StateRunning
		return next
	}

	assertf(s.idle != nil, "kernel: Schedule: no idle task installed")
	s.idle.state = StateRunning
	return s.idle
}

// AddTask inserts t into its priority ring, failing silently (per
// spec.md §4.1/§7) if MaxTasks has already been reached.
func (s *Scheduler) AddTask(t *TCB) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.state == StateExited {
		assertf(false, "kernel: AddTask: %s has exited and cannot be re-added", t.Name)
		return false
	}
	if s.count >= s.cfg.MaxTasks {
		assertf(false, "kernel: AddTask: MAX_TASKS (%d) exceeded", s.cfg.MaxTasks)
		return false
	}
	s.heads[t.priority] = ringInsert(s.heads[t.priority], t)
	s.count++
	t.state = StateRunnable
	s.taskWatermark.Observe(s.count)
	return true
}

// ExitTask removes t from its ring and decrements the live task count.
// Called automatically when a task function returns (spec.md §4.1/§6,
// task_end). Per spec.md §9's open question, an exited TCB is never
// re-added; AddTask on an exited TCB is an assertion failure.
func (s *Scheduler) ExitTask(t *TCB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assertf(t.state != StateExited, "kernel: ExitTask: %s already exited", t.Name)
	s.heads[t.priority] = ringRemove(s.heads[t.priority], t)
	s.count--
	t.state = StateExited
}

// RemoveTask removes t from its ring without decrementing the live task
// count (used for sleep/wait), and requests an immediate reschedule.
func (s *Scheduler) RemoveTask(t *TCB) {
	s.mu.Lock()
	s.heads[t.priority] = ringRemove(s.heads[t.priority], t)
	s.mu.Unlock()
	s.requestReschedule()
}

// Sleep removes t from its ring and inserts it into the sleep heap keyed
// on wakeTick, then requests a reschedule.
func (s *Scheduler) Sleep(t *TCB, wakeTick uint32, now uint32) {
	s.mu.Lock()
	s.heads[t.priority] = ringRemove(s.heads[t.priority], t)
	t.state = StateSleeping
	t.data = wakeTick
	s.sleep.insert(t, now)
	s.sleepWatermark.Observe(s.sleep.len())
	s.mu.Unlock()
	s.requestReschedule()
}

// Wait implements the idempotent fail-fast protocol of spec.md §4.1/§5:
// if fastFailSeen no longer matches the current fast-fail counter (a
// concurrent notify happened between the caller's snapshot and this
// call), Wait returns false without touching any state, forcing the
// caller to retry its atomic acquire instead of risking a lost wakeup.
// Otherwise it removes t from its ring, enqueues it on q, and requests a
// reschedule.
func (s *Scheduler) Wait(q *waitQueue, t *TCB, fastFailSeen uint32) bool {
	s.mu.Lock()
	if fastFailSeen != s.fastFail.llLoad() {
		s.mu.Unlock()
		return false
	}
	s.heads[t.priority] = ringRemove(s.heads[t.priority], t)
	q.head = waitQueueInsert(q.head, t)
	t.state = StateWaiting
	s.mu.Unlock()
	s.requestReschedule()
	return true
}

// Notify extracts the highest-priority, earliest-arrived waiter from q
// (if any) and reinserts it into the runnable ring for its priority. It
// bumps the global fast-fail counter first, before the wait-queue head
// is read, closing the lost-wakeup window (spec.md §5). It does not
// request a context switch directly.
func (s *Scheduler) Notify(q *waitQueue) *TCB {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fastFail.store(s.fastFail.llLoad() + 1)

	t, newHead := waitQueueExtract(q.head)
	q.head = newHead
	if t == nil {
		return nil
	}
	s.heads[t.priority] = ringInsert(s.heads[t.priority], t)
	t.state = StateRunnable
	return t
}

// TaskCount returns the number of tasks currently known to the
// scheduler (added but not yet exited), for tests and assertions.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// RingLen returns the number of runnable tasks at priority p, for tests.
func (s *Scheduler) RingLen(p int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ringLen(s.heads[p])
}

// SleepCount returns the number of sleeping tasks, for tests.
func (s *Scheduler) SleepCount() int { return s.sleep.len() }

// TaskWatermark returns the largest number of live tasks ever observed
// simultaneously, for capacity-planning diagnostics.
func (s *Scheduler) TaskWatermark() int { return s.taskWatermark.Max() }

// SleepWatermark returns the largest number of concurrent sleepers ever
// observed, for capacity-planning diagnostics.
func (s *Scheduler) SleepWatermark() int { return s.sleepWatermark.Max() }
