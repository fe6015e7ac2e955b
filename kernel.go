package kernel

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kernel is the entry/init component of spec.md §4 (component C10): it
// owns the scheduler, the tick counter, and the currently running task,
// and drives the goroutine-handoff substitution for "context switch"
// described in SPEC_FULL.md §0. Kernel implements SchedulerVTable itself
// by wrapping a *Scheduler, adding the actual goroutine park/resume
// mechanics to Wait — the one scheduler operation a blocking primitive
// can invoke from arbitrary task context.
//
// Method-to-spec mapping (spec.md §6's public API table):
//
//	NewKernel   ~ OS_init        (store scheduler, validate config)
//	Start       ~ OS_start       (enter idle; never returns)
//	CurrentTCB  ~ OS_current_tcb
//	ElapsedTicks ~ OS_elapsed_ticks
//	Spawn       ~ OS_init_tcb + OS_add_task (composed: NewTCB prepares,
//	              Spawn registers and launches the backing goroutine)
//	Yield       ~ OS_yield
//	Sleep       ~ OS_sleep
type Kernel struct {
	cfg  Config
	core *Scheduler

	ticks   atomic.Uint32
	current atomic.Pointer[TCB]

	idle *TCB

	started atomic.Bool
	haltCh  chan struct{}
	haltOne sync.Once

	logger Logger
}

// NewKernel validates cfg and constructs a kernel with a fresh fixed-
// priority round-robin scheduler and idle task. Per spec.md §6, an
// invalid configuration is an assertion failure — OS_init "asserts"
// rather than returning an error, since the original's scheduler
// callback table is either valid or the system cannot boot at all.
func NewKernel(cfg Config) *Kernel {
	cfg, err := cfg.withDefaults()
	assertf(err == nil, "kernel: NewKernel: invalid config: %v", err)

	k := &Kernel{
		cfg:    cfg,
		core:   NewScheduler(cfg),
		haltCh: make(chan struct{}),
		logger: getLogger(),
	}
	k.idle = NewTCB("idle", 0, k.idleBody, nil, cfg)
	k.core.SetIdle(k.idle)
	k.core.SetRescheduleHook(func() {
		k.logger.Debug("kernel: reschedule requested")
	})
	return k
}

// --- SchedulerVTable ---------------------------------------------------

// Schedule delegates to the wrapped scheduler (spec.md §4.1).
func (k *Kernel) Schedule(now uint32) *TCB { return k.core.Schedule(now) }

// AddTask delegates to the wrapped scheduler. Use Spawn to both register
// a task and launch its backing goroutine.
func (k *Kernel) AddTask(t *TCB) bool { return k.core.AddTask(t) }

// ExitTask delegates to the wrapped scheduler.
func (k *Kernel) ExitTask(t *TCB) { k.core.ExitTask(t) }

// RemoveTask delegates to the wrapped scheduler.
func (k *Kernel) RemoveTask(t *TCB) { k.core.RemoveTask(t) }

// FastFailSnapshot delegates to the wrapped scheduler.
func (k *Kernel) FastFailSnapshot() uint32 { return k.core.FastFailSnapshot() }

// Preemptive delegates to the wrapped scheduler.
func (k *Kernel) Preemptive() bool { return k.core.Preemptive() }

// Notify delegates to the wrapped scheduler and, per spec.md §4.1, does
// not itself request a context switch.
func (k *Kernel) Notify(q *waitQueue) *TCB { return k.core.Notify(q) }

// Wait performs the scheduler bookkeeping (which may no-op under the
// fail-fast protocol) and, only if t actually became a waiter, performs
// the goroutine handoff: schedule the next task, hand it the resume
// token, and park t on its own resume channel until it's scheduled
// again.
func (k *Kernel) Wait(q *waitQueue, t *TCB, seen uint32) bool {
	if !k.core.Wait(q, t, seen) {
		return false
	}
	k.dispatch(t, true)
	return true
}

// --- Task lifecycle ------------------------------------------------------

// Spawn registers t with the scheduler and launches its backing
// goroutine, which blocks until t is first scheduled. Fails (per
// spec.md §4.1/§7) if MAX_TASKS has already been reached.
func (k *Kernel) Spawn(t *TCB) error {
	if !k.core.AddTask(t) {
		return &KernelError{Message: "kernel: Spawn: MAX_TASKS exceeded"}
	}
	go func() {
		<-t.resume
		k.current.Store(t)
		t.fn(t.arg)
		k.core.ExitTask(t)
		k.dispatch(t, false)
	}()
	return nil
}

// CurrentTCB returns the task currently holding the CPU.
func (k *Kernel) CurrentTCB() *TCB { return k.current.Load() }

// ElapsedTicks returns the monotonic tick count (wraps at 32 bits).
func (k *Kernel) ElapsedTicks() uint32 { return k.ticks.Load() }

// Yield voluntarily relinquishes the CPU, triggering a round-robin
// advance among equal-priority runnable tasks.
func (k *Kernel) Yield(t *TCB) { k.dispatch(t, true) }

// Sleep removes t from its ring, inserts it into the sleep heap keyed on
// the current tick plus d (rounded up to whole ticks, and asserted
// within MaxSleepTicks per spec.md §3), and parks it until woken.
func (k *Kernel) Sleep(t *TCB, d time.Duration) {
	n := d / k.cfg.TickPeriod
	if d%k.cfg.TickPeriod != 0 {
		n++
	}
	assertf(n >= 1 && n <= MaxSleepTicks, "kernel: Sleep: duration %v out of range", d)
	if n < 1 {
		n = 1
	}
	now := k.ElapsedTicks()
	wake := now + uint32(n)
	k.core.Sleep(t, wake, now)
	k.dispatch(t, true)
}

// Start launches the tick source and idle task, then performs the first
// scheduling decision and hands off the CPU. Per spec.md §6, Start never
// returns on real hardware; this port blocks until Shutdown is called,
// which exists purely so hosted tests can terminate cleanly.
func (k *Kernel) Start() {
	assertf(!k.started.Swap(true), "kernel: Start: kernel already started")

	k.startTicker()

	go func() {
		<-k.idle.resume
		k.current.Store(k.idle)
		k.idle.fn(k.idle.arg)
	}()

	next := k.core.Schedule(k.ElapsedTicks())
	k.current.Store(next)
	next.resume <- struct{}{}

	<-k.haltCh
}

// Shutdown stops the tick source and unblocks Start. It has no
// equivalent in the original (OS_start never returns on real hardware);
// it exists only so this module's test suite can tear a kernel down.
func (k *Kernel) Shutdown() {
	k.haltOne.Do(func() { close(k.haltCh) })
}

// dispatch performs one scheduling decision: it picks the next task to
// run, hands it the resume token, and — if parkSelf is set — blocks self
// on its own resume channel until it is scheduled again. This is the
// module's entire "context switch" substitution (SPEC_FULL.md §0).
func (k *Kernel) dispatch(self *TCB, parkSelf bool) {
	next := k.core.Schedule(k.ElapsedTicks())
	k.current.Store(next)
	if next != self {
		next.resume <- struct{}{}
		if parkSelf {
			<-self.resume
			k.current.Store(self)
		}
	}
}

// idleBody is the kernel's own idle task: every tick period, it checks
// whether anything else has become runnable (including sleepers whose
// wake-tick has passed) and yields to it. This is the hosted substitute
// for a hardware "wait for interrupt" — note this module's documented
// limitation that a busy-looping user task (one that never calls a
// kernel API) cannot be asynchronously preempted by Go's scheduler; see
// DESIGN.md.
func (k *Kernel) idleBody(any) {
	for {
		time.Sleep(k.cfg.TickPeriod)
		k.dispatch(k.idle, true)
	}
}

func (k *Kernel) startTicker() {
	ticker := time.NewTicker(k.cfg.TickPeriod)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				k.ticks.Add(1)
			case <-k.haltCh:
				return
			}
		}
	}()
}

// Config returns the kernel's compile-time parameters.
func (k *Kernel) Config() Config { return k.cfg }
