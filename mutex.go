package kernel

import "sync/atomic"

// Mutex is the recursive mutual-exclusion primitive of spec.md §3/§4.4
// (component C6): an LL/SC-guarded owner word plus a wait queue. The
// owner word uses atomic.Pointer[TCB], whose CompareAndSwap gives the
// same single-core LL/SC contract as llWord (fail on concurrent write)
// for a pointer-sized word instead of a 32-bit count.
type Mutex struct {
	owner   atomic.Pointer[TCB]
	counter atomic.Int32 // recursion depth; counter > 0 iff owner != nil
	wq      waitQueue
	sched   SchedulerVTable
}

// NewMutex constructs a free recursive mutex scheduled by sched.
func NewMutex(sched SchedulerVTable) *Mutex {
	assertf(sched != nil, "kernel: NewMutex: nil scheduler")
	return &Mutex{sched: sched}
}

// Acquire blocks the calling task t until it holds m, per spec.md §4.4:
// snapshot the fast-fail counter, attempt an exclusive store of t into
// the owner word, recognize recursive re-entry by the current owner, and
// otherwise wait and retry.
func (m *Mutex) Acquire(t *TCB) {
	for {
		seen := m.sched.FastFailSnapshot()
		owner := m.owner.Load()
		if owner == nil {
			if m.owner.CompareAndSwap(nil, t) {
				memoryBarrier()
				break
			}
			continue
		}
		if owner == t {
			break
		}
		m.sched.Wait(&m.wq, t, seen)
	}
	m.counter.Add(1)
}

// Release decrements the recursion count and, once it reaches zero,
// clears ownership and notifies the wait queue. Release by a task t that
// does not currently own m is an assertion failure, and otherwise (in
// release mode) leaves m unchanged. The original documents a benign race here: a
// non-waiting task may acquire between the owner clear and the notify,
// in which case the notified waiter simply waits again on its next
// attempt (spec.md §4.4) — this port preserves that race rather than
// closing it, since closing it would require holding the owner lock
// across the notify, which is exactly the extra contention the original
// avoids.
func (m *Mutex) Release(t *TCB) {
	if m.owner.Load() != t {
		assertf(false, "kernel: Mutex.Release: %s does not own this mutex", t.Name)
		return
	}
	memoryBarrier()
	remaining := m.counter.Add(-1)
	if remaining == 0 {
		m.owner.Store(nil)
		m.sched.Notify(&m.wq)
	}
}

// Owner returns the current owner, or nil if the mutex is free. For
// tests and observability only.
func (m *Mutex) Owner() *TCB { return m.owner.Load() }

// RecursionDepth returns the current recursion count. For tests only.
func (m *Mutex) RecursionDepth() int32 { return m.counter.Load() }
