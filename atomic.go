package kernel

import "sync/atomic"

// llWord is the Go stand-in for the original's load-linked/store-
// conditional word: every contended resource (mutex owner, semaphore
// token count) is updated through it instead of under a lock. The single-
// core LL/SC contract ("the store fails if any context switch occurred
// between paired load and store") is given by atomic.CompareAndSwap,
// which fails if any other goroutine updated the word first — the same
// failure-on-concurrent-write guarantee, without needing a real exclusive
// monitor. Grounded on the CAS-only state machine in the teacher's
// eventloop/state.go (FastState.TryTransition).
type llWord struct {
	v atomic.Uint32
}

// llLoad is the exclusive-load half of an LL/SC pair.
func (w *llWord) llLoad() uint32 { return w.v.Load() }

// scStore is the store-conditional half of an LL/SC pair: it succeeds
// only if the word still holds old.
func (w *llWord) scStore(old, new uint32) bool {
	return w.v.CompareAndSwap(old, new)
}

func (w *llWord) store(val uint32) { w.v.Store(val) }

// memoryBarrier is a documented no-op placeholder for the original's
// memory_barrier() porting-layer call: Go's atomic package already gives
// sequential consistency for the operations this kernel performs on
// llWord, so there is nothing additional to fence here. It's kept as a
// named call so the mutex/semaphore acquire/release sequences read the
// same as spec.md §4.4/§4.5 describe them.
func memoryBarrier() {}
