package kernel

// Semaphore is the counting/binary/unbounded semaphore of spec.md
// §3/§4.5 (component C7): an LL/SC-guarded token count plus a wait
// queue. maxTokens == 0 means unbounded (Give never blocks).
type Semaphore struct {
	tokens    llWord
	maxTokens uint32
	wq        waitQueue
	sched     SchedulerVTable
}

// NewSemaphoreCounting constructs a counting semaphore. Per spec.md §9's
// resolution of the binary-semaphore open question, an out-of-range
// initial token count is rejected at construction time rather than
// silently clamped (which the original only did in debug builds, and
// never in release, "potentially violating the invariant").
func NewSemaphoreCounting(sched SchedulerVTable, initTokens, maxTokens uint32) (*Semaphore, error) {
	assertf(sched != nil, "kernel: NewSemaphoreCounting: nil scheduler")
	if maxTokens > 0 && initTokens > maxTokens {
		return nil, &KernelError{Message: "kernel: NewSemaphoreCounting: initTokens exceeds maxTokens"}
	}
	s := &Semaphore{maxTokens: maxTokens, sched: sched}
	s.tokens.store(initTokens)
	return s, nil
}

// NewSemaphoreBinary constructs a binary semaphore (maxTokens == 1).
// initTokens must be 0 or 1.
func NewSemaphoreBinary(sched SchedulerVTable, initTokens uint32) (*Semaphore, error) {
	if initTokens > 1 {
		return nil, &KernelError{Message: "kernel: NewSemaphoreBinary: initTokens must be 0 or 1"}
	}
	return NewSemaphoreCounting(sched, initTokens, 1)
}

// NewSemaphoreUnbounded constructs a semaphore with no upper bound; Give
// never blocks and overflow is the caller's concern (spec.md §4.5).
func NewSemaphoreUnbounded(sched SchedulerVTable, initTokens uint32) *Semaphore {
	s, err := NewSemaphoreCounting(sched, initTokens, 0)
	assertf(err == nil, "kernel: NewSemaphoreUnbounded: %v", err)
	return s
}

// Take blocks the calling task t until a token is available, then
// consumes one. On success it notifies the wait queue in case a
// concurrent Give is blocked on "full" (spec.md §4.5).
func (s *Semaphore) Take(t *TCB) {
	for {
		seen := s.sched.FastFailSnapshot()
		tok := s.tokens.llLoad()
		if tok > 0 {
			if s.tokens.scStore(tok, tok-1) {
				s.sched.Notify(&s.wq)
				return
			}
			continue
		}
		s.sched.Wait(&s.wq, t, seen)
	}
}

// Give blocks the calling task t until a token slot is free (bounded
// semaphores only; unbounded semaphores never block here), then adds
// one token and notifies the wait queue.
func (s *Semaphore) Give(t *TCB) {
	for {
		seen := s.sched.FastFailSnapshot()
		tok := s.tokens.llLoad()
		if s.maxTokens == 0 || tok < s.maxTokens {
			if s.tokens.scStore(tok, tok+1) {
				s.sched.Notify(&s.wq)
				return
			}
			continue
		}
		s.sched.Wait(&s.wq, t, seen)
	}
}

// Tokens returns the current token count, for tests and observability.
func (s *Semaphore) Tokens() uint32 { return s.tokens.llLoad() }

// MaxTokens returns the configured ceiling (0 == unbounded).
func (s *Semaphore) MaxTokens() uint32 { return s.maxTokens }
