package kernel

// Queue is the bounded IPC ring buffer of spec.md §3/§4.6 (component
// C8): copy-in/copy-out gated by two semaphores (readable-item tokens
// and free-slot tokens) plus a mutex. The original's item_size/memcpy
// byte-copy exists to tolerate unaligned C struct addresses; a Go
// generic slice of T gives the same copy-in/copy-out semantics through
// plain assignment, with no alignment concern to work around — grounded
// on the generic ring-buffer shape in the pack's go-catrate/ring.go,
// adapted here to carry semaphore/mutex gating instead of catrate's
// lock-free index arithmetic.
type Queue[T any] struct {
	sched SchedulerVTable
	mu    *Mutex
	semR  *Semaphore // tokens = readable items
	semW  *Semaphore // tokens = free slots
	buf   []T
	head  int // write cursor
	tail  int // read cursor
}

// NewQueue constructs a bounded queue of the given capacity (the ring
// buffer's slot count; spec.md's "length").
func NewQueue[T any](sched SchedulerVTable, capacity int) *Queue[T] {
	assertf(capacity > 0, "kernel: NewQueue: capacity must be positive")
	semR, err := NewSemaphoreCounting(sched, 0, uint32(capacity))
	assertf(err == nil, "kernel: NewQueue: %v", err)
	semW, err := NewSemaphoreCounting(sched, uint32(capacity), uint32(capacity))
	assertf(err == nil, "kernel: NewQueue: %v", err)
	return &Queue[T]{
		sched: sched,
		mu:    NewMutex(sched),
		semR:  semR,
		semW:  semW,
		buf:   make([]T, capacity),
	}
}

// Enqueue copies item into the ring, blocking the calling task t until a
// slot is free. The readable-token is given before the mutex is
// released — deliberately, per spec.md §4.6, so that any task waiting on
// the mutex is favored over one merely waiting for data to arrive.
func (q *Queue[T]) Enqueue(t *TCB, item T) {
	q.semW.Take(t)
	q.mu.Acquire(t)
	q.buf[q.head] = item
	q.head = (q.head + 1) % len(q.buf)
	q.semR.Give(t)
	q.mu.Release(t)
}

// Dequeue blocks the calling task t until an item is available, then
// copies it out in FIFO order. The free-slot token is given before the
// mutex is released, for the same ordering reason as Enqueue.
func (q *Queue[T]) Dequeue(t *TCB) T {
	q.semR.Take(t)
	q.mu.Acquire(t)
	item := q.buf[q.tail]
	var zero T
	q.buf[q.tail] = zero // drop the reference so the GC can reclaim it
	q.tail = (q.tail + 1) % len(q.buf)
	q.semW.Give(t)
	q.mu.Release(t)
	return item
}

// Len returns the number of readable items currently queued, for tests.
func (q *Queue[T]) Len() int { return int(q.semR.Tokens()) }

// Cap returns the queue's slot capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }
