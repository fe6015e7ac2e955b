package kernel

// MemPool is the fixed-block memory pool of spec.md §3/§4.7 (component
// C9): a free list gated by a mutex and a counting semaphore, LIFO reuse
// of freed blocks. The original stores the free list intrusively inside
// each free block's first machine word; that's unsafe (and pointless) in
// Go, where every block already has a type-safe slot in storage. This
// port keeps the same LIFO free-list discipline using a parallel
// nextFree index array instead of aliasing block memory — the safe Go
// equivalent of "each free block's first word points to the next free
// block."
type MemPool[T any] struct {
	sched SchedulerVTable
	mu    *Mutex
	sem   *Semaphore

	storage  []T
	nextFree []int // nextFree[i]: index of the next free block after i, or -1
	freeHead int    // index of the most recently freed block, or -1
}

// NewMemPool constructs a pool of n blocks of type T, all initially
// free — the original's "mem != nil" init path, which steps through the
// backing buffer and deallocates each block directly without
// mutex/semaphore traffic, since init runs single-threaded (spec.md
// §4.7).
func NewMemPool[T any](sched SchedulerVTable, n int) *MemPool[T] {
	assertf(n > 0, "kernel: NewMemPool: n must be positive")
	p := &MemPool[T]{
		sched:    sched,
		mu:       NewMutex(sched),
		storage:  make([]T, n),
		nextFree: make([]int, n),
		freeHead: -1,
	}
	sem, err := NewSemaphoreCounting(sched, uint32(n), uint32(n))
	assertf(err == nil, "kernel: NewMemPool: %v", err)
	p.sem = sem
	for i := 0; i < n; i++ {
		p.pushFreeDirect(i)
	}
	return p
}

// NewMemPoolEmpty constructs a pool with capacity n but zero free blocks
// — the original's "mem == nil" init path (semaphore ceiling n, tokens
// 0). Blocks become available only as they are returned via Free.
func NewMemPoolEmpty[T any](sched SchedulerVTable, n int) *MemPool[T] {
	assertf(n > 0, "kernel: NewMemPoolEmpty: n must be positive")
	sem, err := NewSemaphoreCounting(sched, 0, uint32(n))
	assertf(err == nil, "kernel: NewMemPoolEmpty: %v", err)
	return &MemPool[T]{
		sched:    sched,
		mu:       NewMutex(sched),
		sem:      sem,
		storage:  make([]T, n),
		nextFree: make([]int, n),
		freeHead: -1,
	}
}

func (p *MemPool[T]) pushFreeDirect(i int) {
	p.nextFree[i] = p.freeHead
	p.freeHead = i
}

// Alloc blocks the calling task t until a block is free, then removes it
// from the free list and returns its index. The block's contents are
// unspecified on return, matching the original.
func (p *MemPool[T]) Alloc(t *TCB) int {
	p.sem.Take(t)
	p.mu.Acquire(t)
	idx := p.freeHead
	assertf(idx >= 0, "kernel: MemPool.Alloc: free list empty despite available token")
	p.freeHead = p.nextFree[idx]
	p.mu.Release(t)
	return idx
}

// Block returns a pointer to the storage slot for idx, for reading or
// writing block contents after Alloc or before Free.
func (p *MemPool[T]) Block(idx int) *T { return &p.storage[idx] }

// Free returns block idx to the pool. Double-free and out-of-range
// indices are not detected, matching the original (spec.md §4.7): the
// capacity semaphore only bounds outstanding allocations when
// initialization and capacity agree, which NewMemPool/NewMemPoolEmpty
// guarantee. The free-block token is given before the mutex is released,
// for the same reason as Queue.Enqueue (spec.md §4.7).
func (p *MemPool[T]) Free(t *TCB, idx int) {
	p.mu.Acquire(t)
	p.nextFree[idx] = p.freeHead
	p.freeHead = idx
	p.sem.Give(t)
	p.mu.Release(t)
}

// FreeCount returns the number of free blocks, for tests.
func (p *MemPool[T]) FreeCount() int { return int(p.sem.Tokens()) }

// Capacity returns the pool's total block count.
func (p *MemPool[T]) Capacity() int { return len(p.storage) }
