package kernel

import "testing"

func TestMemPoolAllFreeAtConstruction(t *testing.T) {
	s := testScheduler(t, Config{})
	p := NewMemPool[int](s, 4)
	if p.FreeCount() != 4 {
		t.Fatalf("FreeCount() = %d, want 4", p.FreeCount())
	}
	if p.Capacity() != 4 {
		t.Fatalf("Capacity() = %d, want 4", p.Capacity())
	}
}

func TestMemPoolEmptyStartsWithNoFreeBlocks(t *testing.T) {
	s := testScheduler(t, Config{})
	p := NewMemPoolEmpty[int](s, 3)
	if p.FreeCount() != 0 {
		t.Fatalf("FreeCount() = %d, want 0", p.FreeCount())
	}
}

func TestMemPoolAllocFreeLIFOReuse(t *testing.T) {
	s := testScheduler(t, Config{})
	p := NewMemPool[int](s, 3)
	task := newTestTCB("task", 1)
	s.AddTask(task)

	a := p.Alloc(task)
	*p.Block(a) = 42
	if p.FreeCount() != 2 {
		t.Fatalf("FreeCount() after one Alloc = %d, want 2", p.FreeCount())
	}

	p.Free(task, a)
	if p.FreeCount() != 3 {
		t.Fatalf("FreeCount() after Free = %d, want 3", p.FreeCount())
	}

	b := p.Alloc(task)
	if b != a {
		t.Fatalf("Alloc() after Free = %d, want LIFO reuse of %d", b, a)
	}
}

func TestMemPoolExhaustionTracksAllBlocks(t *testing.T) {
	s := testScheduler(t, Config{})
	p := NewMemPool[int](s, 2)
	task := newTestTCB("task", 1)
	s.AddTask(task)

	idx := map[int]bool{}
	idx[p.Alloc(task)] = true
	idx[p.Alloc(task)] = true
	if len(idx) != 2 {
		t.Fatalf("expected two distinct block indices, got %v", idx)
	}
	if p.FreeCount() != 0 {
		t.Fatalf("FreeCount() = %d, want 0 once fully allocated", p.FreeCount())
	}
}
