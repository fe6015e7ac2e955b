package kernel

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// Watermark tracks the minimum and maximum of a stream of observed
// values. It backs the scheduler's high-water-mark observability hooks
// (live task count, sleep-heap depth) — the supplemented procedural
// observability SPEC_FULL.md adds on top of spec.md's original scope.
// Grounded on the generic constraints usage in the pack's
// catrate/ring.go, adapted from a ring buffer's element-ordering
// constraint to a running min/max tracker.
type Watermark[T constraints.Ordered] struct {
	mu  sync.Mutex
	min T
	max T
	has bool
}

// Observe folds v into the tracked range.
func (w *Watermark[T]) Observe(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.has {
		w.min, w.max, w.has = v, v, true
		return
	}
	if v < w.min {
		w.min = v
	}
	if v > w.max {
		w.max = v
	}
}

// Max returns the largest observed value, or the zero value if nothing
// has been observed yet.
func (w *Watermark[T]) Max() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.max
}

// Min returns the smallest observed value, or the zero value if nothing
// has been observed yet.
func (w *Watermark[T]) Min() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.min
}
