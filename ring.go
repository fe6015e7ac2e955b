package kernel

// ring.go implements the per-priority circular doubly-linked run list
// described in spec.md §3/§4.1 (component C2's sibling structure, owned
// by the scheduler). head == nil iff the ring is empty; when non-empty,
// head.next is the task that will run next.

// ringInsert inserts t into the ring rooted at head, returning the
// (possibly new) head. A brand-new ring is headed by t pointing at
// itself; otherwise t is spliced in immediately after head, preserving
// the invariant that head.next is always the next task to run.
func ringInsert(head *TCB, t *TCB) *TCB {
	if head == nil {
		t.next = t
		t.prev = t
		return t
	}
	t.next = head.next
	t.prev = head
	head.next.prev = t
	head.next = t
	return head
}

// ringRemove removes t from the ring rooted at head, returning the new
// head. A singleton ring becomes empty (nil). Otherwise t is spliced out
// and the head is set to t's former predecessor, so that the next
// schedule() call advances to t's natural successor.
func ringRemove(head *TCB, t *TCB) *TCB {
	if t.next == t {
		t.prev = nil
		t.next = nil
		return nil
	}
	oldPrev, oldNext := t.prev, t.next
	oldPrev.next = oldNext
	oldNext.prev = oldPrev
	t.prev = nil
	t.next = nil
	return oldPrev
}

// ringLen counts the members of the ring rooted at head. It exists for
// tests and assertions only; the scheduler itself never needs ring
// length on the hot path.
func ringLen(head *TCB) int {
	if head == nil {
		return 0
	}
	n := 1
	for cur := head.next; cur != head; cur = cur.next {
		n++
	}
	return n
}
