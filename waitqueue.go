package kernel

// waitqueue.go implements the per-resource wait queue (spec.md §3/§4.3,
// component C2): a singly-linked list sorted by priority descending,
// FIFO among equal priorities. Extraction is always the highest-
// priority, earliest-arrived waiter.

// waitQueueInsert inserts t into the queue rooted at head, returning the
// new head. A strict '>' in the prepend check together with a '>=' walk
// condition together place t after all equal-priority predecessors and
// before the first strictly-lower-priority successor (spec.md §4.3).
func waitQueueInsert(head *TCB, t *TCB) *TCB {
	t.next = nil
	if head == nil {
		return t
	}
	if t.priority > head.priority {
		t.next = head
		return t
	}
	cursor := head
	for cursor.next != nil && cursor.next.priority >= t.priority {
		cursor = cursor.next
	}
	t.next = cursor.next
	cursor.next = t
	return head
}

// waitQueueExtract pops and returns the head of the queue rooted at head
// (the highest-priority, earliest-arrived waiter), along with the new
// head. Returns (nil, head) if the queue is empty.
func waitQueueExtract(head *TCB) (*TCB, *TCB) {
	if head == nil {
		return nil, nil
	}
	t := head
	newHead := head.next
	t.next = nil
	return t, newHead
}

// waitQueueLen counts the members of the queue rooted at head, for
// tests and assertions.
func waitQueueLen(head *TCB) int {
	n := 0
	for cur := head; cur != nil; cur = cur.next {
		n++
	}
	return n
}
