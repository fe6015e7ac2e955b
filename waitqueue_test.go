package kernel

import "testing"

func TestWaitQueueInsertEmpty(t *testing.T) {
	a := newTestTCB("a", 2)
	head := waitQueueInsert(nil, a)
	if head != a {
		t.Fatalf("expected head == a")
	}
	if waitQueueLen(head) != 1 {
		t.Fatalf("waitQueueLen = %d, want 1", waitQueueLen(head))
	}
}

func TestWaitQueueOrdersByPriorityDescending(t *testing.T) {
	low := newTestTCB("low", 1)
	high := newTestTCB("high", 3)
	mid := newTestTCB("mid", 2)

	var head *TCB
	head = waitQueueInsert(head, low)
	head = waitQueueInsert(head, high)
	head = waitQueueInsert(head, mid)

	if head != high {
		t.Fatalf("head = %s, want high", head.Name)
	}
	if head.next != mid {
		t.Fatalf("second = %s, want mid", head.next.Name)
	}
	if head.next.next != low {
		t.Fatalf("third = %s, want low", head.next.next.Name)
	}
}

func TestWaitQueueFIFOAmongEqualPriority(t *testing.T) {
	first := newTestTCB("first", 2)
	second := newTestTCB("second", 2)
	third := newTestTCB("third", 2)

	var head *TCB
	head = waitQueueInsert(head, first)
	head = waitQueueInsert(head, second)
	head = waitQueueInsert(head, third)

	order := []string{}
	for cur := head; cur != nil; cur = cur.next {
		order = append(order, cur.Name)
	}
	want := []string{"first", "second", "third"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestWaitQueueExtractPopsHead(t *testing.T) {
	a := newTestTCB("a", 3)
	b := newTestTCB("b", 1)
	var head *TCB
	head = waitQueueInsert(head, a)
	head = waitQueueInsert(head, b)

	popped, newHead := waitQueueExtract(head)
	if popped != a {
		t.Fatalf("popped = %v, want a", popped)
	}
	if newHead != b {
		t.Fatalf("newHead = %v, want b", newHead)
	}
	if popped.next != nil {
		t.Fatalf("extracted node should have nil next")
	}
}

func TestWaitQueueExtractEmpty(t *testing.T) {
	popped, newHead := waitQueueExtract(nil)
	if popped != nil || newHead != nil {
		t.Fatalf("expected (nil, nil) from empty queue, got (%v, %v)", popped, newHead)
	}
}
