package bitmapengine

// Doubly linked circular lists of chunks, the Go equivalent of
// original_source/boxroot/bitmap_boxroot.c's ring_push_front/ring_pop. A nil
// head denotes an empty ring.

func ringPushFront(head **chunk, c *chunk) {
	if *head == nil {
		c.prev, c.next = c, c
		*head = c
		return
	}
	first := *head
	last := first.prev
	c.prev = last
	c.next = first
	last.next = c
	first.prev = c
	*head = c
}

// ringPushBack inserts c at the tail of the ring rooted at head, used by
// reclassify to move a chunk that just became full behind every non-full
// chunk already in the ring. The wholesale young-to-old migration after a
// minor collection uses ringConcatBack instead.
func ringPushBack(head **chunk, c *chunk) {
	if *head == nil {
		c.prev, c.next = c, c
		*head = c
		return
	}
	first := *head
	last := first.prev
	c.prev = last
	c.next = first
	last.next = c
	first.prev = c
}

func ringRemove(head **chunk, c *chunk) {
	if c.next == c {
		*head = nil
	} else {
		c.prev.next = c.next
		c.next.prev = c.prev
		if *head == c {
			*head = c.next
		}
	}
	c.prev, c.next = nil, nil
}

func ringEach(head *chunk, fn func(c *chunk) bool) {
	if head == nil {
		return
	}
	c := head
	for {
		if !fn(c) {
			return
		}
		c = c.next
		if c == head {
			return
		}
	}
}

func ringCount(head *chunk) int {
	n := 0
	ringEach(head, func(*chunk) bool { n++; return true })
	return n
}

// ringConcatBack splices every chunk in src onto the tail of dst, leaving
// src empty, used to migrate the entire young ring into old after a minor
// collection in O(1).
func ringConcatBack(dst **chunk, src **chunk) {
	if *src == nil {
		return
	}
	if *dst == nil {
		*dst = *src
		*src = nil
		return
	}
	dstFirst := *dst
	dstLast := dstFirst.prev
	srcFirst := *src
	srcLast := srcFirst.prev

	dstLast.next = srcFirst
	srcFirst.prev = dstLast
	srcLast.next = dstFirst
	dstFirst.prev = srcLast

	*src = nil
}
