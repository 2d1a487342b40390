package linkedengine

// Doubly linked circular lists of elements, the Go equivalent of
// original_source/boxroot/dll_boxroot.c's ring_push_back/ring_pop_elem. A
// nil head denotes an empty ring.

func ringLink(p, q *element) {
	p.next = q
	q.prev = p
}

// ringPushBack inserts the single-element ring rooted at e onto the back of
// the ring rooted at *target.
func ringPushBack(e *element, target **element) {
	if e == nil {
		return
	}
	if *target == nil {
		*target = e
		return
	}
	targetLast := (*target).prev
	ringLink(targetLast, e)
	ringLink(e, *target)
}

// ringPop removes and returns the front element of the ring rooted at
// *target.
func ringPop(target **element) *element {
	front := *target
	if front.next == front {
		*target = nil
	} else {
		*target = front.next
		ringLink(front.prev, front.next)
	}
	ringLink(front, front)
	return front
}

// ringPopElem removes e from whichever ring head it currently roots (young,
// old, or free — whichever *target happens to point at), leaving e as a
// singleton ring of one, and keeps head consistent if e itself was the
// head.
func ringPopElem(e *element, head **element) {
	if e.next == e {
		*head = nil
	} else {
		ringLink(e.prev, e.next)
		if *head == e {
			*head = e.next
		}
	}
	ringLink(e, e)
}

func ringEach(head *element, fn func(e *element) bool) {
	if head == nil {
		return
	}
	e := head
	for {
		if !fn(e) {
			return
		}
		e = e.next
		if e == head {
			return
		}
	}
}

func ringCount(head *element) int {
	n := 0
	ringEach(head, func(*element) bool { n++; return true })
	return n
}

// ringConcatBack splices every element in the ring rooted at *src onto the
// tail of the ring rooted at *dst, leaving *src empty, used to migrate the
// entire young ring into old after a minor collection in O(1) (the
// multi-element equivalent of ringPushBack, which only inserts a single
// element).
func ringConcatBack(dst **element, src **element) {
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

	ringLink(dstLast, srcFirst)
	ringLink(srcLast, dstFirst)

	*src = nil
}
