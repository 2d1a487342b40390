package poolengine

// The non-full and full pool rings (spec.md §3 "Global state", §9 "Cyclic
// intrusive rings") are realized as ordinary doubly linked circular lists
// over *pool, using the prev/next fields each pool carries. A nil head
// denotes an empty ring.

func ringPushFront(head **pool, p *pool) {
	if *head == nil {
		p.prev, p.next = p, p
		*head = p
		return
	}
	first := *head
	last := first.prev
	p.prev = last
	p.next = first
	last.next = p
	first.prev = p
	*head = p
}

func ringRemove(head **pool, p *pool) {
	if p.next == p {
		*head = nil
	} else {
		p.prev.next = p.next
		p.next.prev = p.prev
		if *head == p {
			*head = p.next
		}
	}
	p.prev, p.next = nil, nil
}

// ringEach calls fn once for every pool in the ring rooted at head, in
// ring order, stopping early if fn returns false.
func ringEach(head *pool, fn func(p *pool) bool) {
	if head == nil {
		return
	}
	p := head
	for {
		if !fn(p) {
			return
		}
		p = p.next
		if p == head {
			return
		}
	}
}

// ringCount returns the number of pools in the ring rooted at head.
func ringCount(head *pool) int {
	n := 0
	ringEach(head, func(*pool) bool { n++; return true })
	return n
}
