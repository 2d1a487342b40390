package poolengine

import (
	"unsafe"

	"github.com/latchkey-labs/rootref/host"
)

var slotSize = int(unsafe.Sizeof(slot{}))

// pool is a fixed-size collection of slots, the unit spec.md §3 calls a
// "Pool / chunk": "a fixed-size memory region containing a header and an
// array of slot cells". region is that memory, obtained once from
// host.Runtime.AllocAligned; slots is a typed view directly over region's
// bytes (carved out in newPool with unsafe.Slice), not a second, separate
// allocation, so the host-backed region is what Validate's alignment check
// and every scan actually walk — the same relationship bitmapengine.chunk
// has between its cells array and the chunk struct it lives inside, adapted
// here to a region whose size is only known at runtime. Pools form two
// intrusive cyclic rings inside Engine (one of non-full pools, one of full
// pools, spec.md §3 "Global state"); prev and next are that pool's links
// within whichever ring currently owns it.
type pool struct {
	prev, next *pool
	inFullRing bool

	region []byte // the aligned backing region obtained from host.Runtime.AllocAligned
	slots  []slot // a view over region's bytes; see newPool

	allocCount int

	majorFree *slot
	minorFree *slot
	// minorFreeTail is the last slot of the minor free list, kept up to
	// date so the minor scan callback can splice the whole list onto the
	// head of the major list in O(1) (spec.md §3, pool header).
	minorFreeTail *slot
}

// capacityFor returns the number of slots a pool of the configured size
// holds, given that each slot physically lives inside the pool's region.
func capacityFor(cfg Config) int {
	return (1 << cfg.PoolLogSize) / slotSize
}

func newPool(rt host.Runtime, cfg Config) (*pool, error) {
	size := 1 << cfg.PoolLogSize
	region, err := rt.AllocAligned(size)
	if err != nil {
		return nil, err
	}

	p := &pool{region: region}
	capacity := capacityFor(cfg)
	p.slots = unsafe.Slice((*slot)(unsafe.Pointer(&region[0])), capacity)

	var head *slot
	for i := capacity - 1; i >= 0; i-- {
		s := &p.slots[i]
		s.owner = p
		head = s.markFree(head)
	}
	p.majorFree = head
	return p, nil
}

func (p *pool) isFull() bool {
	return p.majorFree == nil && p.minorFree == nil
}

func (p *pool) isEmpty() bool {
	return p.allocCount == 0
}

func (p *pool) capacity() int {
	return len(p.slots)
}

// baseAddr returns the address of the pool's backing region.
func (p *pool) baseAddr() uintptr {
	return uintptr(unsafe.Pointer(&p.region[0]))
}

// belowReturnThreshold reports whether allocCount is below three quarters
// of capacity, the threshold spec.md §3 Lifecycle uses to decide when a
// pool in the full ring moves back to the non-full ring.
func (p *pool) belowReturnThreshold() bool {
	return 4*p.allocCount < 3*p.capacity()
}

// popMajor removes and returns the head of the major free list, or nil if
// it is empty.
func (p *pool) popMajor() *slot {
	s := p.majorFree
	if s == nil {
		return nil
	}
	p.majorFree = s.freeNext
	s.freeNext = nil
	return s
}

// popMinor removes and returns the head of the minor free list, or nil if
// it is empty.
func (p *pool) popMinor() *slot {
	s := p.minorFree
	if s == nil {
		return nil
	}
	p.minorFree = s.freeNext
	if p.minorFree == nil {
		p.minorFreeTail = nil
	}
	s.freeNext = nil
	return s
}

func (p *pool) pushMajor(s *slot) {
	p.majorFree = s.markFree(p.majorFree)
}

func (p *pool) pushMinor(s *slot) {
	s.markFree(p.minorFree)
	p.minorFree = s
	if p.minorFreeTail == nil {
		p.minorFreeTail = s
	}
}

// spliceMinorIntoMajor moves the entire minor free list onto the head of
// the major free list in O(1), using the stored tail pointer, and clears
// the minor list. This is the minor-collection bookkeeping spec.md §4.1
// describes: slots that were allocated with a nursery payload and released
// before that payload was promoted no longer carry a remembered-set
// obligation once the collection completes, so they rejoin general
// circulation.
func (p *pool) spliceMinorIntoMajor() {
	if p.minorFree == nil {
		return
	}
	p.minorFreeTail.freeNext = p.majorFree
	p.majorFree = p.minorFree
	p.minorFree = nil
	p.minorFreeTail = nil
}

// freeListLength counts the slots reachable from both free-list heads, for
// the free-list integrity property (spec.md §8 property 6).
func (p *pool) freeListLength() int {
	n := 0
	for s := p.majorFree; s != nil; s = s.freeNext {
		n++
	}
	for s := p.minorFree; s != nil; s = s.freeNext {
		n++
	}
	return n
}
