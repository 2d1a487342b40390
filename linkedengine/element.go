package linkedengine

import "github.com/latchkey-labs/rootref/host"

// element is one heap-allocated cell, carrying its own ring links: the
// baseline variant's unit of tracking, mirroring
// original_source/boxroot/dll_boxroot.c's `struct elem`. Unlike pool and
// chunk slots, an element needs no owner back-reference — a handle already
// *is* the element it names, so Delete and Modify can unlink and relink it
// directly.
type element struct {
	prev, next *element
	word       host.Word
	// isYoung records which ring currently owns this element. The young
	// ring's content is not exactly "payloads that are currently nursery
	// pointers" — after a collection promotes a payload in place, the
	// element stays in the young ring structurally until the next minor
	// collection splices the whole ring into old — so ring membership must
	// be tracked explicitly rather than re-derived from the payload.
	isYoung bool
	// inFreeCache marks an element currently sitting in the free-element
	// cache (spec.md §4.3's "free-element cache"), distinguishing it from a
	// live tracked element so Delete and Validate can tell the two apart.
	inFreeCache bool
}
