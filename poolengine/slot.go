package poolengine

import (
	"github.com/latchkey-labs/rootref/host"
	"github.com/latchkey-labs/rootref/memutils"
)

// slot is one cell inside a pool: either full, holding a tracked payload,
// or free, holding a link to the next free slot in its pool's free list.
//
// spec.md §3 describes a "tag-bit trick" that lets a free slot's link
// double as its own discriminator, so that no extra per-cell bookkeeping is
// needed to tell free and full cells apart. That trick depends on
// recovering a slot's owning pool by masking the slot's address against the
// pool's known power-of-two alignment — a property Go's allocator does not
// guarantee for ordinary slice-backed structs. This type instead follows
// the alternative spec.md §9 offers for "a strongly typed reimplementation":
// a tagged variant per cell (free bool distinguishing the two payload
// interpretations) plus an explicit back-reference to the owning pool. The
// free/full invariants spec.md §3 lists are preserved exactly; only how a
// handle's owning pool is recovered changes.
type slot struct {
	owner *pool

	free     bool
	word     host.Word // the payload, valid when !free
	freeNext *slot     // next free slot in owner's free list, valid when free
}

// markFree relinks this slot onto the front of the given free-list head and
// returns the new head. The link itself lives in freeNext; the payload word
// is overwritten with a tagged value (spec.md §3's discriminating low bit)
// so a slot that is accidentally handed to the runtime's scan machinery
// while free still looks like an immediate value.
// memutils.PoisonWord additionally overwrites the word with a recognizable
// corruption marker in debug builds (SPEC_FULL.md's port of the teacher's
// arena.h freed-slot poisoning), so use-after-free of the stale word a
// caller might still hold is detectable by validatePoison; it no-ops in
// production builds, leaving the plain host.WithTag(0) word in place.
func (s *slot) markFree(head *slot) *slot {
	s.free = true
	s.word = host.WithTag(0)
	memutils.PoisonWord(&s.word)
	s.freeNext = head
	return s
}

// markFull installs payload and clears the free discriminator.
func (s *slot) markFull(payload host.Word) {
	s.free = false
	s.word = payload
	s.freeNext = nil
}
