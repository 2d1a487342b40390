package linkedengine

import (
	"time"

	"github.com/latchkey-labs/rootref/host"
)

// scan is the callback Setup registers with the host runtime, following
// original_source/boxroot/dll_boxroot.c's scan_roots: a minor collection
// walks only the young ring, forwarding every element unconditionally, then
// splices the whole young ring onto the tail of the old ring in O(1); a
// major collection walks both rings unconditionally and additionally drains
// the free-element cache, releasing elements that have sat unused since the
// last major collection back to the Go allocator (spec.md §4.3's "major
// collections also drain the free-element cache").
func (e *Engine) scan(action host.ScanAction, onlyYoung bool, opaque any) {
	start := timeNow()

	e.lock()
	defer e.unlock()

	var kind host.CollectionKind
	if e.rt.IsMinorCollection() {
		kind = host.MinorCollection
		e.scanMinor(action)
	} else {
		kind = host.MajorCollection
		e.scanMajor(action)
	}

	e.timing.Record(kind, timeSince(start))
}

// scanMinor implements spec.md §4.3's minor scan: walk the young ring,
// forwarding every element's payload through action unconditionally — this
// variant keeps no remembered set and no bitmap-style address-range
// shortcut (spec.md §4.2's nursery-range filter is specific to the bitmap
// variant), so a minor collection here, like
// original_source/boxroot/dll_boxroot.c's scan_ring, visits the whole young
// ring every time — then marks the whole ring old and splices it onto the
// tail of the old ring.
func (e *Engine) scanMinor(action host.ScanAction) {
	visited := 0

	ringEach(e.young, func(el *element) bool {
		el.word = action(el.word)
		visited++
		el.isYoung = false
		return true
	})

	e.stats.SlotVisits = visited
	e.stats.UsefulScanWork = visited

	ringConcatBack(&e.old, &e.young)
}

// scanMajor implements spec.md §4.3's major scan: walk both rings,
// forwarding every element's payload unconditionally, then drain the
// free-element cache so elements that have sat unused since the previous
// major collection do not pin memory forever. Every element is detached
// from the free ring during the drain; nothing is left for the engine to
// reuse until the next Delete/Modify release replenishes it.
func (e *Engine) scanMajor(action host.ScanAction) {
	visited := 0
	visit := func(el *element) bool {
		el.word = action(el.word)
		visited++
		return true
	}
	ringEach(e.young, visit)
	ringEach(e.old, visit)

	e.stats.SlotVisits = visited
	e.stats.UsefulScanWork = visited

	e.free = nil
}

func timeNow() time.Time                 { return time.Now() }
func timeSince(t time.Time) time.Duration { return time.Since(t) }
