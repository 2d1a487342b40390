package bitmapengine

import (
	"time"

	"github.com/latchkey-labs/rootref/host"
)

// scan is the callback Setup registers with the host runtime, following
// original_source/boxroot/bitmap_boxroot.c's scan_roots: on a minor
// collection, scan only the young ring with a fast nursery-range check,
// then migrate the whole young ring onto the tail of the old ring in O(1)
// and mark it old (spec.md §4.2, "Scan"/"Generational policy"); on a major
// collection, scan both rings unconditionally.
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

// scanMinor implements spec.md §4.2's minor scan: walk the young ring,
// forwarding every full cell whose payload is a block pointer (spec.md §3's
// immediate/block-pointer distinction — an immediate tagged integer can
// numerically collide with the nursery's address range, so it must be
// excluded before the range check runs, matching
// original_source/boxroot/bitmap_boxroot.c's scan_ring_young guard of
// `BXR_LIKELY(Is_block(v))`) whose address falls within the runtime's
// nursery range, then splice the entire young ring onto old.
func (e *Engine) scanMinor(action host.ScanAction) {
	start, end := e.rt.NurseryRange()
	visited := 0

	ringEach(e.young, func(c *chunk) bool {
		free := c.free.Load()
		for i := 0; i < chunkSize; i++ {
			if free&(uint64(1)<<uint(i)) != 0 {
				continue // bit set means free
			}
			cell := &c.cells[i]
			if e.rt.IsImmediate(cell.word) {
				continue
			}
			addr := uintptr(host.WithoutTag(cell.word))
			if addr >= start && addr < end {
				cell.word = action(cell.word)
				visited++
			}
		}
		c.isYoung = false
		return true
	})

	e.stats.SlotVisits = visited
	e.stats.UsefulScanWork = visited
	ringConcatBack(&e.old, &e.young)
}

// scanMajor implements spec.md §4.2's major scan: walk both rings,
// forwarding every full cell's payload unconditionally.
func (e *Engine) scanMajor(action host.ScanAction) {
	visited := 0
	visit := func(c *chunk) bool {
		free := c.free.Load()
		for i := 0; i < chunkSize; i++ {
			if free&(uint64(1)<<uint(i)) != 0 {
				continue
			}
			cell := &c.cells[i]
			cell.word = action(cell.word)
			visited++
		}
		return true
	}
	ringEach(e.young, visit)
	ringEach(e.old, visit)

	e.stats.SlotVisits = visited
	e.stats.UsefulScanWork = visited
}

func timeNow() time.Time                { return time.Now() }
func timeSince(t time.Time) time.Duration { return time.Since(t) }
