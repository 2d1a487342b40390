package poolengine

import (
	"time"

	"github.com/latchkey-labs/rootref/host"
)

// scan is the callback Setup registers with the host runtime (spec.md §4.4
// "Scan dispatcher"). It is invoked once per collection, stop-the-world, so
// it is safe to read and mutate every pool without additional
// synchronization beyond the engine's own mutex (held for the whole call,
// matching spec.md §5: "Handle create / delete / modify acquire the lock
// only across the pool-structure-touching portion... the scan callback [is
// guarded] in its entirety").
func (e *Engine) scan(action host.ScanAction, onlyYoung bool, opaque any) {
	start := timeNow()

	e.lock()
	defer e.unlock()

	var kind host.CollectionKind
	if e.rt.IsMinorCollection() {
		kind = host.MinorCollection
		if e.cfg.Generational {
			e.scanMinor()
		} else {
			// Config.Generational is off: isNursery never reports a payload
			// as nursery-resident, so no slot was ever added to the
			// remembered set and the minor free-list splice below would
			// silently skip every live nursery pointer. Fall back to a full
			// major-style scan, matching this field's doc comment.
			e.stats.UsefulScanWork = e.scanMajor(action)
		}
	} else {
		kind = host.MajorCollection
		e.stats.UsefulScanWork = e.scanMajor(action)
	}

	e.timing.Record(kind, timeSince(start))
}

// scanMinor implements spec.md §4.1's minor scan callback: it never visits
// a slot directly. Every pool's minor free list — slots that were released
// before the nursery payload they last held was promoted — is spliced onto
// the head of the major free list, and the count of slots this callback
// itself visited is recorded as zero, which is exactly the generational
// fast-path guarantee spec.md §8 scenario S4 checks.
func (e *Engine) scanMinor() {
	e.stats.SlotVisits = 0
	e.stats.UsefulScanWork = 0
	splice := func(p *pool) bool {
		p.spliceMinorIntoMajor()
		return true
	}
	ringEach(e.nonFull, splice)
	ringEach(e.full, splice)
}

// scanMajor implements spec.md §4.1's major scan callback: walk every pool
// in both rings in address order, forwarding every full slot's payload
// through action, and using allocCount as an early-exit counter so a pool
// with free slots scattered after all its full ones doesn't pay to visit
// them. It returns the number of full slots visited, for spec.md §8
// scenario S5's useful_scanning_work assertion.
func (e *Engine) scanMajor(action host.ScanAction) int {
	visited := 0
	visit := func(p *pool) bool {
		remaining := p.allocCount
		for i := 0; i < len(p.slots) && remaining > 0; i++ {
			s := &p.slots[i]
			if s.free {
				continue
			}
			s.word = action(s.word)
			remaining--
			visited++
		}
		return true
	}
	ringEach(e.nonFull, visit)
	ringEach(e.full, visit)

	e.stats.SlotVisits = visited
	e.reclaimEmptyPools()
	return visited
}

// reclaimEmptyPools implements spec.md §3's lifecycle rule: after every
// major scan, release empty pools from the non-full ring except the number
// configured by Config.RetainedEmptyPools, to avoid allocator churn. The
// full ring is skipped — its pools are, by definition, not empty.
func (e *Engine) reclaimEmptyPools() {
	kept := 0
	p := e.nonFull
	for p != nil {
		next := p.next
		atEnd := next == e.nonFull
		if p.isEmpty() {
			if kept < e.cfg.RetainedEmptyPools {
				kept++
			} else {
				ringRemove(&e.nonFull, p)
				_ = e.rt.FreeAligned(p.region)
			}
		}
		if atEnd {
			break
		}
		p = next
	}
}

// timeNow/timeSince are indirections over time.Now so scan timing stays
// pure Go stdlib (time.Duration), matching host.ScanTiming's units.
func timeNow() time.Time        { return time.Now() }
func timeSince(t time.Time) time.Duration { return time.Since(t) }
