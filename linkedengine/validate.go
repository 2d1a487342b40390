package linkedengine

import (
	"github.com/pkg/errors"

	"github.com/latchkey-labs/rootref/memutils"
)

// Validate performs the consistency checks spec.md §8 requires for this
// variant: ring classification (every element in the young ring carries
// isYoung, every element in the old ring does not, and nothing in either
// ring is marked inFreeCache) and free-cache integrity (every element in
// the free ring is marked inFreeCache; its payload is checked separately by
// validatePoison),
// following original_source/boxroot/dll_boxroot.c's
// validate_young_ring/validate_old_ring/validate_free_ring, and
// cross-checking the aggregate live count against the statistics counter
// the way poolengine.Validate and bitmapengine.Validate do.
func (e *Engine) Validate() error {
	e.lock()
	defer e.unlock()

	snap := e.stats.snapshot()
	defer e.stats.restore(snap)

	live := 0
	checkTracked := func(head *element, wantYoung bool) error {
		var err error
		ringEach(head, func(el *element) bool {
			if el.isYoung != wantYoung {
				err = errors.Errorf("element %p has isYoung=%v but is in the %v ring", el, el.isYoung, wantYoung)
				return false
			}
			if el.inFreeCache {
				err = errors.Errorf("element %p is tracked but marked inFreeCache", el)
				return false
			}
			live++
			return true
		})
		return err
	}

	if err := checkTracked(e.young, true); err != nil {
		return err
	}
	if err := checkTracked(e.old, false); err != nil {
		return err
	}

	var cacheErr error
	ringEach(e.free, func(el *element) bool {
		if !el.inFreeCache {
			cacheErr = errors.Errorf("element %p is in the free cache but not marked inFreeCache", el)
			return false
		}
		return true
	})
	if cacheErr != nil {
		return cacheErr
	}

	if live != e.stats.LiveAllocations {
		return errors.Errorf("tracked element count %d does not match LiveAllocations %d", live, e.stats.LiveAllocations)
	}
	return nil
}

// validatePoison checks every element in the free cache still carries the
// corruption marker memutils.PoisonWord wrote on release (SPEC_FULL.md's
// port of the teacher's arena.h freed-slot poisoning). Outside the
// debug_rootref build memutils.ValidatePoisoned always reports true, so
// this is a no-op there.
func (e *Engine) validatePoison() error {
	var err error
	ringEach(e.free, func(el *element) bool {
		if !memutils.ValidatePoisoned(el.word) {
			err = errors.Errorf("element %p is in the free cache but its poison marker was overwritten", el)
			return false
		}
		return true
	})
	return err
}
