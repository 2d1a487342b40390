package bitmapengine

import (
	"github.com/pkg/errors"

	"github.com/latchkey-labs/rootref/memutils"
)

// Validate performs the consistency checks spec.md §8 requires: bitmap
// consistency (property 9, the total zero-bit count across every chunk
// matches the live allocation counter) and ring classification (every
// young chunk actually carries the isYoung flag, and vice versa), following
// the save/restore-statistics discipline of
// original_source/boxroot/bitmap_boxroot.c's validate_all_rings.
func (e *Engine) Validate() error {
	e.lock()
	defer e.unlock()

	snap := e.stats.snapshot()
	defer e.stats.restore(snap)

	liveCells := 0
	check := func(head *chunk, wantYoung bool) error {
		var err error
		ringEach(head, func(c *chunk) bool {
			if c.isYoung != wantYoung {
				err = errors.Errorf("chunk %p has isYoung=%v but is in the %v ring", c, c.isYoung, wantYoung)
				return false
			}
			free := c.free.Load()
			for i := 0; i < chunkSize; i++ {
				if free&(uint64(1)<<uint(i)) == 0 {
					liveCells++
				}
				if c.cells[i].owner != c {
					err = errors.Errorf("cell %d of chunk %p has a stale owner back-reference", i, c)
					return false
				}
			}
			return true
		})
		return err
	}

	if err := check(e.young, true); err != nil {
		return err
	}
	if err := check(e.old, false); err != nil {
		return err
	}

	if liveCells != e.stats.LiveAllocations {
		return errors.Errorf("bitmap live-cell count %d does not match LiveAllocations %d", liveCells, e.stats.LiveAllocations)
	}
	return nil
}

// validatePoison checks every free cell in both rings still carries the
// corruption marker memutils.PoisonWord wrote on release (SPEC_FULL.md's
// port of the teacher's arena.h freed-slot poisoning). Outside the
// debug_rootref build memutils.ValidatePoisoned always reports true, so
// this is a no-op there.
func (e *Engine) validatePoison() error {
	check := func(head *chunk) error {
		var err error
		ringEach(head, func(c *chunk) bool {
			free := c.free.Load()
			for i := 0; i < chunkSize; i++ {
				if free&(uint64(1)<<uint(i)) != 0 && !memutils.ValidatePoisoned(c.cells[i].word) {
					err = errors.Errorf("cell %d of chunk %p has a free cell whose poison marker was overwritten", i, c)
					return false
				}
			}
			return true
		})
		return err
	}
	if err := check(e.young); err != nil {
		return err
	}
	return check(e.old)
}
