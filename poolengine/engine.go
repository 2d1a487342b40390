// Package poolengine implements spec.md §4.1, the pool-with-remembered-set
// engine: the primary rooted-reference allocator variant, chosen as the
// module's default (spec.md §9, Open Questions) for its generational fast
// path, which makes minor collections do zero scanning work in this
// component by registering every slot holding a nursery payload with the
// host's own remembered set.
package poolengine

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"

	"github.com/latchkey-labs/rootref/host"
)

// Handle is the opaque rooted reference returned by Create. It is, as
// spec.md §3 requires, literally a pointer into storage the engine owns —
// callers cannot construct or inspect one, only pass it back to Engine's
// methods. After Delete, a handle's value is invalid; using it again is
// undefined behavior, per spec.md §7.
type Handle = *slot

// Engine is a process-wide rooted-reference allocator instance (spec.md §9,
// "Global mutable state"). The zero value is not usable; construct one with
// New and call Setup before using it.
type Engine struct {
	rt  host.Runtime
	cfg Config

	mu      sync.Mutex
	setUp   bool
	nonFull *pool
	full    *pool

	stats  Statistics
	timing host.ScanTiming

	logOnce sync.Once
}

// New constructs an Engine bound to the given host runtime and
// configuration. It must still be started with Setup before use.
func New(rt host.Runtime, cfg Config) (*Engine, error) {
	if rt == nil {
		return nil, errors.New("poolengine: runtime must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{rt: rt, cfg: cfg}, nil
}

// Setup prepares the engine for use and registers its scan dispatcher with
// the host runtime. It is idempotent: calling it again before Teardown
// returns (false, nil), matching spec.md §6's table.
func (e *Engine) Setup() (bool, error) {
	e.lock()
	defer e.unlock()

	if e.setUp {
		return false, nil
	}

	e.rt.RegisterScanCallback(e.scan)
	e.setUp = true
	return true, nil
}

// Teardown releases every pool and deregisters the scan dispatcher. It is
// idempotent. Per spec.md §5 it must only be called once no handles remain
// in use; the engine does not and cannot verify that.
func (e *Engine) Teardown() {
	e.lock()
	defer e.unlock()

	if !e.setUp {
		return
	}

	e.rt.DeregisterScanCallback()
	e.releaseAllPools()
	e.setUp = false
}

func (e *Engine) releaseAllPools() {
	release := func(head **pool) {
		for *head != nil {
			p := *head
			ringRemove(head, p)
			_ = e.rt.FreeAligned(p.region)
		}
	}
	release(&e.nonFull)
	release(&e.full)
	e.stats = Statistics{}
}

// lock and unlock honor Config.MutexEnabled (spec.md §6, "Mutex enable
// flag"): disabling it skips the engine's mutex entirely, for embedders that
// already guarantee single-threaded access and want to avoid paying for
// uncontended locking.
func (e *Engine) lock() {
	if e.cfg.MutexEnabled {
		e.mu.Lock()
	}
}

func (e *Engine) unlock() {
	if e.cfg.MutexEnabled {
		e.mu.Unlock()
	}
}

func (e *Engine) logNotSetUp() {
	e.logOnce.Do(func() {
		slog.Error("poolengine: create called before setup")
	})
}

// Create allocates a new rooted reference holding payload. It returns a nil
// Handle on capacity exhaustion (spec.md §7, "Capacity exhaustion") or if
// the engine has not been set up.
func (e *Engine) Create(payload host.Word) (Handle, error) {
	e.lock()
	if !e.setUp {
		e.unlock()
		e.logNotSetUp()
		return nil, ErrNotSetUp
	}

	nursery := e.isNursery(payload)
	p, s, fromMajor, err := e.allocateSlot(nursery)
	if err != nil {
		e.unlock()
		return nil, err
	}

	s.markFull(payload)
	p.allocCount++
	e.stats.onAlloc(p)
	e.reclassifyAfterAlloc(p)
	e.unlock()

	// A slot popped from the minor free list is, per spec.md §4.1, "already
	// remembered" — it was registered in the remembered set either when it
	// was first popped from the major list for a nursery payload, or by an
	// earlier Modify that promoted it. Only a slot popped from the major
	// list needs a fresh remembered-set entry; double-adding the minor-list
	// case would cause the runtime's remembered-set walk to visit it twice
	// on the next minor collection, violating spec.md §8 property 8
	// ("visited exactly once").
	if nursery && fromMajor {
		e.rt.AddToRememberedSet(e.rt.CurrentDomain(), &s.word)
	}

	e.debugValidate()
	return s, nil
}

// isNursery reports whether payload is a pointer into the nursery, honoring
// Config.Generational (spec.md §6, "Generational optimization enable
// flag").
func (e *Engine) isNursery(payload host.Word) bool {
	return e.cfg.Generational && !e.rt.IsImmediate(payload) && e.rt.IsNurseryPointer(payload)
}

// popPreferred pops a slot per spec.md §4.1's allocation contract and
// reports whether it came from the major free list, so the caller can tell
// whether the slot already carries a remembered-set entry (minor-list pop)
// or needs a fresh one (major-list pop, only meaningful when nursery is
// true).
func popPreferred(p *pool, nursery bool) (s *slot, fromMajor bool) {
	if nursery {
		if s := p.popMinor(); s != nil {
			return s, false
		}
		return p.popMajor(), true
	}
	if s := p.popMajor(); s != nil {
		return s, true
	}
	return p.popMinor(), false
}

// allocateSlot implements the fast/slow path split of spec.md §4.1's
// allocation contract: try the current head of the non-full ring first,
// falling back to findAvailablePool only when it has nothing left.
func (e *Engine) allocateSlot(nursery bool) (p *pool, s *slot, fromMajor bool, err error) {
	if p := e.nonFull; p != nil {
		if s, fromMajor := popPreferred(p, nursery); s != nil {
			return p, s, fromMajor, nil
		}
	}

	p, err = e.findAvailablePool()
	if err != nil {
		return nil, nil, false, err
	}
	s, fromMajor = popPreferred(p, nursery)
	if s == nil {
		return nil, nil, false, errors.New("poolengine: internal error: newly found pool had no free slots")
	}
	return p, s, fromMajor, nil
}

// findAvailablePool skips full pools — moving each into the full ring as it
// finds them — until it finds a non-full pool, allocating a fresh one from
// the host if the non-full ring is exhausted.
func (e *Engine) findAvailablePool() (*pool, error) {
	for e.nonFull != nil {
		p := e.nonFull
		if !p.isFull() {
			return p, nil
		}
		e.moveToFull(p)
	}

	p, err := newPool(e.rt, e.cfg)
	if err != nil {
		return nil, err
	}
	ringPushFront(&e.nonFull, p)
	return p, nil
}

func (e *Engine) moveToFull(p *pool) {
	ringRemove(&e.nonFull, p)
	ringPushFront(&e.full, p)
	p.inFullRing = true
}

func (e *Engine) moveToNonFull(p *pool) {
	ringRemove(&e.full, p)
	ringPushFront(&e.nonFull, p)
	p.inFullRing = false
}

func (e *Engine) reclassifyAfterAlloc(p *pool) {
	if p.isFull() && !p.inFullRing {
		e.moveToFull(p)
	}
}

// Get returns the payload currently held by h.
func (e *Engine) Get(h Handle) (host.Word, error) {
	if h == nil {
		return 0, ErrInvalidHandle
	}
	return h.word, nil
}

// GetRef returns a pointer to the cell holding h's payload. The pointer is
// valid until the next Modify or Delete call on this handle, per spec.md
// §6's table.
func (e *Engine) GetRef(h Handle) (*host.Word, error) {
	if h == nil {
		return nil, ErrInvalidHandle
	}
	return &h.word, nil
}

// Delete releases h, returning its slot to the owning pool's free list.
func (e *Engine) Delete(h Handle) error {
	if h == nil {
		return ErrInvalidHandle
	}

	e.lock()

	p := h.owner
	nursery := e.isNursery(h.word)
	if nursery {
		p.pushMinor(h)
	} else {
		p.pushMajor(h)
	}
	p.allocCount--
	e.stats.onFree(p)

	if p.inFullRing && p.belowReturnThreshold() {
		e.moveToNonFull(p)
	}
	e.unlock()

	e.debugValidate()
	return nil
}

// Modify overwrites the payload behind *hp with newPayload, following
// spec.md §4.1's update contract: the slot is added to the remembered set
// only when the payload transitions from non-nursery to nursery. The
// handle's address never changes in this variant (spec.md §8 property 1),
// so *hp is taken by pointer only for signature symmetry with the other two
// variants (spec.md §9, Open Questions).
func (e *Engine) Modify(hp *Handle, newPayload host.Word) error {
	if hp == nil || *hp == nil {
		return ErrInvalidHandle
	}
	h := *hp

	newNursery := e.isNursery(newPayload)

	e.lock()
	oldNursery := e.isNursery(h.word)
	h.word = newPayload
	remember := newNursery && !oldNursery
	e.unlock()

	if remember {
		e.rt.AddToRememberedSet(e.rt.CurrentDomain(), &h.word)
	}

	e.debugValidate()
	return nil
}
