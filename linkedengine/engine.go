// Package linkedengine implements spec.md §4.3, the doubly-linked-element
// rooted reference allocator: the baseline variant, kept for correctness
// comparison against poolengine and bitmapengine rather than as the
// module's default (spec.md §9, Open Questions). Each tracked payload is
// its own heap-allocated element; there is no pooling, so this variant has
// the worst locality of the three but the simplest implementation.
package linkedengine

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"

	"github.com/latchkey-labs/rootref/host"
	"github.com/latchkey-labs/rootref/memutils"
)

// Handle is the opaque rooted reference returned by Create: a pointer to
// the element itself. Per spec.md §9's Open Questions, Modify may rewrite
// the handle variable to point at a different element when a payload is
// promoted from the old ring into the young ring — callers that cached the
// raw handle value across a Modify call, rather than re-reading it, are
// working against this variant's contract.
type Handle = *element

// Engine is a doubly-linked-element rooted-reference allocator instance.
type Engine struct {
	rt  host.Runtime
	cfg Config

	mu    sync.Mutex
	setUp bool
	young *element
	old   *element
	free  *element

	stats  Statistics
	timing host.ScanTiming

	logOnce sync.Once
}

func New(rt host.Runtime, cfg Config) (*Engine, error) {
	if rt == nil {
		return nil, errors.New("linkedengine: runtime must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{rt: rt, cfg: cfg}, nil
}

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

// Setup registers the engine's scan dispatcher. Idempotent.
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

// Teardown drops every ring, including the free-element cache, and
// deregisters the scan dispatcher. Idempotent.
func (e *Engine) Teardown() {
	e.lock()
	defer e.unlock()

	if !e.setUp {
		return
	}
	e.rt.DeregisterScanCallback()
	e.young, e.old, e.free = nil, nil, nil
	e.stats = Statistics{}
	e.setUp = false
}

func (e *Engine) logNotSetUp() {
	e.logOnce.Do(func() {
		slog.Error("linkedengine: create called before setup")
	})
}

// isNursery reports whether payload should be tracked as a young value,
// honoring Config.Generational.
func (e *Engine) isNursery(payload host.Word) bool {
	return e.cfg.Generational && !e.rt.IsImmediate(payload) && e.rt.IsNurseryPointer(payload)
}

// acquireElement pops a reusable element from the free cache, or allocates
// a fresh one, following spec.md §4.3's "Create pops from the free cache
// (or mallocs)".
func (e *Engine) acquireElement() *element {
	if e.free != nil {
		el := ringPop(&e.free)
		el.inFreeCache = false
		return el
	}
	el := &element{}
	ringLink(el, el)
	return el
}

// track links el onto the young or old ring per young, records it as no
// longer free, and stores payload.
func (e *Engine) track(el *element, payload host.Word, young bool) {
	el.word = payload
	el.isYoung = young
	el.inFreeCache = false
	if young {
		ringPushBack(el, &e.young)
	} else {
		ringPushBack(el, &e.old)
	}
}

// Create allocates a handle holding payload.
func (e *Engine) Create(payload host.Word) (Handle, error) {
	e.lock()
	if !e.setUp {
		e.unlock()
		e.logNotSetUp()
		return nil, ErrNotSetUp
	}

	young := e.isNursery(payload)
	el := e.acquireElement()
	e.track(el, payload, young)
	e.stats.onAlloc()
	e.unlock()

	e.debugValidate()
	return el, nil
}

// Get returns the payload currently held by h.
func (e *Engine) Get(h Handle) (host.Word, error) {
	if h == nil {
		return 0, ErrInvalidHandle
	}
	return h.word, nil
}

// GetRef returns a pointer to the cell holding h's payload. Per spec.md
// §6's table this is only valid until the next Modify or Delete on this
// handle — in this variant specifically, a Modify that promotes h into the
// young ring invalidates it immediately, since h itself may be recycled.
func (e *Engine) GetRef(h Handle) (*host.Word, error) {
	if h == nil {
		return nil, ErrInvalidHandle
	}
	return &h.word, nil
}

// releaseToFreeCache unlinks h from whichever ring it is currently in and
// pushes it onto the free cache, clearing its payload (spec.md §4.3's
// "Release unlinks and pushes onto the free cache").
func (e *Engine) releaseToFreeCache(h Handle) {
	head := &e.old
	if h.isYoung {
		head = &e.young
	}
	ringPopElem(h, head)
	h.word = 0
	memutils.PoisonWord(&h.word)
	h.inFreeCache = true
	ringPushBack(h, &e.free)
}

// Delete releases h.
func (e *Engine) Delete(h Handle) error {
	if h == nil {
		return ErrInvalidHandle
	}

	e.lock()
	e.releaseToFreeCache(h)
	e.stats.onFree()
	e.unlock()

	e.debugValidate()
	return nil
}

// Modify overwrites the payload behind *hp, following spec.md §4.3's and
// §9's contract: a payload update that does not need to move into the
// young ring is applied in place; a promotion from the old ring into the
// young ring pops h out, pushes it onto the free cache, and tracks a fresh
// element for the new payload — following
// original_source/boxroot/dll_boxroot.c's dll_boxroot_modify exactly,
// including which direction triggers the reallocation (old payload already
// young, or new payload not young, stays in place; only old-payload-is-old
// and new-payload-is-young reallocates). The public contract promises this
// happens "at most once between two minor collections", since after one
// reallocation the handle is young and further modifies to young or
// non-young payloads both take the in-place path.
func (e *Engine) Modify(hp *Handle, newPayload host.Word) error {
	if hp == nil || *hp == nil {
		return ErrInvalidHandle
	}
	h := *hp

	e.lock()
	oldYoung := h.isYoung
	newYoung := e.isNursery(newPayload)

	if oldYoung || !newYoung {
		h.word = newPayload
		e.unlock()
		e.debugValidate()
		return nil
	}

	fresh := e.acquireElement()
	e.releaseToFreeCache(h)
	e.track(fresh, newPayload, true)
	e.unlock()

	*hp = fresh
	e.debugValidate()
	return nil
}
