// Package host describes the contract a managed runtime must satisfy in
// order to host the rooted reference allocators in this module. None of the
// types here are implemented by this module's production code — they are
// implemented by the runtime that links against an engine (see
// host/hostfake for the test double used by this module's own tests).
package host

import "time"

// Word is a single machine word from the managed runtime's value
// representation: either an immediate (non-pointer) value, distinguished by
// a set low bit, or a pointer to a managed block, distinguished by a clear
// low bit. This mirrors the tagged-integer encoding assumed by spec.md's
// "Tag-bit trick" (§3) and is the representation the runtime's own
// IsImmediate/IsNurseryPointer predicates operate on.
type Word uintptr

// Tagged reports whether w has its discriminating low bit set, i.e. whether
// it looks like an immediate value to the runtime. A free-list link is
// always tagged this way so a stray scan of a free slot is harmless.
func (w Word) Tagged() bool { return w&1 != 0 }

// WithTag returns w with the discriminating low bit forced set.
func WithTag(w Word) Word { return w | 1 }

// WithoutTag returns w with the discriminating low bit cleared.
func WithoutTag(w Word) Word { return w &^ 1 }

// CollectionKind distinguishes a minor (nursery-only) collection from a
// major (whole-heap) collection, as derived from Runtime.IsMinorCollection
// during a scan callback invocation.
type CollectionKind uint8

const (
	MinorCollection CollectionKind = iota
	MajorCollection
)

func (k CollectionKind) String() string {
	if k == MinorCollection {
		return "minor"
	}
	return "major"
}

// ScanAction is the runtime-supplied function that an engine's scan
// dispatcher (spec.md §4.4) invokes once per live slot it visits. The
// runtime inspects payload and, if the block it points to was moved by this
// collection, returns the forwarded address; otherwise it returns payload
// unchanged. The engine writes the returned value back into the slot.
type ScanAction func(payload Word) Word

// ScanCallback is the function an engine registers with the runtime via
// Runtime.RegisterScanCallback. The runtime invokes it once per collection,
// stop-the-world, passing the action to forward payloads through and
// onlyYoung to indicate that scanning may be restricted to slots known to
// hold nursery pointers. None of this module's engines read onlyYoung: each
// asks Runtime.IsMinorCollection which kind of collection is running.
type ScanCallback func(action ScanAction, onlyYoung bool, opaque any)

// Runtime is the set of primitives spec.md §6 requires the host runtime to
// provide. An engine is constructed against a concrete Runtime and never
// reaches outside it to touch the managed heap directly.
type Runtime interface {
	// IsImmediate reports whether w is a tagged, non-pointer value.
	IsImmediate(w Word) bool
	// IsNurseryPointer reports whether w is a pointer into the runtime's
	// youngest generation. The caller must have already established that
	// w is not immediate.
	IsNurseryPointer(w Word) bool
	// NurseryRange returns the inclusive-exclusive address range of the
	// current nursery, for engines (the bitmap variant) that prefer an
	// inline range check over calling IsNurseryPointer per word.
	NurseryRange() (start, end uintptr)

	// RegisterScanCallback installs the engine's scan dispatcher. Setup
	// must call this exactly once; Teardown must undo it.
	RegisterScanCallback(cb ScanCallback)
	// DeregisterScanCallback removes a previously installed callback.
	DeregisterScanCallback()

	// AddToRememberedSet records that the mature-heap location slot may
	// hold a pointer into the nursery, so the runtime's own minor-collection
	// remembered-set walk will visit and, if necessary, forward it. domain
	// identifies the calling thread's runtime domain (spec.md §5).
	AddToRememberedSet(domain int, slot *Word)
	// IsMinorCollection reports whether the collection currently running is
	// minor. Only meaningful from within a scan callback.
	IsMinorCollection() bool
	// CurrentDomain returns the calling thread's runtime domain id, used as
	// the domain argument to AddToRememberedSet.
	CurrentDomain() int

	// AllocAligned returns a new zeroed, power-of-two-aligned region of the
	// given size in bytes, suitable for use as a pool or chunk (spec.md §3,
	// §9 "Pool alignment"). It returns an error if the host is out of
	// memory.
	AllocAligned(size int) ([]byte, error)
	// FreeAligned releases a region previously returned by AllocAligned.
	FreeAligned(region []byte) error
}

// ScanTiming accumulates wall-clock scan-callback duration per collection
// kind, as described by spec.md §4.4 ("update timing counters ... with
// total and peak per collection kind") and supplemented from
// original_source/boxroot/rem_boxroot.c's stats struct.
type ScanTiming struct {
	TotalMinor time.Duration
	PeakMinor  time.Duration
	TotalMajor time.Duration
	PeakMajor  time.Duration
}

// Record folds one scan callback invocation of the given kind and duration
// into the timing totals.
func (t *ScanTiming) Record(kind CollectionKind, d time.Duration) {
	switch kind {
	case MinorCollection:
		t.TotalMinor += d
		if d > t.PeakMinor {
			t.PeakMinor = d
		}
	default:
		t.TotalMajor += d
		if d > t.PeakMajor {
			t.PeakMajor = d
		}
	}
}
