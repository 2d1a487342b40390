// Package hostfake provides a hand-written test double for host.Runtime,
// in the spirit of the teacher package's metadata.FakeGranularityCheck
// (memutils/metadata/fake_granularity_test.go): a small, fully-controllable
// stand-in for a collaborator that lives outside this module, used only by
// this module's own tests.
package hostfake

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/latchkey-labs/rootref/host"
	"github.com/latchkey-labs/rootref/memutils"
)

// Runtime is a fake managed runtime. It tracks enough state to drive every
// property and scenario in spec.md §8: a nursery address range that the
// test can move to simulate promotion, a recorded remembered set, and a
// scan-callback hook the test can invoke to simulate a collection.
type Runtime struct {
	mu sync.Mutex

	nurseryStart, nurseryEnd uintptr
	domain                   int

	cb host.ScanCallback

	minor bool

	// remembered records every (domain, slot) pair ever added via
	// AddToRememberedSet, in insertion order, so tests can assert on
	// remembered-set sufficiency (spec.md §8 property 8).
	remembered []RememberedEntry

	regions []allocatedRegion
}

// RememberedEntry is one recorded call to AddToRememberedSet.
type RememberedEntry struct {
	Domain int
	Slot   *host.Word
}

type allocatedRegion struct {
	raw     []byte
	aligned []byte
}

// New creates a fake runtime with an empty nursery range; call SetNurseryRange
// to give it one.
func New() *Runtime {
	return &Runtime{}
}

// SetNurseryRange configures the address range IsNurseryPointer and
// NurseryRange report as the nursery.
func (r *Runtime) SetNurseryRange(start, end uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nurseryStart, r.nurseryEnd = start, end
}

// SetDomain configures the value CurrentDomain returns.
func (r *Runtime) SetDomain(domain int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.domain = domain
}

func (r *Runtime) IsImmediate(w host.Word) bool {
	return w.Tagged()
}

func (r *Runtime) IsNurseryPointer(w host.Word) bool {
	addr := uintptr(host.WithoutTag(w))
	r.mu.Lock()
	defer r.mu.Unlock()
	return addr >= r.nurseryStart && addr < r.nurseryEnd
}

func (r *Runtime) NurseryRange() (start, end uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nurseryStart, r.nurseryEnd
}

func (r *Runtime) RegisterScanCallback(cb host.ScanCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cb = cb
}

func (r *Runtime) DeregisterScanCallback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cb = nil
}

func (r *Runtime) AddToRememberedSet(domain int, slot *host.Word) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remembered = append(r.remembered, RememberedEntry{Domain: domain, Slot: slot})
}

func (r *Runtime) IsMinorCollection() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minor
}

func (r *Runtime) CurrentDomain() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.domain
}

// AllocAligned mmaps size bytes (rounded up to whole pages) plus one extra
// size-byte alignment unit, and returns the size-byte slice that starts at
// the first size-aligned address inside that mapping. mmap alone only
// guarantees page alignment, so this over-allocate-and-align path is used
// for every size. The alignment arithmetic (memutils.AlignUp) assumes size
// is a power of two.
func (r *Runtime) AllocAligned(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.New("size must be positive")
	}

	pageSize := unix.Getpagesize()
	mmapLen := size
	if mmapLen%pageSize != 0 {
		mmapLen += pageSize - mmapLen%pageSize
	}
	// Over-allocate by one alignment unit so we can slide the start
	// forward to a size-aligned address.
	raw, err := unix.Mmap(-1, 0, mmapLen+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "mmap")
	}

	base := uintptr(uintptrOf(raw))
	aligned := uintptr(memutils.AlignUp(int(base), uint(size)))
	offset := int(aligned - base)
	region := raw[offset : offset+size]

	r.mu.Lock()
	r.regions = append(r.regions, allocatedRegion{raw: raw, aligned: region})
	r.mu.Unlock()

	return region, nil
}

func (r *Runtime) FreeAligned(region []byte) error {
	r.mu.Lock()
	var raw []byte
	for i := range r.regions {
		if uintptrOf(r.regions[i].aligned) == uintptrOf(region) {
			raw = r.regions[i].raw
			r.regions = append(r.regions[:i], r.regions[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if raw == nil {
		return errors.New("region was not allocated by this runtime")
	}
	return unix.Munmap(raw)
}

// Deliver simulates the runtime driving a collection of the given kind: it
// sets IsMinorCollection's answer for the duration of the call and then
// invokes the registered scan callback with action as the forwarding
// function.
func (r *Runtime) Deliver(kind host.CollectionKind, action host.ScanAction, onlyYoung bool, opaque any) {
	r.mu.Lock()
	r.minor = kind == host.MinorCollection
	cb := r.cb
	r.mu.Unlock()

	if cb != nil {
		cb(action, onlyYoung, opaque)
	}

	r.mu.Lock()
	r.minor = false
	r.mu.Unlock()
}

// WalkRememberedSet simulates the runtime's own minor-collection remembered
// set traversal: it invokes action on every recorded slot and writes the
// result back, then clears the set (the runtime discards remembered-set
// entries at the end of every minor collection). It returns the number of
// entries visited, for property 8 ("visited exactly once").
func (r *Runtime) WalkRememberedSet(action host.ScanAction) int {
	r.mu.Lock()
	entries := r.remembered
	r.remembered = nil
	r.mu.Unlock()

	for _, e := range entries {
		*e.Slot = action(*e.Slot)
	}
	return len(entries)
}

// RememberedSetSize reports how many entries are currently pending without
// consuming them.
func (r *Runtime) RememberedSetSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.remembered)
}

func uintptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
