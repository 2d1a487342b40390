package linkedengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latchkey-labs/rootref/host"
	"github.com/latchkey-labs/rootref/host/hostfake"
	"github.com/latchkey-labs/rootref/linkedengine"
)

func newTestEngine(t *testing.T) (*linkedengine.Engine, *hostfake.Runtime) {
	t.Helper()
	rt := hostfake.New()
	rt.SetNurseryRange(0x1000, 0x8000)

	e, err := linkedengine.New(rt, linkedengine.DefaultConfig())
	require.NoError(t, err)

	started, err := e.Setup()
	require.NoError(t, err)
	require.True(t, started)

	t.Cleanup(e.Teardown)
	return e, rt
}

func matureWord(n uintptr) host.Word {
	return host.WithoutTag(host.Word(0x8000 + n*8))
}

func nurseryWord(n uintptr) host.Word {
	return host.WithoutTag(host.Word(0x1000 + n*8))
}

// tagged returns an immediate value whose untagged bit pattern is n.
func tagged(n uintptr) host.Word {
	return host.WithTag(host.Word(n))
}

// S1 Single handle, immediate payload (spec.md §8's create(42) case). An
// immediate whose untagged bit pattern numerically collides with the
// nursery range must still never be classified or scanned as a nursery
// pointer.
func TestSingleHandleImmediatePayload(t *testing.T) {
	e, _ := newTestEngine(t)

	immediate := tagged(0x1000)
	h, err := e.Create(immediate)
	require.NoError(t, err)

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, immediate, v)

	require.NoError(t, e.Delete(h))
}

// S1 Single handle.
func TestSingleHandle(t *testing.T) {
	e, _ := newTestEngine(t)

	h, err := e.Create(matureWord(0))
	require.NoError(t, err)
	require.NotNil(t, h)

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, matureWord(0), v)

	require.NoError(t, e.Delete(h))
	require.Equal(t, 0, e.StatsForTest().LiveAllocations)
}

// S2-equivalent: a Modify that does not cross from old into young rewrites
// the payload in place and leaves the handle pointing at the same element.
func TestModifyInPlaceWhenNotPromoting(t *testing.T) {
	e, _ := newTestEngine(t)

	h, err := e.Create(matureWord(1))
	require.NoError(t, err)

	ref1, err := e.GetRef(h)
	require.NoError(t, err)
	before := h

	require.NoError(t, e.Modify(&h, matureWord(2)))

	require.Same(t, before, h)
	ref2, err := e.GetRef(h)
	require.NoError(t, err)
	require.Same(t, ref1, ref2)

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, matureWord(2), v)
}

// A Modify that keeps a young handle's payload young also stays in place:
// only the old-to-young transition reallocates.
func TestModifyInPlaceWhenAlreadyYoung(t *testing.T) {
	e, _ := newTestEngine(t)

	h, err := e.Create(nurseryWord(0))
	require.NoError(t, err)
	before := h

	require.NoError(t, e.Modify(&h, nurseryWord(1)))
	require.Same(t, before, h)
	require.True(t, e.HandleIsYoungForTest(h))
}

// Open Question resolution (spec.md §9): promoting a handle's payload from
// an old-ring value to a young-ring value reallocates the element and
// rewrites the caller's handle variable, rather than mutating the old
// element in place.
func TestModifyRewritesHandleOnPromotionToYoung(t *testing.T) {
	e, _ := newTestEngine(t)

	h, err := e.Create(matureWord(1))
	require.NoError(t, err)
	before := h
	require.False(t, e.HandleIsYoungForTest(h))

	require.NoError(t, e.Modify(&h, nurseryWord(1)))

	require.NotSame(t, before, h)
	require.True(t, e.HandleIsYoungForTest(h))

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, nurseryWord(1), v)

	require.Equal(t, 1, e.StatsForTest().LiveAllocations)
	require.Equal(t, 1, e.FreeCacheCountForTest())
}

func TestNilHandle(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Get(nil)
	require.ErrorIs(t, err, linkedengine.ErrInvalidHandle)

	_, err = e.GetRef(nil)
	require.ErrorIs(t, err, linkedengine.ErrInvalidHandle)

	require.ErrorIs(t, e.Delete(nil), linkedengine.ErrInvalidHandle)

	var nilHandle linkedengine.Handle
	require.ErrorIs(t, e.Modify(&nilHandle, matureWord(0)), linkedengine.ErrInvalidHandle)
}

// Deleted elements are pushed onto the free cache and reused by the next
// Create rather than triggering a fresh heap allocation.
func TestDeleteReusesFreeCache(t *testing.T) {
	e, _ := newTestEngine(t)

	h, err := e.Create(matureWord(0))
	require.NoError(t, err)
	require.NoError(t, e.Delete(h))
	require.Equal(t, 1, e.FreeCacheCountForTest())

	h2, err := e.Create(matureWord(1))
	require.NoError(t, err)
	require.Same(t, h, h2)
	require.Equal(t, 0, e.FreeCacheCountForTest())
}

// S4-equivalent: a minor collection on an all-nursery workload visits every
// young element (this variant has no remembered-set fast path of its own —
// every element must be walked to know it survived — but still must not
// touch the old ring).
func TestMinorCollectionVisitsOnlyYoungRing(t *testing.T) {
	e, rt := newTestEngine(t)

	const n = 1000
	for i := 0; i < n; i++ {
		_, err := e.Create(nurseryWord(uintptr(i)))
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		_, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
	}

	identity := func(w host.Word) host.Word { return w }
	rt.Deliver(host.MinorCollection, identity, true, nil)

	require.Equal(t, n, e.StatsForTest().SlotVisits)
	require.False(t, e.YoungRingHasElementsForTest())
	require.Equal(t, n+10, e.LiveElementCountForTest())
}

// S5-equivalent: a major collection visits every live element in both
// rings and drains the free cache.
func TestMajorCollectionScansEveryLiveElementAndDrainsFreeCache(t *testing.T) {
	e, rt := newTestEngine(t)

	for i := 0; i < 1000; i++ {
		_, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
	}
	for i := 0; i < 500; i++ {
		_, err := e.Create(nurseryWord(uintptr(i)))
		require.NoError(t, err)
	}

	h, err := e.Create(matureWord(2000))
	require.NoError(t, err)
	require.NoError(t, e.Delete(h))
	require.Equal(t, 1, e.FreeCacheCountForTest())

	identity := func(w host.Word) host.Word { return w }
	rt.Deliver(host.MajorCollection, identity, false, nil)

	require.Equal(t, 1500, e.StatsForTest().UsefulScanWork)
	require.Equal(t, 0, e.FreeCacheCountForTest())
}

func TestValidateAfterMixedWorkload(t *testing.T) {
	e, _ := newTestEngine(t)

	var live []linkedengine.Handle
	for i := 0; i < 200; i++ {
		h, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
		live = append(live, h)

		if i%3 == 0 && len(live) > 0 {
			require.NoError(t, e.Delete(live[0]))
			live = live[1:]
		}
		if i%5 == 0 && len(live) > 0 {
			require.NoError(t, e.Modify(&live[0], nurseryWord(uintptr(i))))
		}
	}
	require.NoError(t, e.Validate())

	for _, h := range live {
		require.NoError(t, e.Delete(h))
	}
	require.NoError(t, e.Validate())
}

func TestPrintStats(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Create(matureWord(0))
	require.NoError(t, err)

	require.NoError(t, e.PrintStats())
}
