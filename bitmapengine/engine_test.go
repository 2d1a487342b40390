package bitmapengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latchkey-labs/rootref/bitmapengine"
	"github.com/latchkey-labs/rootref/host"
	"github.com/latchkey-labs/rootref/host/hostfake"
)

func newTestEngine(t *testing.T) (*bitmapengine.Engine, *hostfake.Runtime) {
	t.Helper()
	rt := hostfake.New()
	rt.SetNurseryRange(0x1000, 0x8000)

	e, err := bitmapengine.New(rt, bitmapengine.DefaultConfig())
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

// tagged returns an immediate value whose untagged bit pattern is n — used
// to construct an immediate that numerically collides with the nursery
// address range, the S1-style case spec.md §8 exercises with create(42).
func tagged(n uintptr) host.Word {
	return host.WithTag(host.Word(n))
}

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

func TestModifyInPlaceWhenNotPromoting(t *testing.T) {
	e, _ := newTestEngine(t)

	h, err := e.Create(matureWord(1))
	require.NoError(t, err)

	ref1, err := e.GetRef(h)
	require.NoError(t, err)

	require.NoError(t, e.Modify(&h, matureWord(2)))

	ref2, err := e.GetRef(h)
	require.NoError(t, err)
	require.Same(t, ref1, ref2)

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, matureWord(2), v)
}

func TestModifyRelocatesOnPromotionToYoung(t *testing.T) {
	e, _ := newTestEngine(t)

	h, err := e.Create(matureWord(1))
	require.NoError(t, err)

	require.NoError(t, e.Modify(&h, nurseryWord(1)))

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, nurseryWord(1), v)
}

func TestNilHandle(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Get(nil)
	require.ErrorIs(t, err, bitmapengine.ErrInvalidHandle)

	_, err = e.GetRef(nil)
	require.ErrorIs(t, err, bitmapengine.ErrInvalidHandle)

	require.ErrorIs(t, e.Delete(nil), bitmapengine.ErrInvalidHandle)

	var nilHandle bitmapengine.Handle
	require.ErrorIs(t, e.Modify(&nilHandle, matureWord(0)), bitmapengine.ErrInvalidHandle)
}

// S6 Bitmap chunk full/not-full transitions.
func TestBitmapFullNotFullTransitions(t *testing.T) {
	e, _ := newTestEngine(t)

	chunkSize := bitmapengine.ChunkSizeForTest
	handles := make([]bitmapengine.Handle, 0, chunkSize)
	for i := 0; i < chunkSize; i++ {
		h, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
		handles = append(handles, h)
	}
	require.True(t, e.OldRingHeadIsFullForTest())
	firstChunkHandle := handles[0]

	// Allocating one more must open a second, non-full chunk at the head,
	// pushing the full first chunk toward the tail.
	extra, err := e.Create(matureWord(uintptr(chunkSize)))
	require.NoError(t, err)
	require.False(t, e.OldRingHeadIsFullForTest())
	require.False(t, e.HandleOwnerIsOldRingHeadForTest(firstChunkHandle))

	// Deleting one handle from the first, full chunk frees a bit and must
	// migrate it back toward the head of the ring.
	require.NoError(t, e.Delete(handles[1]))
	require.True(t, e.HandleOwnerIsOldRingHeadForTest(firstChunkHandle))

	for _, h := range handles[2:] {
		require.NoError(t, e.Delete(h))
	}
	require.NoError(t, e.Delete(firstChunkHandle))
	require.NoError(t, e.Delete(extra))
}

func TestMinorCollectionMigratesYoungToOld(t *testing.T) {
	e, rt := newTestEngine(t)

	const n = 200
	for i := 0; i < n; i++ {
		_, err := e.Create(nurseryWord(uintptr(i)))
		require.NoError(t, err)
	}

	identity := func(w host.Word) host.Word { return w }
	rt.Deliver(host.MinorCollection, identity, true, nil)

	require.Equal(t, n, e.StatsForTest().SlotVisits)
	require.False(t, e.YoungRingHeadForTest())
}

func TestMinorCollectionSkipsImmediateCollidingWithNurseryRange(t *testing.T) {
	e, rt := newTestEngine(t)

	h, err := e.Create(nurseryWord(0))
	require.NoError(t, err)

	// Untagged, this numerically falls inside the nursery range
	// [0x1000, 0x8000) configured by newTestEngine, exactly the collision
	// scanMinor must guard against with IsImmediate before treating a
	// cell's word as an address.
	immediate := tagged(0x1000)
	require.NoError(t, e.Modify(&h, immediate))

	corrupt := func(w host.Word) host.Word { return w + 1000 }
	rt.Deliver(host.MinorCollection, corrupt, true, nil)

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, immediate, v)
	require.Equal(t, 0, e.StatsForTest().SlotVisits)
}

func TestMajorCollectionScansEveryLiveCell(t *testing.T) {
	e, rt := newTestEngine(t)

	for i := 0; i < 300; i++ {
		_, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
	}
	for i := 0; i < 150; i++ {
		_, err := e.Create(nurseryWord(uintptr(i)))
		require.NoError(t, err)
	}

	identity := func(w host.Word) host.Word { return w }
	rt.Deliver(host.MajorCollection, identity, false, nil)

	require.Equal(t, 450, e.StatsForTest().UsefulScanWork)
}

func TestValidateAfterMixedWorkload(t *testing.T) {
	e, _ := newTestEngine(t)

	var live []bitmapengine.Handle
	for i := 0; i < 200; i++ {
		h, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
		live = append(live, h)

		if i%3 == 0 && len(live) > 0 {
			require.NoError(t, e.Delete(live[0]))
			live = live[1:]
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
