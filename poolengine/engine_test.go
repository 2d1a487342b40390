package poolengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latchkey-labs/rootref/host"
	"github.com/latchkey-labs/rootref/host/hostfake"
	"github.com/latchkey-labs/rootref/poolengine"
)

// newTestEngine returns an engine over a small pool size so the fill/drain
// scenarios don't need thousands of handles to cross a pool boundary, with a
// nursery range a test can place payloads inside or outside of.
func newTestEngine(t *testing.T, cfg poolengine.Config) (*poolengine.Engine, *hostfake.Runtime) {
	t.Helper()
	rt := hostfake.New()
	rt.SetNurseryRange(0x1000, 0x8000)

	e, err := poolengine.New(rt, cfg)
	require.NoError(t, err)

	started, err := e.Setup()
	require.NoError(t, err)
	require.True(t, started)

	t.Cleanup(e.Teardown)
	return e, rt
}

func smallConfig() poolengine.Config {
	cfg := poolengine.DefaultConfig()
	cfg.PoolLogSize = 6 // smallest legal pool; a handful of slots per pool
	return cfg
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

// S1 Single handle.
func TestSingleHandle(t *testing.T) {
	e, _ := newTestEngine(t, smallConfig())

	h, err := e.Create(matureWord(0))
	require.NoError(t, err)
	require.NotNil(t, h)

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, matureWord(0), v)

	require.NoError(t, e.Delete(h))
	require.Equal(t, 0, e.AllocCountForTest())
	require.LessOrEqual(t, e.LivePoolCountForTest(), 1)
}

// S1 Single handle, immediate payload (spec.md §8's create(42) case). An
// immediate whose untagged bit pattern numerically collides with the
// nursery range must still never be classified or scanned as a nursery
// pointer.
func TestSingleHandleImmediatePayload(t *testing.T) {
	e, _ := newTestEngine(t, smallConfig())

	immediate := tagged(0x1000)
	h, err := e.Create(immediate)
	require.NoError(t, err)

	v, err := e.Get(h)
	require.NoError(t, err)
	require.Equal(t, immediate, v)

	require.NoError(t, e.Delete(h))
}

// S2 Modify preserves address.
func TestModifyPreservesAddress(t *testing.T) {
	e, _ := newTestEngine(t, smallConfig())

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

// S3 Fill and drain. Empty pools are reclaimed by the major scan, so the
// drain is followed by a major collection before the pool count is checked.
func TestFillAndDrain(t *testing.T) {
	cfg := smallConfig()
	e, rt := newTestEngine(t, cfg)

	capacity := poolengine.CapacityForTest(cfg)
	require.Greater(t, capacity, 0)

	handles := make([]poolengine.Handle, 0, capacity+1)
	for i := 0; i < capacity+1; i++ {
		h, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
		require.NotNil(t, h)
		handles = append(handles, h)
	}

	require.GreaterOrEqual(t, e.LivePoolCountForTest(), 2)

	for _, h := range handles {
		require.NoError(t, e.Delete(h))
	}

	identity := func(w host.Word) host.Word { return w }
	rt.Deliver(host.MajorCollection, identity, false, nil)

	require.LessOrEqual(t, e.LivePoolCountForTest(), 1)
	require.Equal(t, 0, e.AllocCountForTest())
}

// Property 4: round-trip.
func TestRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, smallConfig())

	beforePools := e.LivePoolCountForTest()
	beforeAlloc := e.AllocCountForTest()

	payloads := []host.Word{matureWord(0), matureWord(1), nurseryWord(0), matureWord(2), nurseryWord(1)}
	handles := make([]poolengine.Handle, 0, len(payloads))
	for _, p := range payloads {
		h, err := e.Create(p)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		require.NoError(t, e.Delete(h))
	}

	require.Equal(t, beforePools, e.LivePoolCountForTest())
	require.Equal(t, beforeAlloc, e.AllocCountForTest())
}

// Property 5: idempotent setup/teardown.
func TestIdempotentSetupTeardown(t *testing.T) {
	rt := hostfake.New()
	rt.SetNurseryRange(0x1000, 0x2000)

	e, err := poolengine.New(rt, smallConfig())
	require.NoError(t, err)

	started, err := e.Setup()
	require.NoError(t, err)
	require.True(t, started)

	started, err = e.Setup()
	require.NoError(t, err)
	require.False(t, started)

	e.Teardown()
	e.Teardown() // must not panic
}

// Pre-setup misuse: create before setup returns ErrNotSetUp, not a panic.
func TestCreateBeforeSetup(t *testing.T) {
	rt := hostfake.New()
	e, err := poolengine.New(rt, smallConfig())
	require.NoError(t, err)

	h, err := e.Create(matureWord(0))
	require.ErrorIs(t, err, poolengine.ErrNotSetUp)
	require.Nil(t, h)
}

// Nil handle operations return ErrInvalidHandle rather than misbehaving.
func TestNilHandle(t *testing.T) {
	e, _ := newTestEngine(t, smallConfig())

	_, err := e.Get(nil)
	require.ErrorIs(t, err, poolengine.ErrInvalidHandle)

	_, err = e.GetRef(nil)
	require.ErrorIs(t, err, poolengine.ErrInvalidHandle)

	err = e.Delete(nil)
	require.ErrorIs(t, err, poolengine.ErrInvalidHandle)

	var nilHandle poolengine.Handle
	err = e.Modify(&nilHandle, matureWord(0))
	require.ErrorIs(t, err, poolengine.ErrInvalidHandle)
}

// S4 Minor GC with generational fast path.
func TestMinorCollectionGenerationalFastPath(t *testing.T) {
	e, rt := newTestEngine(t, smallConfig())

	const n = 1000
	handles := make([]poolengine.Handle, 0, n)
	for i := 0; i < n; i++ {
		h, err := e.Create(nurseryWord(uintptr(i)))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	identity := func(w host.Word) host.Word { return w }
	rt.Deliver(host.MinorCollection, identity, true, nil)

	require.Equal(t, 0, e.StatsForTest().SlotVisits)

	visited := rt.WalkRememberedSet(identity)
	require.Equal(t, n, visited)

	_ = handles
}

// S5 Major GC scanning.
func TestMajorCollectionScansEveryLiveSlot(t *testing.T) {
	e, rt := newTestEngine(t, smallConfig())

	for i := 0; i < 1000; i++ {
		_, err := e.Create(matureWord(uintptr(i)))
		require.NoError(t, err)
	}
	for i := 0; i < 500; i++ {
		_, err := e.Create(nurseryWord(uintptr(i)))
		require.NoError(t, err)
	}

	identity := func(w host.Word) host.Word { return w }
	rt.Deliver(host.MajorCollection, identity, false, nil)

	require.Equal(t, 1500, e.StatsForTest().UsefulScanWork)
}

// Property 6/7 via the engine's own Validate, exercised after a mixed
// sequence of creates and deletes.
func TestValidateAfterMixedWorkload(t *testing.T) {
	e, _ := newTestEngine(t, smallConfig())

	var live []poolengine.Handle
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
	e, _ := newTestEngine(t, smallConfig())

	_, err := e.Create(matureWord(0))
	require.NoError(t, err)

	require.NoError(t, e.PrintStats())
}
