package poolengine

import (
	"io"
	"os"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics mirrors the role of memutils.Statistics in the teacher
// package: running totals the engine keeps cheaply up to date on every
// allocation and release, reported by PrintStats and usable by
// property/scenario tests (spec.md §8) without walking any ring.
// LivePools is the exception: the engine never updates it, so it stays
// zero; livePoolCount and PrintStats count the rings directly instead.
type Statistics struct {
	LivePools       int
	LiveAllocations int
	UsefulScanWork  int // slots visited and forwarded by the last scan (spec.md §8, S5)
	SlotVisits      int // slot visits by the last scan of either kind (spec.md §8, S4 expects 0 after a generational minor scan)
}

func (s *Statistics) onAlloc(p *pool) {
	s.LiveAllocations++
}

func (s *Statistics) onFree(p *pool) {
	s.LiveAllocations--
}

// snapshot and restore implement spec.md §9's Open Question resolution:
// "Validation routines save and restore the statistics struct around
// iteration so that iteration-internal counter bumps do not perturb
// metrics."
func (s *Statistics) snapshot() Statistics  { return *s }
func (s *Statistics) restore(snap Statistics) { *s = snap }

// livePoolCount recomputes the number of pools currently owned by the
// engine, used by the round-trip property (spec.md §8 property 4).
func (e *Engine) livePoolCount() int {
	return ringCount(e.nonFull) + ringCount(e.full)
}

// allocCount sums allocCount across every owned pool.
func (e *Engine) allocCount() int {
	total := 0
	add := func(p *pool) bool { total += p.allocCount; return true }
	ringEach(e.nonFull, add)
	ringEach(e.full, add)
	return total
}

// PrintStats writes a JSON snapshot of the engine's statistics and scan
// timing to standard output, following the teacher's
// BlockMetadataBase.BlockJsonData pattern of building the document with
// jwriter.ObjectState rather than encoding/json.
func (e *Engine) PrintStats() error {
	return e.printStatsTo(os.Stdout)
}

func (e *Engine) printStatsTo(w io.Writer) error {
	e.lock()
	livePools := e.livePoolCount()
	liveAllocs := e.allocCount()
	timing := e.timing
	e.unlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()
	obj.Name("LivePools").Int(livePools)
	obj.Name("LiveAllocations").Int(liveAllocs)
	obj.Name("ScanTotalMinorNanos").Int(int(timing.TotalMinor))
	obj.Name("ScanPeakMinorNanos").Int(int(timing.PeakMinor))
	obj.Name("ScanTotalMajorNanos").Int(int(timing.TotalMajor))
	obj.Name("ScanPeakMajorNanos").Int(int(timing.PeakMajor))
	obj.End()

	bytes := writer.Bytes()
	if err := writer.Error(); err != nil {
		return err
	}
	_, err := w.Write(bytes)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}
