package linkedengine

import (
	"io"
	"os"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics mirrors poolengine.Statistics and bitmapengine.Statistics,
// trimmed to what this variant can report cheaply: there is no per-pool or
// per-chunk structure to aggregate over, only the three rings themselves.
type Statistics struct {
	LiveAllocations int
	UsefulScanWork  int
	SlotVisits      int
}

func (s *Statistics) onAlloc() { s.LiveAllocations++ }
func (s *Statistics) onFree()  { s.LiveAllocations-- }

func (s *Statistics) snapshot() Statistics    { return *s }
func (s *Statistics) restore(snap Statistics) { *s = snap }

// liveElementCount recomputes the number of elements currently tracked in
// the young and old rings, excluding the free cache, used by PrintStats and
// by tests through LiveElementCountForTest.
func (e *Engine) liveElementCount() int {
	return ringCount(e.young) + ringCount(e.old)
}

func (e *Engine) PrintStats() error {
	return e.printStatsTo(os.Stdout)
}

func (e *Engine) printStatsTo(w io.Writer) error {
	e.lock()
	live := e.liveElementCount()
	cached := ringCount(e.free)
	liveAllocs := e.stats.LiveAllocations
	timing := e.timing
	e.unlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()
	obj.Name("LiveElements").Int(live)
	obj.Name("FreeCacheElements").Int(cached)
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
	if _, err := w.Write(bytes); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	return err
}
