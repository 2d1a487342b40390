package bitmapengine

import (
	"io"
	"os"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics mirrors original_source/boxroot/bitmap_boxroot.c's `struct
// stats`, trimmed to the counters this reimplementation actually reports.
type Statistics struct {
	LiveAllocations int
	UsefulScanWork  int
	SlotVisits      int
}

func (s *Statistics) onAlloc() { s.LiveAllocations++ }
func (s *Statistics) onFree()  { s.LiveAllocations-- }

func (s *Statistics) snapshot() Statistics    { return *s }
func (s *Statistics) restore(snap Statistics) { *s = snap }

func (e *Engine) livePoolCount() int {
	return ringCount(e.young) + ringCount(e.old)
}

func (e *Engine) PrintStats() error {
	return e.printStatsTo(os.Stdout)
}

func (e *Engine) printStatsTo(w io.Writer) error {
	e.lock()
	livePools := e.livePoolCount()
	liveAllocs := e.stats.LiveAllocations
	timing := e.timing
	e.unlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()
	obj.Name("LiveChunks").Int(livePools)
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
