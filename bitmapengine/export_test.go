package bitmapengine

const ChunkSizeForTest = chunkSize

func (e *Engine) YoungRingHeadForTest() bool { return e.young != nil }

func (e *Engine) StatsForTest() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) LiveChunksForTest() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.livePoolCount()
}

// OldRingHeadIsFullForTest reports whether the head of the old ring (if
// any) is currently a full chunk, used by TestBitmapFullNotFullTransitions
// to check S6's "migrates to the tail of its ring" assertion without
// exposing the chunk type itself.
func (e *Engine) OldRingHeadIsFullForTest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.old != nil && e.old.isFull()
}

// HandleOwnerIsOldRingHeadForTest reports whether h's owning chunk is
// currently the head of the old ring.
func (e *Engine) HandleOwnerIsOldRingHeadForTest(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return h.owner == e.old
}
