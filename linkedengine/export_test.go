package linkedengine

func (e *Engine) StatsForTest() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) LiveElementCountForTest() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveElementCount()
}

func (e *Engine) FreeCacheCountForTest() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ringCount(e.free)
}

func (e *Engine) YoungRingHasElementsForTest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.young != nil
}

// HandleIsYoungForTest reports whether h currently sits in the young ring.
func (e *Engine) HandleIsYoungForTest(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return h.isYoung
}
