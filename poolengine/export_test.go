package poolengine

// Exported for engine_test.go, which lives in poolengine_test so it only
// exercises the public API plus these narrow test-only seams.

func CapacityForTest(cfg Config) int {
	return capacityFor(cfg)
}

func (e *Engine) LivePoolCountForTest() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.livePoolCount()
}

func (e *Engine) AllocCountForTest() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allocCount()
}

func (e *Engine) StatsForTest() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
