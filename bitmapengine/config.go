package bitmapengine

import cerrors "github.com/cockroachdb/errors"

// Config holds the bitmap-chunk variant's configuration knobs. Chunk size
// is fixed at 64 slots by spec.md §4.2, so the only knobs carried over from
// poolengine.Config that still apply are the mutex and generational
// enables plus the debug-assertion level.
type Config struct {
	MutexEnabled bool
	Generational bool
	DebugLevel   int
}

func DefaultConfig() Config {
	return Config{MutexEnabled: true, Generational: true, DebugLevel: 0}
}

func (c Config) Validate() error {
	if c.DebugLevel < 0 {
		return cerrors.Newf("DebugLevel cannot be negative, got %d", c.DebugLevel)
	}
	return nil
}
