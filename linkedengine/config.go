package linkedengine

import cerrors "github.com/cockroachdb/errors"

// Config holds the doubly-linked-element variant's configuration knobs.
// There is no pool-size knob in this variant — each tracked payload is its
// own heap allocation (spec.md §4.3) — so only the mutex, generational, and
// debug-assertion knobs carry over from poolengine.Config.
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
