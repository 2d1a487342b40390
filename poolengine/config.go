package poolengine

import (
	cerrors "github.com/cockroachdb/errors"
)

// Config holds the compile-time knobs spec.md §6 lists for the engine.
// They are ordinary struct fields here rather than preprocessor macros —
// Go has no macro layer to hang them on — but they are meant to be set once
// at Setup and never varied at runtime, exactly like the originals.
type Config struct {
	// PoolLogSize is the log-2 of a pool's size in bytes. Default 14
	// (16 KiB), matching spec.md §3's recommended pool size and §6's
	// POOL_LOG_SIZE default.
	PoolLogSize uint
	// MutexEnabled controls whether ring-structure mutations and the scan
	// callback take the engine's lock. Disable only when the embedder
	// already guarantees single-threaded access (spec.md §5).
	MutexEnabled bool
	// Generational enables the remembered-set fast path of spec.md §4.1.
	// When false, every allocation and release behaves as though the
	// payload were mature: minor collections fall back to a full scan
	// like a major collection would, which is correct but loses the
	// "minor collections do zero work" property.
	Generational bool
	// DebugLevel gates how aggressively Validate is called internally.
	// 0 disables internal self-checks beyond what the debug_rootref build
	// tag already compiles in; higher levels call Validate after every
	// mutating operation, which is only practical in tests.
	DebugLevel int
	// RetainedEmptyPools is how many fully-empty pools stay in the
	// non-full ring after a major collection's reclamation pass
	// (spec.md §3 Lifecycle: "the engine keeps at least one empty pool
	// around to avoid allocator churn").
	RetainedEmptyPools int
}

// DefaultConfig returns the configuration spec.md §6 documents as default.
func DefaultConfig() Config {
	return Config{
		PoolLogSize:        14,
		MutexEnabled:       true,
		Generational:       true,
		DebugLevel:         0,
		RetainedEmptyPools: 1,
	}
}

// Validate checks that the configuration is internally consistent,
// returning a wrapped error (in the teacher's memutils.CheckPow2 style) if
// not.
func (c Config) Validate() error {
	if c.PoolLogSize < 6 || c.PoolLogSize > 30 {
		return cerrors.Newf("PoolLogSize must be between 6 and 30, got %d", c.PoolLogSize)
	}
	if c.RetainedEmptyPools < 0 {
		return cerrors.Newf("RetainedEmptyPools cannot be negative, got %d", c.RetainedEmptyPools)
	}
	return nil
}
