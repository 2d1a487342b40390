package rootref

import (
	"github.com/latchkey-labs/rootref/memutils"
	"github.com/latchkey-labs/rootref/poolengine"
)

// PowerOfTwoError re-exports memutils.PowerOfTwoError so callers comparing
// against CheckPow2's failure don't need to import memutils themselves.
var PowerOfTwoError = memutils.PowerOfTwoError

// ErrNotSetUp and ErrInvalidHandle re-export the primary engine's error
// values so callers of the root facade never need to import poolengine
// directly just to compare against them.
var (
	ErrNotSetUp      = poolengine.ErrNotSetUp
	ErrInvalidHandle = poolengine.ErrInvalidHandle
)
