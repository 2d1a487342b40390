package poolengine

import "github.com/pkg/errors"

// ErrNotSetUp is returned by Create when it is called before Setup has
// succeeded (spec.md §7, "Pre-setup misuse").
var ErrNotSetUp error = errors.New("poolengine: create called before setup")

// ErrInvalidHandle is returned by operations given a nil handle. Per
// spec.md §7 an invalid handle is formally undefined behavior for an engine
// built to the original contract, but a typed Go handle lets us detect the
// nil case cheaply and fail loudly instead of corrupting state; a non-nil
// handle from another engine is not detected.
var ErrInvalidHandle error = errors.New("poolengine: nil or foreign handle")
