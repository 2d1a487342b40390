package linkedengine

import "github.com/pkg/errors"

// ErrNotSetUp is returned by Create when it is called before Setup has
// succeeded (spec.md §7, "Pre-setup misuse").
var ErrNotSetUp error = errors.New("linkedengine: create called before setup")

// ErrInvalidHandle is returned by operations given a nil handle.
var ErrInvalidHandle error = errors.New("linkedengine: nil or foreign handle")
