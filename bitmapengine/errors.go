package bitmapengine

import "github.com/pkg/errors"

// ErrNotSetUp is returned by Create when it is called before Setup has
// succeeded (spec.md §7, "Pre-setup misuse").
var ErrNotSetUp error = errors.New("bitmapengine: create called before setup")

// ErrInvalidHandle is returned by operations given a nil handle.
var ErrInvalidHandle error = errors.New("bitmapengine: nil or foreign handle")
