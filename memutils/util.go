// Package memutils is a leaf utility package shared by rootref and its
// three engine packages, the direct analogue of the teacher's own
// `memutils` package (imported by `vam` the same way this module's root
// package imports this one): power-of-two checking, alignment arithmetic,
// and the build-tag-gated debug assertion / corruption-marker machinery,
// kept separate from any engine so every package that needs them can
// import this one without creating an import cycle back into rootref.
package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

// Number is the set of integer types CheckPow2, AlignUp, and AlignDown
// accept.
type Number interface {
	~int | ~uint
}

// CheckPow2 returns PowerOfTwoError (wrapped with name and the offending
// value) if number is not a power of two.
func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment, which must be
// a power of two. Used by host/hostfake's page allocator to slide a raw
// mmap'd region forward to a size-aligned start address.
func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// AlignDown rounds value down to the previous multiple of alignment, which
// must be a power of two. Used by poolengine.Validate to confirm the host
// actually handed back a pool-size-aligned region, per spec.md §3's
// "Alignment is required so that, given any slot pointer, the owning pool
// header is recovered by masking off the low bits."
func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}
