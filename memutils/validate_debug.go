//go:build debug_rootref

package memutils

import "github.com/latchkey-labs/rootref/host"

// corruptionDetectionMagicValue is the word-sized marker PoisonWord writes
// into a slot's payload on release, the direct analogue of the teacher's
// corruptionDetectionMagicValue in validate_debug.go. The teacher pads
// DebugMargin bytes between variable-size allocations in a block; this
// module tracks exactly one machine word per tracked unit (spec.md §1's
// Non-goal: "only managed-heap references are stored"), so the whole word
// is poisoned rather than a margin region, and the low bit is forced set so
// a stray scan of a poisoned-but-still-linked free slot still sees
// something that looks like an immediate (spec.md §3's tag-bit trick).
const corruptionDetectionMagicValue host.Word = host.Word(0x7F84E666) | 1

// PoisonWord writes an easy-to-identify marker into w, the word-sized
// analogue of the teacher's WriteMagicValue. This method no-ops unless the
// debug_rootref build tag is present.
func PoisonWord(w *host.Word) {
	*w = corruptionDetectionMagicValue
}

// ValidatePoisoned reports whether w still holds the marker PoisonWord
// wrote, the word-sized analogue of the teacher's ValidateMagicValue. This
// method always returns true unless the debug_rootref build tag is
// present.
func ValidatePoisoned(w host.Word) bool {
	return w == corruptionDetectionMagicValue
}

// DebugValidate calls Validate on validatable and panics if it returns an
// error. No-ops unless the debug_rootref build tag is present.
func DebugValidate(validatable Validatable) {
	if err := validatable.Validate(); err != nil {
		panic(err)
	}
}

// DebugCheckPow2 panics if value is not a power of two. No-ops unless the
// debug_rootref build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	if err := CheckPow2[T](value, name); err != nil {
		panic(err)
	}
}
