//go:build !debug_rootref

package memutils

import "github.com/latchkey-labs/rootref/host"

// PoisonWord is a no-op outside the debug_rootref build, matching the
// teacher's WriteMagicValue in validate_prod.go.
func PoisonWord(w *host.Word) {}

// ValidatePoisoned always reports true outside the debug_rootref build,
// matching the teacher's ValidateMagicValue in validate_prod.go.
func ValidatePoisoned(w host.Word) bool { return true }

// DebugValidate is a no-op outside the debug_rootref build.
func DebugValidate(validatable Validatable) {}

// DebugCheckPow2 is a no-op outside the debug_rootref build.
func DebugCheckPow2[T Number](value T, name string) {}
