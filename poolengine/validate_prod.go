//go:build !debug_rootref

package poolengine

// debugValidate is a no-op outside the debug_rootref build, matching the
// teacher's validate_prod.go.
func (e *Engine) debugValidate() {}
