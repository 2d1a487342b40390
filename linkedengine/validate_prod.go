//go:build !debug_rootref

package linkedengine

// debugValidate is a no-op outside the debug_rootref build.
func (e *Engine) debugValidate() {}
