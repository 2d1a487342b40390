//go:build !debug_rootref

package bitmapengine

// debugValidate is a no-op outside the debug_rootref build.
func (e *Engine) debugValidate() {}
