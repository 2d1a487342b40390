//go:build debug_rootref

package linkedengine

// debugValidate panics if Validate finds an inconsistency, matching
// poolengine's and bitmapengine's debug-build behavior.
func (e *Engine) debugValidate() {
	if e.cfg.DebugLevel <= 0 {
		return
	}
	if err := e.Validate(); err != nil {
		panic(err)
	}
	if err := e.validatePoison(); err != nil {
		panic(err)
	}
}
