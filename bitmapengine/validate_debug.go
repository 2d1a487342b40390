//go:build debug_rootref

package bitmapengine

// debugValidate panics if Validate finds an inconsistency, mirroring
// poolengine's build-tag-gated assertion layer.
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
