//go:build debug_rootref

package poolengine

// debugValidate panics if Validate finds an inconsistency. Internal
// corruption (spec.md §7, "Internal corruption (asserted in debug builds
// only)") is meant to be fatal and unrecoverable, matching the teacher's
// memutils.DebugValidate behavior under debug_mem_utils.
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
