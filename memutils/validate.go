package memutils

// Validatable is implemented by anything DebugValidate can assert against,
// matching the teacher's memutils.Validatable.
type Validatable interface {
	Validate() error
}
