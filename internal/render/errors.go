package render

import "fmt"

// InvalidContentError is returned when a content provider yields
// anything but a string-keyed mapping.
type InvalidContentError struct {
	Module string // offending module name
	Dir    string // directory the module was loaded from
	Value  any    // the rejected provider result
}

func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("content provider for module %q in %s must return a string-keyed mapping, got %T",
		e.Module, e.Dir, e.Value)
}
