package component

import "fmt"

// UnknownClassError reports a class tag with no registered definition.
type UnknownClassError struct {
	Class string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("component: no class registered for tag %q", e.Class)
}

// InvalidGeometryError reports a geometry parameter that failed a
// class's sanity checks. Construction stops before any kernel call, so
// a session never sees a body from an invalid description.
type InvalidGeometryError struct {
	Class  string
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("component: class %q: geometry %q: %s", e.Class, e.Param, e.Reason)
}

// StructureError reports an assembly whose child slots do not satisfy
// the class's structural requirements. It names the first offending
// slot in declaration order.
type StructureError struct {
	Class  string
	Slot   string
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("component: class %q: slot %q %s", e.Class, e.Slot, e.Reason)
}
