package design

import (
	"fmt"
	"strings"
)

// ReferenceError reports a `components` file reference that could not
// be loaded or parsed.
type ReferenceError struct {
	Name string // the reference as written in the tree
	Err  error  // underlying load/parse failure
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("design: reference %q: %v", e.Name, e.Err)
}

func (e *ReferenceError) Unwrap() error { return e.Err }

// CycleError reports a reference chain that revisits a file already
// being resolved. Stack holds the chain oldest-first; the last entry
// is the reference that closed the cycle.
type CycleError struct {
	Stack []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("design: reference cycle: %s", strings.Join(e.Stack, " -> "))
}

// PathError reports a failed path-addressed get or set.
type PathError struct {
	Path    string // the full delimiter-joined path
	Segment string // the segment that failed
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("design: path %q: segment %q: %s", e.Path, e.Segment, e.Reason)
}

// TemplateError reports a user-supplied key with no counterpart in the
// class template.
type TemplateError struct {
	Class string
	Key   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("design: class %q: template defines no parameter %q", e.Class, e.Key)
}
