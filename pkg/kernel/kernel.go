// Package kernel defines the abstract geometry kernel session.
// Implementations (sdfx, fake) provide solid modeling, boolean
// operations and mesh export behind this interface. The session
// abstraction allows swapping backends without changing the rest of
// the system; exactly one session drives a kernel at a time.
package kernel

import "fmt"

// Volume is an opaque handle to a solid body held by a session.
// Implementations wrap their internal representation.
type Volume interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Surface is an opaque handle to a boundary patch shared by two
// bodies, as returned by Session.Touching.
type Surface interface {
	// Volumes returns the two bodies the patch lies between.
	Volumes() (a, b Volume)
}

// Session is a stateful connection to a geometry kernel. Bodies live
// inside the session: primitives create them, booleans consume their
// operands, transforms move them in place. A session is not safe for
// concurrent use.
type Session interface {
	// Primitives. New bodies are centred on the origin.
	Box(dx, dy, dz float64) (Volume, error)
	Cylinder(height, radius float64) (Volume, error)

	// Boolean operations. Both operands are consumed and replaced by
	// the result.
	Union(a, b Volume) (Volume, error)
	Subtract(a, b Volume) (Volume, error)
	Intersect(a, b Volume) (Volume, error)

	// Transforms.
	Translate(v Volume, dx, dy, dz float64) error
	Rotate(v Volume, rx, ry, rz float64) error // Euler angles in degrees
	Scale(factor float64) error                // scales every body about the origin

	// ImprintAndMerge conforms coincident boundaries across all bodies
	// so that shared walls become single surfaces.
	ImprintAndMerge() error

	// Touching returns the boundary shared by a and b, or nil when the
	// bodies do not touch.
	Touching(a, b Volume) (Surface, error)

	// Identification for downstream export. NameVolume labels a single
	// body, AddToBlock groups bodies under a block label, NameSideset
	// groups boundary patches under a sideset label.
	NameVolume(v Volume, name string) error
	AddToBlock(block string, v Volume) error
	NameSideset(name string, surfaces ...Surface) error

	// MeshVolumes meshes every body at the given element size.
	MeshVolumes(size float64) error

	// Export writes the session's geometry or mesh to path. Geometry
	// formats work on the bodies directly; mesh formats require a
	// prior MeshVolumes call.
	ExportGeometry(format Format, path string, opts ExportOptions) error
	ExportMesh(format Format, path string, opts ExportOptions) error

	// Reset discards every body, block, sideset and mesh, returning
	// the session to its initial state.
	Reset() error
}

// Format identifies an export file format.
type Format string

const (
	STL Format = "stl" // geometry, triangle soup
	OBJ Format = "obj" // geometry, named objects
	VTK Format = "vtk" // mesh, legacy VTK unstructured grid
	MSH Format = "msh" // mesh, Gmsh 2.2
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case STL, OBJ, VTK, MSH:
		return Format(s), nil
	}
	return "", fmt.Errorf("kernel: unknown export format %q", s)
}

// Ext returns the file extension for the format, dot included.
func (f Format) Ext() string { return "." + string(f) }

// Geometry reports whether the format describes solid geometry.
func (f Format) Geometry() bool { return f == STL || f == OBJ }

// MeshFormat reports whether the format describes a computational mesh.
func (f Format) MeshFormat() bool { return f == VTK || f == MSH }

// ExportOptions carries per-format writer options.
type ExportOptions struct {
	// Binary selects the binary encoding for formats that have one
	// (STL, VTK). Formats without a binary encoding ignore it.
	Binary bool
}
