// Package sdfx implements the kernel.Session interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Bodies are signed
// distance fields; boolean results stay exact and are only tessellated
// for contact queries, meshing and export.
package sdfx

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/mcattow/crucible/pkg/export"
	"github.com/mcattow/crucible/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Session = (*Session)(nil)
var _ kernel.Volume = (*solid)(nil)
var _ kernel.Surface = (*surface)(nil)

// defaultMeshCells controls marching cubes resolution for geometry
// exports when no mesh size has been set.
const defaultMeshCells = 200

// contactCells is the coarse marching cubes resolution used to sample
// a body's surface for contact queries.
const contactCells = 64

// contactMinPoints is the number of surface samples that must lie on
// the other body before a contact patch is reported. Grazing contacts
// at an edge or corner fall under this and are not boundaries.
const contactMinPoints = 3

// solid wraps an sdf.SDF3 to implement kernel.Volume.
type solid struct {
	id int
	s  sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (v *solid) BoundingBox() (min, max [3]float64) {
	bb := v.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

func (v *solid) String() string { return fmt.Sprintf("v%d", v.id) }

// surface is a contact patch between two bodies found by Touching.
type surface struct {
	a, b   *solid
	points int // surface samples that hit the patch
}

// Volumes returns the two bodies the patch lies between.
func (s *surface) Volumes() (a, b kernel.Volume) { return s.a, s.b }

// Session implements kernel.Session on sdfx signed distance fields.
type Session struct {
	nextID int
	vols   []*solid

	names    map[*solid]string
	blocks   map[string][]*solid
	blockTag []string
	sidesets map[string][]kernel.Surface
	sideTag  []string

	meshed bool
	meshes map[*solid]*kernel.Mesh

	// contact caches the coarse surface tessellation per body, dropped
	// whenever the body moves.
	contact map[*solid]*kernel.Mesh
}

// New returns an empty sdfx session.
func New() *Session {
	s := &Session{}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.vols = nil
	s.names = make(map[*solid]string)
	s.blocks = make(map[string][]*solid)
	s.blockTag = nil
	s.sidesets = make(map[string][]kernel.Surface)
	s.sideTag = nil
	s.meshed = false
	s.meshes = make(map[*solid]*kernel.Mesh)
	s.contact = make(map[*solid]*kernel.Mesh)
}

// unwrap checks that v is a live body of this session.
func (s *Session) unwrap(v kernel.Volume) (*solid, error) {
	sv, ok := v.(*solid)
	if !ok {
		return nil, fmt.Errorf("sdfx: foreign volume %T", v)
	}
	for _, live := range s.vols {
		if live == sv {
			return sv, nil
		}
	}
	return nil, fmt.Errorf("sdfx: volume %s is not a live body (consumed or reset?)", sv)
}

func (s *Session) add(sdf3 sdf.SDF3) *solid {
	s.nextID++
	v := &solid{id: s.nextID, s: sdf3}
	s.vols = append(s.vols, v)
	return v
}

func (s *Session) drop(v *solid) {
	for i, live := range s.vols {
		if live == v {
			s.vols = append(s.vols[:i], s.vols[i+1:]...)
			break
		}
	}
	delete(s.contact, v)
	delete(s.meshes, v)
}

// invalidate drops cached tessellations after a body moves.
func (s *Session) invalidate(v *solid) {
	delete(s.contact, v)
}

// --- Primitives ---

// Box creates a box centred on the origin.
func (s *Session) Box(dx, dy, dz float64) (kernel.Volume, error) {
	sdf3, err := sdf.Box3D(v3.Vec{X: dx, Y: dy, Z: dz}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	return s.add(sdf3), nil
}

// Cylinder creates a cylinder along the z axis centred on the origin.
func (s *Session) Cylinder(height, radius float64) (kernel.Volume, error) {
	sdf3, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return s.add(sdf3), nil
}

// --- Booleans ---

func (s *Session) operands(op string, a, b kernel.Volume) (*solid, *solid, error) {
	va, err := s.unwrap(a)
	if err != nil {
		return nil, nil, err
	}
	vb, err := s.unwrap(b)
	if err != nil {
		return nil, nil, err
	}
	if va == vb {
		return nil, nil, fmt.Errorf("sdfx: %s of a body with itself", op)
	}
	return va, vb, nil
}

// Union replaces a and b with their boolean union.
func (s *Session) Union(a, b kernel.Volume) (kernel.Volume, error) {
	va, vb, err := s.operands("union", a, b)
	if err != nil {
		return nil, err
	}
	s.drop(va)
	s.drop(vb)
	return s.add(sdf.Union3D(va.s, vb.s)), nil
}

// Subtract replaces a and b with a minus b.
func (s *Session) Subtract(a, b kernel.Volume) (kernel.Volume, error) {
	va, vb, err := s.operands("subtract", a, b)
	if err != nil {
		return nil, err
	}
	s.drop(va)
	s.drop(vb)
	return s.add(sdf.Difference3D(va.s, vb.s)), nil
}

// Intersect replaces a and b with their boolean intersection.
func (s *Session) Intersect(a, b kernel.Volume) (kernel.Volume, error) {
	va, vb, err := s.operands("intersect", a, b)
	if err != nil {
		return nil, err
	}
	s.drop(va)
	s.drop(vb)
	return s.add(sdf.Intersect3D(va.s, vb.s)), nil
}

// --- Transforms ---

// Translate moves a body in place.
func (s *Session) Translate(v kernel.Volume, dx, dy, dz float64) error {
	sv, err := s.unwrap(v)
	if err != nil {
		return err
	}
	m := sdf.Translate3d(v3.Vec{X: dx, Y: dy, Z: dz})
	sv.s = sdf.Transform3D(sv.s, m)
	s.invalidate(sv)
	return nil
}

// Rotate rotates a body about the origin by Euler angles in degrees,
// applied X then Y then Z.
func (s *Session) Rotate(v kernel.Volume, rx, ry, rz float64) error {
	sv, err := s.unwrap(v)
	if err != nil {
		return err
	}
	xRad := rx * math.Pi / 180.0
	yRad := ry * math.Pi / 180.0
	zRad := rz * math.Pi / 180.0
	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad).Mul(sdf.RotateX(xRad)))
	sv.s = sdf.Transform3D(sv.s, m)
	s.invalidate(sv)
	return nil
}

// Scale scales every body about the origin.
func (s *Session) Scale(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("sdfx: scale factor %g not positive", factor)
	}
	m := sdf.Scale3d(v3.Vec{X: factor, Y: factor, Z: factor})
	for _, v := range s.vols {
		v.s = sdf.Transform3D(v.s, m)
		s.invalidate(v)
	}
	return nil
}

// ImprintAndMerge is a no-op for signed distance fields: coincident
// boundaries already evaluate identically on both bodies, which is
// what the contact query relies on.
func (s *Session) ImprintAndMerge() error { return nil }

// --- Contact ---

// Touching samples the surface of the smaller body and evaluates the
// other body's distance field at each sample. Samples within the
// contact tolerance lie on both boundaries; enough of them make a
// contact patch.
func (s *Session) Touching(a, b kernel.Volume) (kernel.Surface, error) {
	va, err := s.unwrap(a)
	if err != nil {
		return nil, err
	}
	vb, err := s.unwrap(b)
	if err != nil {
		return nil, err
	}
	if va == vb {
		return nil, nil
	}

	tol := contactTolerance(va, vb)
	if !overlap(va, vb, tol) {
		return nil, nil
	}

	// Sample the smaller body: its coarse tessellation is denser
	// relative to the shared boundary.
	probe, against := va, vb
	if diagonal(vb) < diagonal(va) {
		probe, against = vb, va
	}
	samples, err := s.contactSamples(probe)
	if err != nil {
		return nil, err
	}

	count := 0
	for i := 0; i < samples.VertexCount(); i++ {
		p := samples.Vertex(i)
		d := against.s.Evaluate(v3.Vec{X: p[0], Y: p[1], Z: p[2]})
		if math.Abs(d) <= tol {
			count++
		}
	}
	if count < contactMinPoints {
		return nil, nil
	}
	return &surface{a: va, b: vb, points: count}, nil
}

func (s *Session) contactSamples(v *solid) (*kernel.Mesh, error) {
	if m, ok := s.contact[v]; ok {
		return m, nil
	}
	m := tessellate(v.s, contactCells)
	if m.IsEmpty() {
		return nil, fmt.Errorf("sdfx: volume %s produced no surface samples", v)
	}
	s.contact[v] = m
	return m, nil
}

// contactTolerance is a quarter of the coarse sampling cell size, so
// bodies separated by a real gap do not register as touching.
func contactTolerance(a, b *solid) float64 {
	d := math.Max(diagonal(a), diagonal(b))
	return d / contactCells / 4
}

func diagonal(v *solid) float64 {
	min, max := v.BoundingBox()
	dx := max[0] - min[0]
	dy := max[1] - min[1]
	dz := max[2] - min[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func overlap(a, b *solid, tol float64) bool {
	amin, amax := a.BoundingBox()
	bmin, bmax := b.BoundingBox()
	for i := 0; i < 3; i++ {
		if amin[i] > bmax[i]+tol || bmin[i] > amax[i]+tol {
			return false
		}
	}
	return true
}

// --- Identification ---

// NameVolume labels a single body.
func (s *Session) NameVolume(v kernel.Volume, name string) error {
	sv, err := s.unwrap(v)
	if err != nil {
		return err
	}
	s.names[sv] = name
	return nil
}

// AddToBlock adds a body to the named block.
func (s *Session) AddToBlock(block string, v kernel.Volume) error {
	sv, err := s.unwrap(v)
	if err != nil {
		return err
	}
	if _, ok := s.blocks[block]; !ok {
		s.blockTag = append(s.blockTag, block)
	}
	s.blocks[block] = append(s.blocks[block], sv)
	return nil
}

// NameSideset groups boundary patches under a sideset label.
func (s *Session) NameSideset(name string, surfaces ...kernel.Surface) error {
	if _, ok := s.sidesets[name]; !ok {
		s.sideTag = append(s.sideTag, name)
	}
	s.sidesets[name] = append(s.sidesets[name], surfaces...)
	return nil
}

// blockOf returns the block label of v, or "".
func (s *Session) blockOf(v *solid) string {
	for _, tag := range s.blockTag {
		for _, member := range s.blocks[tag] {
			if member == v {
				return tag
			}
		}
	}
	return ""
}

// --- Meshing and export ---

// MeshVolumes tessellates every body at the given element size.
func (s *Session) MeshVolumes(size float64) error {
	if size <= 0 {
		return fmt.Errorf("sdfx: mesh size %g not positive", size)
	}
	for _, v := range s.vols {
		s.meshes[v] = tessellate(v.s, cellsFor(v, size))
	}
	s.meshed = true
	return nil
}

// cellsFor maps an element size to a marching cubes resolution for the
// body's longest axis.
func cellsFor(v *solid, size float64) int {
	min, max := v.BoundingBox()
	longest := 0.0
	for i := 0; i < 3; i++ {
		longest = math.Max(longest, max[i]-min[i])
	}
	cells := int(math.Ceil(longest / size))
	if cells < 8 {
		cells = 8
	}
	if cells > 512 {
		cells = 512
	}
	return cells
}

// pieces assembles the per-body export inputs in creation order.
func (s *Session) pieces(meshFor func(*solid) *kernel.Mesh) []export.Piece {
	out := make([]export.Piece, 0, len(s.vols))
	for _, v := range s.vols {
		out = append(out, export.Piece{
			Name:  s.names[v],
			Block: s.blockOf(v),
			Mesh:  meshFor(v),
		})
	}
	return out
}

// ExportGeometry tessellates the bodies and writes them to path.
func (s *Session) ExportGeometry(format kernel.Format, path string, opts kernel.ExportOptions) error {
	if !format.Geometry() {
		return fmt.Errorf("sdfx: %s is not a geometry format", format)
	}
	pieces := s.pieces(func(v *solid) *kernel.Mesh {
		if m, ok := s.meshes[v]; ok {
			return m
		}
		return tessellate(v.s, defaultMeshCells)
	})
	return writeFile(path, func(w io.Writer) error {
		switch format {
		case kernel.STL:
			return export.WriteSTL(w, pieces, opts.Binary)
		case kernel.OBJ:
			return export.WriteOBJ(w, pieces)
		}
		return fmt.Errorf("sdfx: unhandled geometry format %s", format)
	})
}

// ExportMesh writes the meshed bodies to path. MeshVolumes must have
// run first.
func (s *Session) ExportMesh(format kernel.Format, path string, opts kernel.ExportOptions) error {
	if !format.MeshFormat() {
		return fmt.Errorf("sdfx: %s is not a mesh format", format)
	}
	if !s.meshed {
		return fmt.Errorf("sdfx: no mesh: call MeshVolumes first")
	}
	pieces := s.pieces(func(v *solid) *kernel.Mesh { return s.meshes[v] })
	return writeFile(path, func(w io.Writer) error {
		switch format {
		case kernel.VTK:
			return export.WriteVTK(w, pieces, opts.Binary)
		case kernel.MSH:
			return export.WriteMSH(w, pieces)
		}
		return fmt.Errorf("sdfx: unhandled mesh format %s", format)
	})
}

// Reset discards every body, name, block, sideset and mesh.
func (s *Session) Reset() error {
	s.clear()
	return nil
}

// tessellate converts an SDF to a triangle mesh using marching cubes.
func tessellate(sdf3 sdf.SDF3, cells int) *kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
