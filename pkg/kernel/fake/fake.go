// Package fake provides an in-memory geometry kernel session for
// tests. Bodies are tracked as axis-aligned bounding boxes; by default
// two bodies touch when their boxes intersect, and tests can script
// contacts and failures explicitly. Every call is appended to Calls so
// tests can assert on kernel traffic. The fake writes no files.
package fake

import (
	"fmt"
	"math"

	"github.com/mcattow/crucible/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Session = (*Session)(nil)
var _ kernel.Volume = (*Volume)(nil)
var _ kernel.Surface = (*Surface)(nil)

// contactEps is the slack used by the bounding-box contact heuristic,
// so abutting bodies count as touching.
const contactEps = 1e-9

// Volume is a fake body: a bounding box with a session-unique id.
type Volume struct {
	id       int
	min, max [3]float64
}

// BoundingBox returns the axis-aligned bounding box.
func (v *Volume) BoundingBox() (min, max [3]float64) { return v.min, v.max }

func (v *Volume) String() string { return fmt.Sprintf("v%d", v.id) }

// Surface is a fake boundary patch between two bodies.
type Surface struct {
	a, b kernel.Volume
}

// Volumes returns the two bodies the patch lies between.
func (s *Surface) Volumes() (a, b kernel.Volume) { return s.a, s.b }

// Export is one recorded export call.
type Export struct {
	Kind   string // "geometry" or "mesh"
	Format kernel.Format
	Path   string
	Opts   kernel.ExportOptions
}

// Session is the in-memory kernel double.
//
// Calls and Exports are audit logs: they record every kernel call and
// every export in order, and survive Reset.
type Session struct {
	Calls   []string
	Exports []Export

	nextID   int
	vols     []*Volume
	names    map[*Volume]string
	blocks   map[string][]*Volume
	blockTag []string // block labels in first-appearance order
	sidesets map[string][]kernel.Surface
	sideTag  []string // sideset labels in first-appearance order

	contacts map[[2]int]bool  // scripted contact overrides
	failures map[[2]int]error // scripted Touching failures

	meshed   bool
	meshSize float64
}

// New returns an empty fake session.
func New() *Session {
	s := &Session{}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.vols = nil
	s.names = make(map[*Volume]string)
	s.blocks = make(map[string][]*Volume)
	s.blockTag = nil
	s.sidesets = make(map[string][]kernel.Surface)
	s.sideTag = nil
	s.contacts = make(map[[2]int]bool)
	s.failures = make(map[[2]int]error)
	s.meshed = false
	s.meshSize = 0
}

func (s *Session) record(format string, args ...any) {
	s.Calls = append(s.Calls, fmt.Sprintf(format, args...))
}

// lookup checks that v is a live body of this session.
func (s *Session) lookup(v kernel.Volume) (*Volume, error) {
	fv, ok := v.(*Volume)
	if !ok {
		return nil, fmt.Errorf("fake: foreign volume %T", v)
	}
	for _, live := range s.vols {
		if live == fv {
			return fv, nil
		}
	}
	return nil, fmt.Errorf("fake: volume %s is not a live body (consumed or reset?)", fv)
}

func (s *Session) newVolume(min, max [3]float64) *Volume {
	s.nextID++
	v := &Volume{id: s.nextID, min: min, max: max}
	s.vols = append(s.vols, v)
	return v
}

func (s *Session) drop(v *Volume) {
	for i, live := range s.vols {
		if live == v {
			s.vols = append(s.vols[:i], s.vols[i+1:]...)
			return
		}
	}
}

// --- Primitives ---

// Box creates an axis-aligned box centred on the origin.
func (s *Session) Box(dx, dy, dz float64) (kernel.Volume, error) {
	v := s.newVolume(
		[3]float64{-dx / 2, -dy / 2, -dz / 2},
		[3]float64{dx / 2, dy / 2, dz / 2},
	)
	s.record("Box(%g,%g,%g) = %s", dx, dy, dz, v)
	return v, nil
}

// Cylinder creates a cylinder along the z axis centred on the origin.
func (s *Session) Cylinder(height, radius float64) (kernel.Volume, error) {
	v := s.newVolume(
		[3]float64{-radius, -radius, -height / 2},
		[3]float64{radius, radius, height / 2},
	)
	s.record("Cylinder(%g,%g) = %s", height, radius, v)
	return v, nil
}

// --- Booleans ---

func (s *Session) boolean(op string, a, b kernel.Volume) (*Volume, *Volume, error) {
	va, err := s.lookup(a)
	if err != nil {
		return nil, nil, err
	}
	vb, err := s.lookup(b)
	if err != nil {
		return nil, nil, err
	}
	if va == vb {
		return nil, nil, fmt.Errorf("fake: %s of a body with itself", op)
	}
	return va, vb, nil
}

// Union replaces a and b with a body covering both boxes.
func (s *Session) Union(a, b kernel.Volume) (kernel.Volume, error) {
	va, vb, err := s.boolean("union", a, b)
	if err != nil {
		return nil, err
	}
	s.drop(va)
	s.drop(vb)
	v := s.newVolume(
		[3]float64{math.Min(va.min[0], vb.min[0]), math.Min(va.min[1], vb.min[1]), math.Min(va.min[2], vb.min[2])},
		[3]float64{math.Max(va.max[0], vb.max[0]), math.Max(va.max[1], vb.max[1]), math.Max(va.max[2], vb.max[2])},
	)
	s.record("Union(%s,%s) = %s", va, vb, v)
	return v, nil
}

// Subtract replaces a and b with a minus b. The fake keeps a's box,
// which is the tightest bound it can know.
func (s *Session) Subtract(a, b kernel.Volume) (kernel.Volume, error) {
	va, vb, err := s.boolean("subtract", a, b)
	if err != nil {
		return nil, err
	}
	s.drop(va)
	s.drop(vb)
	v := s.newVolume(va.min, va.max)
	s.record("Subtract(%s,%s) = %s", va, vb, v)
	return v, nil
}

// Intersect replaces a and b with the box overlap, collapsed to a
// point at the origin when the boxes are disjoint.
func (s *Session) Intersect(a, b kernel.Volume) (kernel.Volume, error) {
	va, vb, err := s.boolean("intersect", a, b)
	if err != nil {
		return nil, err
	}
	s.drop(va)
	s.drop(vb)
	var min, max [3]float64
	for i := 0; i < 3; i++ {
		min[i] = math.Max(va.min[i], vb.min[i])
		max[i] = math.Min(va.max[i], vb.max[i])
		if min[i] > max[i] {
			min, max = [3]float64{}, [3]float64{}
			break
		}
	}
	v := s.newVolume(min, max)
	s.record("Intersect(%s,%s) = %s", va, vb, v)
	return v, nil
}

// --- Transforms ---

// Translate shifts a body in place.
func (s *Session) Translate(v kernel.Volume, dx, dy, dz float64) error {
	fv, err := s.lookup(v)
	if err != nil {
		return err
	}
	d := [3]float64{dx, dy, dz}
	for i := 0; i < 3; i++ {
		fv.min[i] += d[i]
		fv.max[i] += d[i]
	}
	s.record("Translate(%s,%g,%g,%g)", fv, dx, dy, dz)
	return nil
}

// Rotate rotates a body about the origin by Euler angles in degrees,
// applied X then Y then Z. The fake stores the envelope of the rotated
// box corners.
func (s *Session) Rotate(v kernel.Volume, rx, ry, rz float64) error {
	fv, err := s.lookup(v)
	if err != nil {
		return err
	}
	min := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, c := range corners(fv.min, fv.max) {
		p := rotateXYZ(c, rx, ry, rz)
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], p[i])
			max[i] = math.Max(max[i], p[i])
		}
	}
	fv.min, fv.max = min, max
	s.record("Rotate(%s,%g,%g,%g)", fv, rx, ry, rz)
	return nil
}

// Scale scales every body about the origin.
func (s *Session) Scale(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("fake: scale factor %g not positive", factor)
	}
	for _, v := range s.vols {
		for i := 0; i < 3; i++ {
			v.min[i] *= factor
			v.max[i] *= factor
		}
	}
	s.record("Scale(%g)", factor)
	return nil
}

// ImprintAndMerge records the call; the fake has no boundaries to
// conform.
func (s *Session) ImprintAndMerge() error {
	s.record("ImprintAndMerge()")
	return nil
}

// --- Contact ---

func pairKey(a, b *Volume) [2]int {
	if a.id > b.id {
		a, b = b, a
	}
	return [2]int{a.id, b.id}
}

// Connect scripts a contact between two bodies, overriding the
// bounding-box heuristic.
func (s *Session) Connect(a, b kernel.Volume) {
	s.contacts[pairKey(a.(*Volume), b.(*Volume))] = true
}

// Disconnect scripts the absence of contact between two bodies.
func (s *Session) Disconnect(a, b kernel.Volume) {
	s.contacts[pairKey(a.(*Volume), b.(*Volume))] = false
}

// FailTouching makes Touching(a, b) fail with err, in either order.
func (s *Session) FailTouching(a, b kernel.Volume, err error) {
	s.failures[pairKey(a.(*Volume), b.(*Volume))] = err
}

// Touching returns the boundary shared by a and b. Without a scripted
// override, two distinct bodies touch when their boxes intersect.
func (s *Session) Touching(a, b kernel.Volume) (kernel.Surface, error) {
	va, err := s.lookup(a)
	if err != nil {
		return nil, err
	}
	vb, err := s.lookup(b)
	if err != nil {
		return nil, err
	}
	s.record("Touching(%s,%s)", va, vb)
	if va == vb {
		return nil, nil
	}
	if err, ok := s.failures[pairKey(va, vb)]; ok {
		return nil, err
	}
	touching, scripted := s.contacts[pairKey(va, vb)]
	if !scripted {
		touching = boxesIntersect(va, vb)
	}
	if !touching {
		return nil, nil
	}
	return &Surface{a: va, b: vb}, nil
}

func boxesIntersect(a, b *Volume) bool {
	for i := 0; i < 3; i++ {
		if a.min[i] > b.max[i]+contactEps || b.min[i] > a.max[i]+contactEps {
			return false
		}
	}
	return true
}

// --- Identification ---

// NameVolume labels a single body.
func (s *Session) NameVolume(v kernel.Volume, name string) error {
	fv, err := s.lookup(v)
	if err != nil {
		return err
	}
	s.names[fv] = name
	s.record("NameVolume(%s,%q)", fv, name)
	return nil
}

// AddToBlock adds a body to the named block.
func (s *Session) AddToBlock(block string, v kernel.Volume) error {
	fv, err := s.lookup(v)
	if err != nil {
		return err
	}
	if _, ok := s.blocks[block]; !ok {
		s.blockTag = append(s.blockTag, block)
	}
	s.blocks[block] = append(s.blocks[block], fv)
	s.record("AddToBlock(%q,%s)", block, fv)
	return nil
}

// NameSideset groups boundary patches under a sideset label.
func (s *Session) NameSideset(name string, surfaces ...kernel.Surface) error {
	if _, ok := s.sidesets[name]; !ok {
		s.sideTag = append(s.sideTag, name)
	}
	s.sidesets[name] = append(s.sidesets[name], surfaces...)
	s.record("NameSideset(%q,%d surfaces)", name, len(surfaces))
	return nil
}

// --- Meshing and export ---

// MeshVolumes marks the session as meshed.
func (s *Session) MeshVolumes(size float64) error {
	if size <= 0 {
		return fmt.Errorf("fake: mesh size %g not positive", size)
	}
	s.meshed = true
	s.meshSize = size
	s.record("MeshVolumes(%g)", size)
	return nil
}

// ExportGeometry records a geometry export without writing a file.
func (s *Session) ExportGeometry(format kernel.Format, path string, opts kernel.ExportOptions) error {
	if !format.Geometry() {
		return fmt.Errorf("fake: %s is not a geometry format", format)
	}
	s.Exports = append(s.Exports, Export{Kind: "geometry", Format: format, Path: path, Opts: opts})
	s.record("ExportGeometry(%s,%q)", format, path)
	return nil
}

// ExportMesh records a mesh export without writing a file. The session
// must have been meshed first.
func (s *Session) ExportMesh(format kernel.Format, path string, opts kernel.ExportOptions) error {
	if !format.MeshFormat() {
		return fmt.Errorf("fake: %s is not a mesh format", format)
	}
	if !s.meshed {
		return fmt.Errorf("fake: no mesh: call MeshVolumes first")
	}
	s.Exports = append(s.Exports, Export{Kind: "mesh", Format: format, Path: path, Opts: opts})
	s.record("ExportMesh(%s,%q)", format, path)
	return nil
}

// Reset discards every body, name, block, sideset, scripted contact
// and mesh. The Calls and Exports audit logs survive.
func (s *Session) Reset() error {
	s.clear()
	s.record("Reset()")
	return nil
}

// --- Test observability ---

// Volumes returns the live bodies in creation order.
func (s *Session) Volumes() []kernel.Volume {
	out := make([]kernel.Volume, len(s.vols))
	for i, v := range s.vols {
		out[i] = v
	}
	return out
}

// NameOf returns the label assigned to v, if any.
func (s *Session) NameOf(v kernel.Volume) string {
	fv, ok := v.(*Volume)
	if !ok {
		return ""
	}
	return s.names[fv]
}

// Blocks returns the block labels in first-appearance order.
func (s *Session) Blocks() []string {
	out := make([]string, len(s.blockTag))
	copy(out, s.blockTag)
	return out
}

// BlockMembers returns the bodies added to the named block, in order.
func (s *Session) BlockMembers(block string) []kernel.Volume {
	members := s.blocks[block]
	out := make([]kernel.Volume, len(members))
	for i, v := range members {
		out[i] = v
	}
	return out
}

// Sidesets returns the sideset labels in first-appearance order.
func (s *Session) Sidesets() []string {
	out := make([]string, len(s.sideTag))
	copy(out, s.sideTag)
	return out
}

// SidesetSurfaces returns the boundary patches grouped under name.
func (s *Session) SidesetSurfaces(name string) []kernel.Surface {
	out := make([]kernel.Surface, len(s.sidesets[name]))
	copy(out, s.sidesets[name])
	return out
}

// Meshed reports whether MeshVolumes has run, and at what size.
func (s *Session) Meshed() (bool, float64) { return s.meshed, s.meshSize }

// --- Small geometry helpers ---

func corners(min, max [3]float64) [8][3]float64 {
	var out [8][3]float64
	i := 0
	for _, x := range [2]float64{min[0], max[0]} {
		for _, y := range [2]float64{min[1], max[1]} {
			for _, z := range [2]float64{min[2], max[2]} {
				out[i] = [3]float64{x, y, z}
				i++
			}
		}
	}
	return out
}

func rotateXYZ(p [3]float64, rx, ry, rz float64) [3]float64 {
	p = rotAxis(p, rx, 1, 2)
	p = rotAxis(p, ry, 2, 0)
	p = rotAxis(p, rz, 0, 1)
	return p
}

// rotAxis rotates p by deg degrees in the (i, j) plane.
func rotAxis(p [3]float64, deg float64, i, j int) [3]float64 {
	if deg == 0 {
		return p
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	pi, pj := p[i], p[j]
	p[i] = pi*cos - pj*sin
	p[j] = pi*sin + pj*cos
	return p
}
