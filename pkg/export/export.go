// Package export writes triangle meshes to interchange file formats.
// Geometry formats (STL, OBJ) carry bare triangles; mesh formats (VTK,
// MSH) additionally carry block membership so downstream solvers can
// address material groups.
package export

import (
	"math"

	"github.com/mcattow/crucible/pkg/kernel"
)

// Piece is one named triangle mesh together with the block it belongs
// to. Writers receive the session's bodies as a flat list of pieces.
type Piece struct {
	Name  string // volume name, may be empty
	Block string // block label, empty when the body is unblocked
	Mesh  *kernel.Mesh
}

// facetNormal returns the unit normal of the triangle (a, b, c), or the
// zero vector for a degenerate triangle.
func facetNormal(a, b, c [3]float64) [3]float64 {
	u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := [3]float64{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
	length := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if length == 0 {
		return [3]float64{}
	}
	return [3]float64{n[0] / length, n[1] / length, n[2] / length}
}

// blockIDs assigns 1-based ids to block labels in order of first
// appearance. Pieces without a block share id 0.
func blockIDs(pieces []Piece) (map[string]int, []string) {
	ids := make(map[string]int)
	var order []string
	for _, p := range pieces {
		if p.Block == "" {
			continue
		}
		if _, ok := ids[p.Block]; ok {
			continue
		}
		ids[p.Block] = len(order) + 1
		order = append(order, p.Block)
	}
	return ids, order
}

// totals returns the vertex and triangle counts over all pieces.
func totals(pieces []Piece) (vertices, triangles int) {
	for _, p := range pieces {
		if p.Mesh == nil {
			continue
		}
		vertices += p.Mesh.VertexCount()
		triangles += p.Mesh.TriangleCount()
	}
	return
}
