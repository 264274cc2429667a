package export

import (
	"bufio"
	"fmt"
	"io"
)

// mshTriangle is the Gmsh element type id for a 3-node triangle.
const mshTriangle = 2

// WriteMSH writes the pieces in the Gmsh 2.2 ASCII format. Block labels
// become surface physical groups, so solvers reading the file can
// address material regions by name. Node and element ids are global and
// 1-based.
func WriteMSH(w io.Writer, pieces []Piece) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")

	ids, order := blockIDs(pieces)
	if len(order) > 0 {
		fmt.Fprintf(bw, "$PhysicalNames\n%d\n", len(order))
		for _, name := range order {
			fmt.Fprintf(bw, "2 %d %q\n", ids[name], name)
		}
		fmt.Fprintf(bw, "$EndPhysicalNames\n")
	}

	vertices, triangles := totals(pieces)

	fmt.Fprintf(bw, "$Nodes\n%d\n", vertices)
	node := 1
	for _, p := range pieces {
		m := p.Mesh
		if m == nil {
			continue
		}
		for i := 0; i < m.VertexCount(); i++ {
			v := m.Vertex(i)
			fmt.Fprintf(bw, "%d %g %g %g\n", node, v[0], v[1], v[2])
			node++
		}
	}
	fmt.Fprintf(bw, "$EndNodes\n")

	fmt.Fprintf(bw, "$Elements\n%d\n", triangles)
	elem := 1
	offset := 1
	for pi, p := range pieces {
		m := p.Mesh
		if m == nil {
			continue
		}
		phys := ids[p.Block] // 0 when unblocked
		for t := 0; t < m.TriangleCount(); t++ {
			fmt.Fprintf(bw, "%d %d 2 %d %d %d %d %d\n",
				elem, mshTriangle, phys, pi+1,
				int(m.Indices[3*t])+offset,
				int(m.Indices[3*t+1])+offset,
				int(m.Indices[3*t+2])+offset)
			elem++
		}
		offset += m.VertexCount()
	}
	fmt.Fprintf(bw, "$EndElements\n")

	return bw.Flush()
}
