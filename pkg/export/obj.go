package export

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ writes the pieces as a Wavefront OBJ file, one object per
// piece. Vertex indices are global and 1-based, so the objects can be
// concatenated without renumbering.
func WriteOBJ(w io.Writer, pieces []Piece) error {
	bw := bufio.NewWriter(w)

	offset := 1
	for _, p := range pieces {
		m := p.Mesh
		if m == nil || m.IsEmpty() {
			continue
		}
		name := p.Name
		if name == "" {
			name = "unnamed"
		}
		fmt.Fprintf(bw, "o %s\n", name)

		for i := 0; i < m.VertexCount(); i++ {
			v := m.Vertex(i)
			fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
		}
		withNormals := len(m.Normals) == len(m.Vertices)
		if withNormals {
			for i := 0; i < m.VertexCount(); i++ {
				fmt.Fprintf(bw, "vn %g %g %g\n",
					m.Normals[3*i], m.Normals[3*i+1], m.Normals[3*i+2])
			}
		}
		for t := 0; t < m.TriangleCount(); t++ {
			i := int(m.Indices[3*t]) + offset
			j := int(m.Indices[3*t+1]) + offset
			k := int(m.Indices[3*t+2]) + offset
			if withNormals {
				fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", i, i, j, j, k, k)
			} else {
				fmt.Fprintf(bw, "f %d %d %d\n", i, j, k)
			}
		}
		offset += m.VertexCount()
	}
	return bw.Flush()
}
