package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// WriteSTL writes the pieces as a single STL solid. STL carries no part
// or block structure, so the pieces are flattened to one triangle soup.
// Facet normals are recomputed from the triangle winding.
func WriteSTL(w io.Writer, pieces []Piece, binaryEncoding bool) error {
	if binaryEncoding {
		return writeSTLBinary(w, pieces)
	}
	return writeSTLASCII(w, pieces)
}

func writeSTLASCII(w io.Writer, pieces []Piece) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid model\n")
	for _, p := range pieces {
		m := p.Mesh
		if m == nil {
			continue
		}
		for t := 0; t < m.TriangleCount(); t++ {
			a := m.Vertex(int(m.Indices[3*t]))
			b := m.Vertex(int(m.Indices[3*t+1]))
			c := m.Vertex(int(m.Indices[3*t+2]))
			n := facetNormal(a, b, c)
			fmt.Fprintf(bw, "  facet normal %g %g %g\n", n[0], n[1], n[2])
			fmt.Fprintf(bw, "    outer loop\n")
			for _, v := range [][3]float64{a, b, c} {
				fmt.Fprintf(bw, "      vertex %g %g %g\n", v[0], v[1], v[2])
			}
			fmt.Fprintf(bw, "    endloop\n")
			fmt.Fprintf(bw, "  endfacet\n")
		}
	}
	fmt.Fprintf(bw, "endsolid model\n")
	return bw.Flush()
}

func writeSTLBinary(w io.Writer, pieces []Piece) error {
	bw := bufio.NewWriter(w)

	var header [80]byte
	copy(header[:], "binary stl")
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	_, triangles := totals(pieces)
	if err := binary.Write(bw, binary.LittleEndian, uint32(triangles)); err != nil {
		return err
	}

	for _, p := range pieces {
		m := p.Mesh
		if m == nil {
			continue
		}
		for t := 0; t < m.TriangleCount(); t++ {
			a := m.Vertex(int(m.Indices[3*t]))
			b := m.Vertex(int(m.Indices[3*t+1]))
			c := m.Vertex(int(m.Indices[3*t+2]))
			n := facetNormal(a, b, c)

			var rec [12]float32
			rec[0], rec[1], rec[2] = float32(n[0]), float32(n[1]), float32(n[2])
			for i, v := range [][3]float64{a, b, c} {
				rec[3+3*i] = float32(v[0])
				rec[4+3*i] = float32(v[1])
				rec[5+3*i] = float32(v[2])
			}
			if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
				return err
			}
			// Attribute byte count, unused.
			if err := binary.Write(bw, binary.LittleEndian, uint16(0)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
