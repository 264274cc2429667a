package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// vtkTriangle is the VTK cell type id for a linear triangle.
const vtkTriangle = 5

// WriteVTK writes the pieces as a legacy VTK unstructured grid. Every
// triangle carries its piece's block id as cell data, so material
// groups survive the round trip into VTK viewers. Binary blobs use the
// big-endian encoding the legacy format requires.
func WriteVTK(w io.Writer, pieces []Piece, binaryEncoding bool) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\n")
	fmt.Fprintf(bw, "crucible mesh\n")
	if binaryEncoding {
		fmt.Fprintf(bw, "BINARY\n")
	} else {
		fmt.Fprintf(bw, "ASCII\n")
	}
	fmt.Fprintf(bw, "DATASET UNSTRUCTURED_GRID\n")

	points, cells, blockOf := flatten(pieces)

	fmt.Fprintf(bw, "POINTS %d float\n", len(points)/3)
	if binaryEncoding {
		if err := binary.Write(bw, binary.BigEndian, points); err != nil {
			return err
		}
		fmt.Fprintf(bw, "\n")
	} else {
		for i := 0; i < len(points); i += 3 {
			fmt.Fprintf(bw, "%g %g %g\n", points[i], points[i+1], points[i+2])
		}
	}

	n := len(cells) / 3
	fmt.Fprintf(bw, "CELLS %d %d\n", n, n*4)
	if binaryEncoding {
		rec := make([]int32, 0, n*4)
		for t := 0; t < n; t++ {
			rec = append(rec, 3, cells[3*t], cells[3*t+1], cells[3*t+2])
		}
		if err := binary.Write(bw, binary.BigEndian, rec); err != nil {
			return err
		}
		fmt.Fprintf(bw, "\n")
	} else {
		for t := 0; t < n; t++ {
			fmt.Fprintf(bw, "3 %d %d %d\n", cells[3*t], cells[3*t+1], cells[3*t+2])
		}
	}

	fmt.Fprintf(bw, "CELL_TYPES %d\n", n)
	if binaryEncoding {
		types := make([]int32, n)
		for i := range types {
			types[i] = vtkTriangle
		}
		if err := binary.Write(bw, binary.BigEndian, types); err != nil {
			return err
		}
		fmt.Fprintf(bw, "\n")
	} else {
		for t := 0; t < n; t++ {
			fmt.Fprintf(bw, "%d\n", vtkTriangle)
		}
	}

	fmt.Fprintf(bw, "CELL_DATA %d\n", n)
	fmt.Fprintf(bw, "SCALARS block int 1\n")
	fmt.Fprintf(bw, "LOOKUP_TABLE default\n")
	if binaryEncoding {
		if err := binary.Write(bw, binary.BigEndian, blockOf); err != nil {
			return err
		}
		fmt.Fprintf(bw, "\n")
	} else {
		for _, id := range blockOf {
			fmt.Fprintf(bw, "%d\n", id)
		}
	}

	return bw.Flush()
}

// flatten concatenates the pieces into one global point list, a global
// triangle index list and a per-triangle block id list.
func flatten(pieces []Piece) (points []float32, cells []int32, blockOf []int32) {
	ids, _ := blockIDs(pieces)

	offset := int32(0)
	for _, p := range pieces {
		m := p.Mesh
		if m == nil {
			continue
		}
		points = append(points, m.Vertices...)
		for _, idx := range m.Indices {
			cells = append(cells, int32(idx)+offset)
		}
		id := int32(ids[p.Block]) // 0 when unblocked
		for t := 0; t < m.TriangleCount(); t++ {
			blockOf = append(blockOf, id)
		}
		offset += int32(m.VertexCount())
	}
	return
}
