package sdfx

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcattow/crucible/pkg/kernel"
)

func TestPrimitiveBounds(t *testing.T) {
	s := New()

	box, err := s.Box(100, 50, 25)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	min, max := box.BoundingBox()
	const tol = 0.01
	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}

	cyl, err := s.Cylinder(50, 10)
	if err != nil {
		t.Fatalf("Cylinder: %v", err)
	}
	min, max = cyl.BoundingBox()
	if math.Abs(min[2]+25) > tol || math.Abs(max[2]-25) > tol {
		t.Errorf("cylinder z bounds = %f..%f, expected -25..25", min[2], max[2])
	}
}

func TestBoxRejectsBadDimensions(t *testing.T) {
	s := New()
	if _, err := s.Box(-1, 1, 1); err == nil {
		t.Error("Box with negative dimension succeeded")
	}
}

func TestBooleansConsumeOperands(t *testing.T) {
	s := New()
	a, _ := s.Box(50, 50, 50)
	b, _ := s.Box(50, 50, 50)
	s.Translate(b, 30, 0, 0)

	u, err := s.Union(a, b)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if err := s.Translate(a, 1, 0, 0); err == nil {
		t.Error("consumed operand still usable")
	}
	min, max := u.BoundingBox()
	if max[0]-min[0] < 79 {
		t.Errorf("union x extent = %f, expected ~80", max[0]-min[0])
	}
}

func TestTranslateInPlace(t *testing.T) {
	s := New()
	box, _ := s.Box(10, 10, 10)
	if err := s.Translate(box, 100, 200, 300); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	min, max := box.BoundingBox()
	const tol = 0.5
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestRotateInPlace(t *testing.T) {
	s := New()
	box, _ := s.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z extends along Y.
	if err := s.Rotate(box, 0, 0, 90); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	min, max := box.BoundingBox()
	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestScale(t *testing.T) {
	s := New()
	box, _ := s.Box(10, 10, 10)
	if err := s.Scale(10); err != nil {
		t.Fatalf("Scale: %v", err)
	}
	min, max := box.BoundingBox()
	if max[0]-min[0] < 99 {
		t.Errorf("scaled x extent = %f, expected ~100", max[0]-min[0])
	}
	if err := s.Scale(-1); err == nil {
		t.Error("Scale(-1) succeeded")
	}
}

func TestTouchingSeparated(t *testing.T) {
	s := New()
	a, _ := s.Box(2, 2, 2)
	b, _ := s.Box(2, 2, 2)
	s.Translate(b, 10, 0, 0)

	surf, err := s.Touching(a, b)
	if err != nil {
		t.Fatalf("Touching: %v", err)
	}
	if surf != nil {
		t.Error("separated bodies reported as touching")
	}
}

func TestTouchingAbutting(t *testing.T) {
	s := New()
	a, _ := s.Box(2, 2, 2)
	b, _ := s.Box(2, 2, 2)
	s.Translate(b, 2, 0, 0)

	surf, err := s.Touching(a, b)
	if err != nil {
		t.Fatalf("Touching: %v", err)
	}
	if surf == nil {
		t.Fatal("abutting bodies not touching")
	}
	va, vb := surf.Volumes()
	if va != a || vb != b {
		t.Error("surface does not carry the queried pair")
	}
}

func TestTouchingConcentric(t *testing.T) {
	// A tube around a rod: contact along the full shared wall.
	s := New()
	outer, _ := s.Cylinder(100, 5)
	inner, _ := s.Cylinder(100, 4)
	tube, err := s.Subtract(outer, inner)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	rod, _ := s.Cylinder(100, 4)

	surf, err := s.Touching(tube, rod)
	if err != nil {
		t.Fatalf("Touching: %v", err)
	}
	if surf == nil {
		t.Fatal("concentric tube and rod not touching")
	}
}

func TestMeshExport(t *testing.T) {
	dir := t.TempDir()
	s := New()
	box, _ := s.Box(2, 2, 2)
	s.NameVolume(box, "Steel0")
	s.AddToBlock("Steel", box)

	stlPath := filepath.Join(dir, "out.stl")
	if err := s.ExportGeometry(kernel.STL, stlPath, kernel.ExportOptions{Binary: true}); err != nil {
		t.Fatalf("ExportGeometry: %v", err)
	}
	info, err := os.Stat(stlPath)
	if err != nil {
		t.Fatalf("stat stl: %v", err)
	}
	if info.Size() < 84 {
		t.Errorf("stl too small: %d bytes", info.Size())
	}

	if err := s.ExportMesh(kernel.VTK, filepath.Join(dir, "out.vtk"), kernel.ExportOptions{}); err == nil {
		t.Fatal("mesh export before MeshVolumes succeeded")
	}
	if err := s.MeshVolumes(0.5); err != nil {
		t.Fatalf("MeshVolumes: %v", err)
	}

	vtkPath := filepath.Join(dir, "out.vtk")
	if err := s.ExportMesh(kernel.VTK, vtkPath, kernel.ExportOptions{}); err != nil {
		t.Fatalf("ExportMesh: %v", err)
	}
	data, err := os.ReadFile(vtkPath)
	if err != nil {
		t.Fatalf("read vtk: %v", err)
	}
	if !strings.HasPrefix(string(data), "# vtk DataFile Version 3.0\n") {
		t.Errorf("vtk header wrong: %q", string(data[:40]))
	}

	mshPath := filepath.Join(dir, "out.msh")
	if err := s.ExportMesh(kernel.MSH, mshPath, kernel.ExportOptions{}); err != nil {
		t.Fatalf("ExportMesh msh: %v", err)
	}
	data, err = os.ReadFile(mshPath)
	if err != nil {
		t.Fatalf("read msh: %v", err)
	}
	if !strings.Contains(string(data), "$PhysicalNames") || !strings.Contains(string(data), `"Steel"`) {
		t.Error("msh missing block physical group")
	}

	if err := s.ExportMesh(kernel.STL, filepath.Join(dir, "x.stl"), kernel.ExportOptions{}); err == nil {
		t.Error("mesh export accepted a geometry format")
	}
}

func TestResetDiscardsBodies(t *testing.T) {
	s := New()
	box, _ := s.Box(1, 1, 1)
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := s.Translate(box, 1, 0, 0); err == nil {
		t.Error("body survived reset")
	}
}
