package component

import (
	"errors"
	"strings"
	"testing"

	"github.com/mcattow/crucible/pkg/kernel/fake"
)

func TestBuildPinGeometry(t *testing.T) {
	inst := pinInstance(t)
	sess := fake.New()

	if err := BuildGeometry(inst, sess); err != nil {
		t.Fatalf("BuildGeometry: %v", err)
	}

	cladding := inst.Child("cladding")
	if cladding.Volume == nil {
		t.Fatal("cladding has no body")
	}
	// Outer radius = inner 4 + thickness 1.
	min, max := cladding.Volume.BoundingBox()
	if min[0] != -5 || max[0] != 5 || min[2] != -50 || max[2] != 50 {
		t.Errorf("cladding bbox = %v..%v", min, max)
	}

	coolant := inst.Child("coolant")
	min, max = coolant.Volume.BoundingBox()
	if min[0] != -4 || max[0] != 4 {
		t.Errorf("coolant bbox = %v..%v", min, max)
	}

	if inst.Volume != nil {
		t.Error("assembly got a body of its own")
	}
	if got := len(inst.Volumes()); got != 2 {
		t.Errorf("subtree volumes = %d, want 2", got)
	}

	// Cladding needs two cylinders and a subtraction, coolant one
	// cylinder.
	var cylinders, subtracts int
	for _, call := range sess.Calls {
		switch {
		case strings.HasPrefix(call, "Cylinder("):
			cylinders++
		case strings.HasPrefix(call, "Subtract("):
			subtracts++
		}
	}
	if cylinders != 3 || subtracts != 1 {
		t.Errorf("calls = %v", sess.Calls)
	}
}

func TestBuildAxialOffset(t *testing.T) {
	reg := Builtins()
	inst, err := reg.Construct(resolved(t,
		`{"class": "pin", "geometry": {"axial offset": 10}}`))
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	sess := fake.New()
	if err := BuildGeometry(inst, sess); err != nil {
		t.Fatalf("BuildGeometry: %v", err)
	}

	min, max := inst.Child("coolant").Volume.BoundingBox()
	if min[2] != -40 || max[2] != 60 {
		t.Errorf("offset coolant z = %g..%g, want -40..60", min[2], max[2])
	}
	min, max = inst.Child("cladding").Volume.BoundingBox()
	if min[2] != -50 || max[2] != 50 {
		t.Errorf("cladding moved: z = %g..%g", min[2], max[2])
	}
}

func TestBuildBlanketRow(t *testing.T) {
	reg := Builtins()
	inst, err := reg.Construct(resolved(t,
		`{"class": "blanket", "components": {"pin0": {"class": "pin"}, "pin1": {"class": "pin"}}}`))
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	sess := fake.New()
	if err := BuildGeometry(inst, sess); err != nil {
		t.Fatalf("BuildGeometry: %v", err)
	}

	c0 := inst.Child("pin0").Child("cladding").Volume
	c1 := inst.Child("pin1").Child("cladding").Volume
	min0, max0 := c0.BoundingBox()
	min1, max1 := c1.BoundingBox()

	// Default pitch is 12: pin1 sits one pitch along x.
	if center := (min1[0] + max1[0]) / 2; center != 12 {
		t.Errorf("pin1 x centre = %g, want 12", center)
	}
	if center := (min0[0] + max0[0]) / 2; center != 0 {
		t.Errorf("pin0 x centre = %g, want 0", center)
	}

	// The wall fronts the row in -y.
	wall := inst.Child("first_wall").Volume
	wmin, wmax := wall.BoundingBox()
	if wmax[1] >= min0[1] {
		t.Errorf("wall y = %g..%g overlaps the row (row min y %g)", wmin[1], wmax[1], min0[1])
	}
	if center := (wmin[0] + wmax[0]) / 2; center != 6 {
		t.Errorf("wall x centre = %g, want 6 (row midpoint)", center)
	}
}

func TestInvalidGeometryNeverReachesKernel(t *testing.T) {
	reg := Builtins()
	sess := fake.New()

	_, err := reg.Construct(resolved(t,
		`{"class": "pin", "components": {"cladding": {"class": "cladding", "geometry": {"length": -1}}}}`))
	var ig *InvalidGeometryError
	if !errors.As(err, &ig) {
		t.Fatalf("err = %v, want InvalidGeometryError", err)
	}

	if len(sess.Calls) != 0 {
		t.Errorf("kernel saw %d calls from an invalid description: %v", len(sess.Calls), sess.Calls)
	}
}

func TestBuildMultiplier(t *testing.T) {
	reg := Builtins()
	inst, err := reg.Construct(resolved(t, `{"class": "multiplier"}`))
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	sess := fake.New()
	if err := BuildGeometry(inst, sess); err != nil {
		t.Fatalf("BuildGeometry: %v", err)
	}
	min, max := inst.Volume.BoundingBox()
	if min[0] != -10 || max[0] != 10 || min[2] != -20 || max[2] != 20 {
		t.Errorf("multiplier bbox = %v..%v", min, max)
	}
}
