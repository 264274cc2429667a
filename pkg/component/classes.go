package component

import (
	"fmt"
	"math"

	"github.com/mcattow/crucible/pkg/design"
	"github.com/mcattow/crucible/pkg/kernel"
)

// Builtins returns a registry holding the built-in class library:
// five simple classes (cladding, coolant, breeder, multiplier,
// first_wall) and three assemblies (pin, breeder_unit, blanket).
func Builtins() *Registry {
	r := NewRegistry()

	r.Register(&Definition{
		Tag:    "cladding",
		Kind:   KindSimple,
		Sanity: claddingSanity,
		Build:  claddingBuild,
	})
	r.Register(&Definition{
		Tag:    "coolant",
		Kind:   KindSimple,
		Sanity: rodSanity("coolant"),
		Build:  rodBuild,
	})
	r.Register(&Definition{
		Tag:    "breeder",
		Kind:   KindSimple,
		Sanity: rodSanity("breeder"),
		Build:  rodBuild,
	})
	r.Register(&Definition{
		Tag:    "multiplier",
		Kind:   KindSimple,
		Sanity: multiplierSanity,
		Build:  multiplierBuild,
	})
	r.Register(&Definition{
		Tag:    "first_wall",
		Kind:   KindSimple,
		Sanity: slabSanity("first_wall"),
		Build:  slabBuild,
	})

	r.Register(&Definition{
		Tag:      "pin",
		Kind:     KindAssembly,
		Required: []string{"cladding", "coolant"},
		Arrange:  offsetArrange("coolant"),
	})
	r.Register(&Definition{
		Tag:      "breeder_unit",
		Kind:     KindAssembly,
		Required: []string{"breeder", "multiplier"},
		Arrange:  offsetArrange("breeder"),
	})
	r.Register(&Definition{
		Tag:      "blanket",
		Kind:     KindAssembly,
		Required: []string{"first_wall"},
		Sanity:   blanketSanity,
		Arrange:  blanketArrange,
	})

	return r
}

// geometryOf fetches the geometry subtree of a class's parameters.
func geometryOf(class string, p *design.Tree) (*design.Tree, error) {
	g, ok := p.Child("geometry")
	if !ok {
		return nil, &InvalidGeometryError{Class: class, Param: "geometry", Reason: "missing"}
	}
	return g, nil
}

// positive vets that each named geometry parameter is set and positive.
func positive(class string, g *design.Tree, params ...string) error {
	for _, name := range params {
		v, ok := g.GetFloat(name)
		if !ok {
			return &InvalidGeometryError{Class: class, Param: name, Reason: "missing"}
		}
		if v <= 0 {
			return &InvalidGeometryError{
				Class: class, Param: name, Value: v,
				Reason: fmt.Sprintf("must be positive, got %g", v),
			}
		}
	}
	return nil
}

// --- cladding: a tube around the coolant channel ---

func claddingSanity(p *design.Tree) error {
	g, err := geometryOf("cladding", p)
	if err != nil {
		return err
	}
	return positive("cladding", g, "inner radius", "thickness", "length")
}

func claddingBuild(s kernel.Session, p *design.Tree) (kernel.Volume, error) {
	g, _ := p.Child("geometry")
	inner, _ := g.GetFloat("inner radius")
	thickness, _ := g.GetFloat("thickness")
	length, _ := g.GetFloat("length")

	outerV, err := s.Cylinder(length, inner+thickness)
	if err != nil {
		return nil, err
	}
	innerV, err := s.Cylinder(length, inner)
	if err != nil {
		return nil, err
	}
	return s.Subtract(outerV, innerV)
}

// --- coolant, breeder: plain rods ---

func rodSanity(class string) func(*design.Tree) error {
	return func(p *design.Tree) error {
		g, err := geometryOf(class, p)
		if err != nil {
			return err
		}
		return positive(class, g, "radius", "length")
	}
}

func rodBuild(s kernel.Session, p *design.Tree) (kernel.Volume, error) {
	g, _ := p.Child("geometry")
	radius, _ := g.GetFloat("radius")
	length, _ := g.GetFloat("length")
	return s.Cylinder(length, radius)
}

// --- multiplier: a block with a rod channel through it ---

func multiplierSanity(p *design.Tree) error {
	g, err := geometryOf("multiplier", p)
	if err != nil {
		return err
	}
	if err := positive("multiplier", g, "width", "depth", "height", "channel radius"); err != nil {
		return err
	}
	w, _ := g.GetFloat("width")
	d, _ := g.GetFloat("depth")
	ch, _ := g.GetFloat("channel radius")
	if ch >= math.Min(w, d)/2 {
		return &InvalidGeometryError{
			Class: "multiplier", Param: "channel radius", Value: ch,
			Reason: fmt.Sprintf("must fit inside the %gx%g section", w, d),
		}
	}
	return nil
}

func multiplierBuild(s kernel.Session, p *design.Tree) (kernel.Volume, error) {
	g, _ := p.Child("geometry")
	width, _ := g.GetFloat("width")
	depth, _ := g.GetFloat("depth")
	height, _ := g.GetFloat("height")
	channel, _ := g.GetFloat("channel radius")

	block, err := s.Box(width, depth, height)
	if err != nil {
		return nil, err
	}
	bore, err := s.Cylinder(height, channel)
	if err != nil {
		return nil, err
	}
	return s.Subtract(block, bore)
}

// --- first_wall: a plain slab ---

func slabSanity(class string) func(*design.Tree) error {
	return func(p *design.Tree) error {
		g, err := geometryOf(class, p)
		if err != nil {
			return err
		}
		return positive(class, g, "width", "depth", "height")
	}
}

func slabBuild(s kernel.Session, p *design.Tree) (kernel.Volume, error) {
	g, _ := p.Child("geometry")
	width, _ := g.GetFloat("width")
	depth, _ := g.GetFloat("depth")
	height, _ := g.GetFloat("height")
	return s.Box(width, depth, height)
}

// --- pin, breeder_unit: shift one child along the axis ---

// offsetArrange shifts the named child's bodies along z by the
// assembly's "axial offset" parameter.
func offsetArrange(slot string) func(kernel.Session, *Instance) error {
	return func(s kernel.Session, inst *Instance) error {
		off, _ := inst.Geometry().GetFloat("axial offset")
		if off == 0 {
			return nil
		}
		child := inst.Child(slot)
		if child == nil {
			return nil
		}
		for _, v := range child.Volumes() {
			if err := s.Translate(v, 0, 0, off); err != nil {
				return err
			}
		}
		return nil
	}
}

// --- blanket: a row of units behind a first wall ---

func blanketSanity(p *design.Tree) error {
	g, err := geometryOf("blanket", p)
	if err != nil {
		return err
	}
	return positive("blanket", g, "pitch")
}

func blanketArrange(s kernel.Session, inst *Instance) error {
	pitch, _ := inst.Geometry().GetFloat("pitch")

	// Units march along x at pitch intervals; the wall fronts the row
	// in -y, centred on the row's extent.
	units := 0
	for _, child := range inst.Children {
		if child.Slot == "first_wall" {
			continue
		}
		if units > 0 {
			dx := float64(units) * pitch
			for _, v := range child.Volumes() {
				if err := s.Translate(v, dx, 0, 0); err != nil {
					return err
				}
			}
		}
		units++
	}

	wall := inst.Child("first_wall")
	if wall == nil {
		return nil
	}
	depth, _ := wall.Geometry().GetFloat("depth")
	wallX := 0.0
	if units > 1 {
		wallX = float64(units-1) * pitch / 2
	}
	wallY := -(depth/2 + pitch/2)
	for _, v := range wall.Volumes() {
		if err := s.Translate(v, wallX, wallY, 0); err != nil {
			return err
		}
	}
	return nil
}
