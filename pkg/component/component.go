// Package component turns resolved parameter trees into component
// instances and builds their geometry through a kernel session. Classes
// are registered definitions: simple classes produce one kernel body,
// assembly classes hold child slots and arrange the bodies their
// children produced.
package component

import (
	"github.com/mcattow/crucible/pkg/design"
	"github.com/mcattow/crucible/pkg/kernel"
)

// Kind distinguishes leaf components from assemblies.
type Kind int

const (
	KindSimple   Kind = iota // one material, one kernel body
	KindAssembly             // named child slots, no body of its own
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindAssembly:
		return "assembly"
	default:
		return "unknown"
	}
}

// Instance is one constructed component: a resolved parameter tree
// bound to its class definition. Assemblies carry child instances in
// slot insertion order; simple components carry a kernel body once
// built and a name once tracked.
type Instance struct {
	Def    *Definition
	Params *design.Tree
	Slot   string // slot name under the parent, "" for the root

	Children []*Instance

	Material string
	Volume   kernel.Volume // set by BuildGeometry on simple components
	Name     string        // set by the tracker's naming phase
}

// Class returns the instance's class tag.
func (inst *Instance) Class() string { return inst.Def.Tag }

// Kind returns the instance's kind.
func (inst *Instance) Kind() Kind { return inst.Def.Kind }

// IsAssembly reports whether the instance has child slots.
func (inst *Instance) IsAssembly() bool { return inst.Def.Kind == KindAssembly }

// Child returns the child in the named slot, or nil.
func (inst *Instance) Child(slot string) *Instance {
	for _, c := range inst.Children {
		if c.Slot == slot {
			return c
		}
	}
	return nil
}

// Walk visits the instance and its descendants depth-first, parents
// before children, children in slot insertion order.
func (inst *Instance) Walk(fn func(*Instance)) {
	fn(inst)
	for _, c := range inst.Children {
		c.Walk(fn)
	}
}

// Simples returns the simple components of the subtree in walk order.
func (inst *Instance) Simples() []*Instance {
	var out []*Instance
	inst.Walk(func(i *Instance) {
		if !i.IsAssembly() {
			out = append(out, i)
		}
	})
	return out
}

// Volumes returns the built kernel bodies of the subtree in walk
// order, skipping components not yet built.
func (inst *Instance) Volumes() []kernel.Volume {
	var out []kernel.Volume
	inst.Walk(func(i *Instance) {
		if i.Volume != nil {
			out = append(out, i.Volume)
		}
	})
	return out
}

// Geometry returns the instance's geometry subtree, which may be
// empty for classes without geometry parameters.
func (inst *Instance) Geometry() *design.Tree {
	if g, ok := inst.Params.Child("geometry"); ok {
		return g
	}
	return design.NewTree()
}

// CheckStructure verifies that the instance's subtree satisfies each
// class's slot requirements: every required slot filled exactly once,
// no two sibling slots sharing one instance, no child slots on simple
// components. The first violation in declaration order is returned.
func CheckStructure(inst *Instance) error {
	if !inst.IsAssembly() {
		if len(inst.Children) > 0 {
			return &StructureError{
				Class:  inst.Class(),
				Slot:   inst.Children[0].Slot,
				Reason: "not an assembly slot",
			}
		}
		return nil
	}

	for _, slot := range inst.Def.Required {
		n := 0
		for _, c := range inst.Children {
			if c.Slot == slot {
				n++
			}
		}
		switch {
		case n == 0:
			return &StructureError{Class: inst.Class(), Slot: slot, Reason: "missing"}
		case n > 1:
			return &StructureError{Class: inst.Class(), Slot: slot, Reason: "duplicated"}
		}
	}

	for i, a := range inst.Children {
		for _, b := range inst.Children[i+1:] {
			if a == b {
				return &StructureError{Class: inst.Class(), Slot: a.Slot, Reason: "aliased"}
			}
		}
	}

	for _, c := range inst.Children {
		if err := CheckStructure(c); err != nil {
			return err
		}
	}
	return nil
}
