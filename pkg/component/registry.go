package component

import (
	"fmt"

	"github.com/mcattow/crucible/pkg/design"
	"github.com/mcattow/crucible/pkg/kernel"
)

// Definition describes a component class: how to vet its parameters,
// and how to turn them into kernel bodies.
type Definition struct {
	Tag  string
	Kind Kind

	// Required lists the child slots an assembly must fill, in
	// declaration order. Extra slots are always allowed.
	Required []string

	// Sanity vets the resolved parameters. It runs during Construct,
	// before the class sees a kernel session; a nil Sanity accepts
	// everything.
	Sanity func(p *design.Tree) error

	// Build produces the body of a simple component.
	Build func(s kernel.Session, p *design.Tree) (kernel.Volume, error)

	// Arrange places an assembly's already-built children.
	Arrange func(s kernel.Session, inst *Instance) error
}

// Registry maps class tags to definitions. Registration order is
// preserved for introspection; registering a tag twice replaces the
// stored definition.
type Registry struct {
	tags []string
	defs map[string]*Definition
}

// NewRegistry returns an empty class registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register stores def under its tag.
func (r *Registry) Register(def *Definition) {
	if _, ok := r.defs[def.Tag]; !ok {
		r.tags = append(r.tags, def.Tag)
	}
	r.defs[def.Tag] = def
}

// Definition returns the definition registered for tag.
func (r *Registry) Definition(tag string) (*Definition, bool) {
	d, ok := r.defs[tag]
	return d, ok
}

// Tags returns the registered class tags in registration order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}

// Construct builds the instance tree for a resolved parameter tree:
// dispatch on the class tag, vet the parameters, construct the child
// slots depth-first, then check the assembled structure. No kernel is
// involved; a tree that fails here never causes a kernel call.
func (r *Registry) Construct(params *design.Tree) (*Instance, error) {
	inst, err := r.construct(params, "")
	if err != nil {
		return nil, err
	}
	if err := CheckStructure(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (r *Registry) construct(params *design.Tree, slot string) (*Instance, error) {
	class, ok := params.GetString("class")
	if !ok {
		return nil, fmt.Errorf("component: slot %q has no class tag", slot)
	}
	def, ok := r.Definition(class)
	if !ok {
		return nil, &UnknownClassError{Class: class}
	}
	if def.Sanity != nil {
		if err := def.Sanity(params); err != nil {
			return nil, err
		}
	}

	inst := &Instance{Def: def, Params: params, Slot: slot}
	inst.Material, _ = params.GetString("material")

	if comps, ok := params.Child("components"); ok {
		for _, name := range comps.Keys() {
			sub, ok := comps.Child(name)
			if !ok {
				return nil, fmt.Errorf("component: class %q: slot %q is not a component tree", class, name)
			}
			child, err := r.construct(sub, name)
			if err != nil {
				return nil, err
			}
			inst.Children = append(inst.Children, child)
		}
	}
	return inst, nil
}
