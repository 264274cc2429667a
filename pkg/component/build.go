package component

import (
	"fmt"

	"github.com/mcattow/crucible/pkg/kernel"
)

// BuildGeometry walks the instance tree and produces kernel bodies:
// simple components build their body, assemblies build their children
// first and then arrange them. Arrangement runs bottom-up, so an outer
// assembly moves the already-placed bodies of an inner one as a unit.
// The walker never mutates parameter trees.
func BuildGeometry(inst *Instance, s kernel.Session) error {
	if inst.IsAssembly() {
		for _, child := range inst.Children {
			if err := BuildGeometry(child, s); err != nil {
				return err
			}
		}
		if inst.Def.Arrange != nil {
			if err := inst.Def.Arrange(s, inst); err != nil {
				return fmt.Errorf("component: arrange %s: %w", inst.Class(), err)
			}
		}
		return nil
	}

	if inst.Def.Build == nil {
		return fmt.Errorf("component: class %q has no build function", inst.Class())
	}
	v, err := inst.Def.Build(s, inst.Params)
	if err != nil {
		return fmt.Errorf("component: build %s: %w", inst.Class(), err)
	}
	inst.Volume = v
	return nil
}
