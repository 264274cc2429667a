package design

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Loader turns a reference name into a raw parameter tree. The
// resolver uses it for string values inside `components`; FileLoader
// is the on-disk implementation.
type Loader interface {
	Load(name string) (*Tree, error)
}

// componentsKey is the one mapping whose slots stay open during merge:
// a design may declare more children than its class template does.
const componentsKey = "components"

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// Resolver produces fully-populated parameter trees: file references
// inside `components` are substituted, class-tagged nodes merge against
// their registered templates, and user keys with no template
// counterpart are rejected. Resolution never mutates its input and is
// idempotent on its own output.
type Resolver struct {
	Templates *Registry
	Loader    Loader
	Log       *slog.Logger
}

// NewResolver returns a resolver over the given template registry and
// reference loader. Either may be nil: without templates no merging
// happens, without a loader any file reference fails.
func NewResolver(templates *Registry, loader Loader) *Resolver {
	return &Resolver{Templates: templates, Loader: loader}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return discardLog
}

// Resolve returns the fully-populated form of raw.
func (r *Resolver) Resolve(raw *Tree) (*Tree, error) {
	if raw == nil {
		return nil, errors.New("design: resolve: nil tree")
	}
	return r.resolveNode(raw, nil)
}

// ResolveFile loads a parameter file and resolves it. The file's own
// name seeds the resolution stack so a design referencing itself is
// reported as a cycle rather than recursing.
func (r *Resolver) ResolveFile(name string) (*Tree, error) {
	raw, err := r.load(name)
	if err != nil {
		return nil, &ReferenceError{Name: name, Err: err}
	}
	return r.resolveNode(raw, []string{name})
}

// resolveNode resolves a single class-tagged node: substitute file
// references in its components, merge against the class template, then
// recurse into the child slots. stack holds the chain of reference
// names currently being resolved, for cycle detection.
func (r *Resolver) resolveNode(node *Tree, stack []string) (*Tree, error) {
	out := node.Clone()

	// Substitute references before merging so a referenced child still
	// merges against the template's subtree for its slot.
	refs := make(map[string]string)
	if comps, ok := out.Child(componentsKey); ok {
		for _, slot := range comps.Keys() {
			v, _ := comps.Get(slot)
			ref, isRef := v.(string)
			if !isRef {
				continue
			}
			for _, s := range stack {
				if s == ref {
					cycle := append(append([]string{}, stack...), ref)
					return nil, &CycleError{Stack: cycle}
				}
			}
			loaded, err := r.load(ref)
			if err != nil {
				return nil, &ReferenceError{Name: ref, Err: err}
			}
			r.logger().Debug("substituted file reference", "slot", slot, "reference", ref)
			comps.Set(slot, loaded)
			refs[slot] = ref
		}
	}

	if class, ok := out.GetString("class"); ok {
		if tmpl, found := r.template(class); found {
			merged, err := r.mergeTree(out, tmpl, class, false)
			if err != nil {
				return nil, err
			}
			out = merged
		}
	}

	// Child slots carry their own class tags; resolve them in slot
	// insertion order. Slots that came from a reference push that
	// reference onto the stack for the duration of their subtree.
	if comps, ok := out.Child(componentsKey); ok {
		for _, slot := range comps.Keys() {
			child, ok := comps.Child(slot)
			if !ok {
				continue
			}
			childStack := stack
			if ref, wasRef := refs[slot]; wasRef {
				childStack = append(append([]string{}, stack...), ref)
			}
			resolved, err := r.resolveNode(child, childStack)
			if err != nil {
				return nil, err
			}
			comps.Set(slot, resolved)
		}
	}

	return out, nil
}

// mergeTree merges raw against tmpl: keys present in both recurse when
// both hold trees and otherwise keep the raw value wholesale (scalars
// and sequences never merge element-wise); template-only keys are
// deep-copied in after the raw keys, so user-written order leads. A raw
// key with no template counterpart is a configuration error unless the
// subtree is open (the components mapping admits extra slots).
func (r *Resolver) mergeTree(raw, tmpl *Tree, class string, open bool) (*Tree, error) {
	out := NewTree()
	for _, k := range raw.Keys() {
		rv, _ := raw.Get(k)
		tv, inTmpl := tmpl.Get(k)
		if !inTmpl {
			if !open {
				return nil, &TemplateError{Class: class, Key: k}
			}
			out.Set(k, cloneValue(rv))
			continue
		}
		rt, rawIsTree := rv.(*Tree)
		tt, tmplIsTree := tv.(*Tree)
		if rawIsTree && tmplIsTree {
			merged, err := r.mergeTree(rt, tt, class, open || k == componentsKey)
			if err != nil {
				return nil, err
			}
			out.Set(k, merged)
			continue
		}
		out.Set(k, cloneValue(rv))
	}
	for _, k := range tmpl.Keys() {
		if raw.Has(k) {
			continue
		}
		tv, _ := tmpl.Get(k)
		out.Set(k, cloneValue(tv))
		r.logger().Debug("filled parameter from template", "class", class, "key", k)
	}
	return out, nil
}

func (r *Resolver) template(class string) (*Tree, bool) {
	if r.Templates == nil {
		return nil, false
	}
	return r.Templates.Template(class)
}

func (r *Resolver) load(name string) (*Tree, error) {
	if r.Loader == nil {
		return nil, fmt.Errorf("no loader configured")
	}
	return r.Loader.Load(name)
}
