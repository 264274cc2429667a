package design

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// Registry holds the default parameter template for each class tag.
// Templates serve two purposes: the resolver merges user trees against
// them, and the CLI prints them as class documentation. Registration
// order is preserved for introspection output; registering a tag twice
// replaces the stored template so callers can override built-ins.
type Registry struct {
	tags      []string
	templates map[string]*Tree
}

// NewRegistry returns an empty template registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Tree)}
}

// Register stores tmpl as the default template for tag.
func (r *Registry) Register(tag string, tmpl *Tree) {
	if _, ok := r.templates[tag]; !ok {
		r.tags = append(r.tags, tag)
	}
	r.templates[tag] = tmpl
}

// Template returns the template registered for tag.
func (r *Registry) Template(tag string) (*Tree, bool) {
	t, ok := r.templates[tag]
	return t, ok
}

// Tags returns the registered class tags in registration order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}

//go:embed templates/*.json
var builtinTemplates embed.FS

// Defaults returns a registry populated with the built-in class
// templates shipped with the binary. The embedded files are part of
// the build, so a parse failure is a programmer error and panics.
func Defaults() *Registry {
	r := NewRegistry()
	entries, err := fs.ReadDir(builtinTemplates, "templates")
	if err != nil {
		panic(fmt.Sprintf("design: read embedded templates: %v", err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// ReadDir sorts lexically already; keep it explicit since
	// registration order feeds introspection output.
	sort.Strings(names)
	for _, name := range names {
		data, err := fs.ReadFile(builtinTemplates, "templates/"+name)
		if err != nil {
			panic(fmt.Sprintf("design: read embedded template %s: %v", name, err))
		}
		tmpl, err := ParseJSON(data)
		if err != nil {
			panic(fmt.Sprintf("design: parse embedded template %s: %v", name, err))
		}
		tag, ok := tmpl.GetString("class")
		if !ok {
			panic(fmt.Sprintf("design: embedded template %s has no class tag", name))
		}
		r.Register(tag, tmpl)
	}
	return r
}
