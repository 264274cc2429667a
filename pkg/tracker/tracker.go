// Package tracker derives the simulation-facing identity of a built
// component tree: every simple component gets a unique name, bodies are
// grouped into material blocks, and the boundaries between touching
// blocks become named sidesets. The three phases run in order against
// the kernel session that built the bodies.
package tracker

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/mcattow/crucible/pkg/component"
	"github.com/mcattow/crucible/pkg/kernel"
)

// DefaultDelimiter joins ancestor slot names into a component name.
const DefaultDelimiter = "."

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// Entry is one named simple component.
type Entry struct {
	Name      string
	Material  string
	Component *component.Instance
}

// Block groups the components of one material.
type Block struct {
	Material string
	Members  []string // component names in naming order
}

// Sideset is the named boundary between two material blocks. A block
// paired with itself covers the walls between its own members.
type Sideset struct {
	Name     string
	Blocks   [2]string // the material pair, sorted
	Surfaces []kernel.Surface
}

// PairFailure records a boundary query the kernel could not answer.
// Failures do not abort tracking; they mark the record incomplete.
type PairFailure struct {
	Blocks  [2]string
	Members [2]string
	Err     error
}

func (f PairFailure) Error() string {
	return fmt.Sprintf("tracker: boundary %s/%s: %v", f.Members[0], f.Members[1], f.Err)
}

// Record is the tracker's output.
type Record struct {
	Entries  []Entry
	Blocks   []Block
	Sidesets []Sideset
	Failures []PairFailure
}

// Incomplete reports whether any boundary query failed.
func (r *Record) Incomplete() bool { return len(r.Failures) > 0 }

// Names returns the component names in naming order.
func (r *Record) Names() []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Name
	}
	return out
}

// Block returns the block for a material.
func (r *Record) Block(material string) (Block, bool) {
	for _, b := range r.Blocks {
		if b.Material == material {
			return b, true
		}
	}
	return Block{}, false
}

// Sideset returns the sideset with the given name.
func (r *Record) Sideset(name string) (Sideset, bool) {
	for _, s := range r.Sidesets {
		if s.Name == name {
			return s, true
		}
	}
	return Sideset{}, false
}

// Tracker names, blocks and surfaces a built component tree.
type Tracker struct {
	// Delimiter joins ancestor slot names, DefaultDelimiter when empty.
	Delimiter string
	Log       *slog.Logger
}

// New returns a tracker with default settings.
func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return discardLog
}

func (t *Tracker) delim() string {
	if t.Delimiter != "" {
		return t.Delimiter
	}
	return DefaultDelimiter
}

// Track runs the three phases against sess: naming, blocking, then
// sidesets. Every simple component must already have a body. Boundary
// query failures are collected in the record rather than returned; any
// other session failure aborts.
func (t *Tracker) Track(root *component.Instance, sess kernel.Session) (*Record, error) {
	rec := &Record{}

	if err := t.name(root, sess, rec); err != nil {
		return nil, err
	}
	if err := t.block(sess, rec); err != nil {
		return nil, err
	}
	if err := t.sidesets(sess, rec); err != nil {
		return nil, err
	}

	t.logger().Info("tracked component tree",
		"components", len(rec.Entries),
		"blocks", len(rec.Blocks),
		"sidesets", len(rec.Sidesets),
		"failures", len(rec.Failures))
	return rec, nil
}

// name assigns every simple component its unique name: the dotted
// chain of ancestor slot names, then the material with a global
// per-material counter. The root assembly contributes no prefix. Names
// are applied to the session as volume labels.
//
// The construction cannot produce two equal names unless a material
// name itself collides with a counter suffix; that is a corrupted
// naming scheme, not an input error, so it panics.
func (t *Tracker) name(root *component.Instance, sess kernel.Session, rec *Record) error {
	counters := make(map[string]int)
	seen := make(map[string]bool)

	var walk func(inst *component.Instance, prefix string) error
	walk = func(inst *component.Instance, prefix string) error {
		if inst.IsAssembly() {
			for _, child := range inst.Children {
				childPrefix := prefix
				if inst != root {
					childPrefix = prefix + inst.Slot + t.delim()
				}
				if err := walk(child, childPrefix); err != nil {
					return err
				}
			}
			return nil
		}

		if inst.Volume == nil {
			return fmt.Errorf("tracker: component in slot %q has no body: build before tracking", inst.Slot)
		}
		n := counters[inst.Material]
		counters[inst.Material]++
		name := fmt.Sprintf("%s%s%d", prefix, inst.Material, n)
		if seen[name] {
			panic(fmt.Sprintf("tracker: name collision on %q", name))
		}
		seen[name] = true

		inst.Name = name
		if err := sess.NameVolume(inst.Volume, name); err != nil {
			return fmt.Errorf("tracker: name %s: %w", name, err)
		}
		rec.Entries = append(rec.Entries, Entry{
			Name:      name,
			Material:  inst.Material,
			Component: inst,
		})
		t.logger().Debug("named component", "name", name, "class", inst.Class())
		return nil
	}

	return walk(root, "")
}

// block groups the named components by material, in naming order.
func (t *Tracker) block(sess kernel.Session, rec *Record) error {
	index := make(map[string]int)
	for _, e := range rec.Entries {
		i, ok := index[e.Material]
		if !ok {
			i = len(rec.Blocks)
			index[e.Material] = i
			rec.Blocks = append(rec.Blocks, Block{Material: e.Material})
		}
		rec.Blocks[i].Members = append(rec.Blocks[i].Members, e.Name)
		if err := sess.AddToBlock(e.Material, e.Component.Volume); err != nil {
			return fmt.Errorf("tracker: block %s: %w", e.Material, err)
		}
	}
	return nil
}

// sidesets queries the kernel for the boundary of every unordered
// block pair, self-pairs included. Pairs with a non-empty boundary get
// a sideset named from the sorted materials; query failures are
// collected per pair and mark the record incomplete.
func (t *Tracker) sidesets(sess kernel.Session, rec *Record) error {
	members := make(map[string][]Entry)
	for _, e := range rec.Entries {
		members[e.Material] = append(members[e.Material], e)
	}

	for i := range rec.Blocks {
		for j := i; j < len(rec.Blocks); j++ {
			mi := rec.Blocks[i].Material
			mj := rec.Blocks[j].Material

			var surfaces []kernel.Surface
			failed := false
			for ai, a := range members[mi] {
				bs := members[mj]
				if i == j {
					// Unordered member pairs within one block.
					bs = bs[ai+1:]
				}
				for _, b := range bs {
					surf, err := sess.Touching(a.Component.Volume, b.Component.Volume)
					if err != nil {
						rec.Failures = append(rec.Failures, PairFailure{
							Blocks:  sortedPair(mi, mj),
							Members: [2]string{a.Name, b.Name},
							Err:     err,
						})
						failed = true
						continue
					}
					if surf != nil {
						surfaces = append(surfaces, surf)
					}
				}
			}
			if len(surfaces) == 0 {
				if failed {
					t.logger().Warn("boundary queries failed", "blocks", mi+"/"+mj)
				}
				continue
			}

			pair := sortedPair(mi, mj)
			name := pair[0] + "_" + pair[1]
			if err := sess.NameSideset(name, surfaces...); err != nil {
				rec.Failures = append(rec.Failures, PairFailure{
					Blocks:  pair,
					Members: [2]string{mi, mj},
					Err:     err,
				})
				continue
			}
			rec.Sidesets = append(rec.Sidesets, Sideset{
				Name:     name,
				Blocks:   pair,
				Surfaces: surfaces,
			})
			t.logger().Debug("named sideset", "name", name, "surfaces", len(surfaces))
		}
	}
	return nil
}

func sortedPair(a, b string) [2]string {
	pair := []string{a, b}
	sort.Strings(pair)
	return [2]string{pair[0], pair[1]}
}
