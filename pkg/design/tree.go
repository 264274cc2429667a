// Package design implements the declarative parameter-tree model:
// ordered trees parsed from JSON or YAML, recursive merging against
// class templates, external file references, and delimiter-joined
// path addressing. The resolver turns a partial user tree into a
// fully-populated one; everything downstream (construction, tracking)
// reads trees produced here.
package design

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Tree is an ordered mapping from string keys to parameter values.
// Legal values are nil, bool, float64, string, []any sequences, and
// nested *Tree nodes. Key order is insertion order and is preserved
// through decode, clone and merge; traversal order is load-bearing
// downstream (component naming follows child-slot insertion order).
type Tree struct {
	keys []string
	vals map[string]any
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{vals: make(map[string]any)}
}

// Len returns the number of keys.
func (t *Tree) Len() int {
	return len(t.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (t *Tree) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Has reports whether key is present.
func (t *Tree) Has(key string) bool {
	_, ok := t.vals[key]
	return ok
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (any, bool) {
	v, ok := t.vals[key]
	return v, ok
}

// Set stores value under key. A new key is appended to the insertion
// order; an existing key keeps its position.
func (t *Tree) Set(key string, value any) {
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = value
}

// Child returns the nested tree stored under key, or false if the key
// is absent or holds a non-tree value.
func (t *Tree) Child(key string) (*Tree, bool) {
	v, ok := t.vals[key]
	if !ok {
		return nil, false
	}
	c, ok := v.(*Tree)
	return c, ok
}

// GetString returns the string stored under key, or false if the key
// is absent or holds a non-string value.
func (t *Tree) GetString(key string) (string, bool) {
	v, ok := t.vals[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetFloat returns the number stored under key, or false if the key
// is absent or holds a non-numeric value.
func (t *Tree) GetFloat(key string) (float64, bool) {
	v, ok := t.vals[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Clone returns a deep copy. Nested trees and sequences are copied;
// scalars are value types already.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{
		keys: make([]string, len(t.keys)),
		vals: make(map[string]any, len(t.vals)),
	}
	copy(out.keys, t.keys)
	for k, v := range t.vals {
		out.vals[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case *Tree:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two trees hold the same keys in the same order
// with deeply equal values.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.keys) != len(o.keys) {
		return false
	}
	for i, k := range t.keys {
		if o.keys[i] != k {
			return false
		}
		if !valueEqual(t.vals[k], o.vals[k]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case *Tree:
		y, ok := b.(*Tree)
		return ok && x.Equal(y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valueEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// MarshalJSON encodes the tree as a JSON object with keys in insertion
// order. Nested trees and sequences encode recursively.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(t.vals[k])
		if err != nil {
			return nil, fmt.Errorf("design: marshal key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String renders the tree as compact JSON, for logs and shell output.
func (t *Tree) String() string {
	b, err := t.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("design.Tree(marshal error: %v)", err)
	}
	return string(b)
}
