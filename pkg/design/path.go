package design

import "strings"

// DefaultDelimiter separates segments in parameter path addresses.
const DefaultDelimiter = "."

// Lookup walks a delimiter-joined path ("pin.cladding.geometry.length")
// and returns the addressed value, which may itself be a subtree. An
// empty delim means DefaultDelimiter.
func (t *Tree) Lookup(path, delim string) (any, error) {
	segs, err := splitPath(path, delim)
	if err != nil {
		return nil, err
	}
	cur := t
	for i, seg := range segs {
		v, ok := cur.Get(seg)
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Reason: "no such key"}
		}
		if i == len(segs)-1 {
			return v, nil
		}
		sub, ok := v.(*Tree)
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Reason: "not a tree"}
		}
		cur = sub
	}
	return nil, &PathError{Path: path, Segment: "", Reason: "empty path"}
}

// Assign overwrites the value addressed by path. Every intermediate
// segment and the final key must already exist: resolution materializes
// the full template shape beforehand, so a missing key means unknown
// structure and Assign refuses to fabricate it.
func (t *Tree) Assign(path string, value any, delim string) error {
	segs, err := splitPath(path, delim)
	if err != nil {
		return err
	}
	cur := t
	for _, seg := range segs[:len(segs)-1] {
		sub, ok := cur.Child(seg)
		if !ok {
			if cur.Has(seg) {
				return &PathError{Path: path, Segment: seg, Reason: "not a tree"}
			}
			return &PathError{Path: path, Segment: seg, Reason: "no such key"}
		}
		cur = sub
	}
	last := segs[len(segs)-1]
	if !cur.Has(last) {
		return &PathError{Path: path, Segment: last, Reason: "no such key"}
	}
	cur.Set(last, value)
	return nil
}

func splitPath(path, delim string) ([]string, error) {
	if delim == "" {
		delim = DefaultDelimiter
	}
	if path == "" {
		return nil, &PathError{Path: path, Segment: "", Reason: "empty path"}
	}
	segs := strings.Split(path, delim)
	for _, s := range segs {
		if s == "" {
			return nil, &PathError{Path: path, Segment: s, Reason: "empty segment"}
		}
	}
	return segs, nil
}
