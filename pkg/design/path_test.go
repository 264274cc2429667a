package design

import (
	"errors"
	"testing"
)

func pinFixture(t *testing.T) *Tree {
	t.Helper()
	r := NewResolver(Defaults(), nil)
	return mustResolve(t, r, mustParse(t, `{"class": "pin"}`))
}

func TestLookup(t *testing.T) {
	tr := pinFixture(t)

	tests := []struct {
		path string
		want any
	}{
		{"class", "pin"},
		{"geometry.axial offset", 0.0},
		{"components.cladding.material", "EUROFER"},
		{"components.coolant.geometry.radius", 4.0},
	}
	for _, tt := range tests {
		got, err := tr.Lookup(tt.path, ".")
		if err != nil {
			t.Errorf("Lookup(%q): %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	// The addressed value may be a subtree.
	v, err := tr.Lookup("components.coolant", ".")
	if err != nil {
		t.Fatalf("Lookup(components.coolant): %v", err)
	}
	sub, ok := v.(*Tree)
	if !ok {
		t.Fatalf("Lookup returned %T, want *Tree", v)
	}
	if c, _ := sub.GetString("class"); c != "coolant" {
		t.Errorf("subtree class = %q", c)
	}
}

func TestLookupErrors(t *testing.T) {
	tr := pinFixture(t)

	tests := []struct {
		path    string
		segment string
		reason  string
	}{
		{"components.duct.material", "duct", "no such key"},
		{"class.material", "class", "not a tree"},
		{"", "", "empty path"},
		{"components..cladding", "", "empty segment"},
	}
	for _, tt := range tests {
		_, err := tr.Lookup(tt.path, ".")
		var pe *PathError
		if !errors.As(err, &pe) {
			t.Errorf("Lookup(%q) err = %v, want PathError", tt.path, err)
			continue
		}
		if pe.Segment != tt.segment || pe.Reason != tt.reason {
			t.Errorf("Lookup(%q) PathError = %+v, want segment %q reason %q",
				tt.path, pe, tt.segment, tt.reason)
		}
	}
}

func TestLookupCustomDelimiter(t *testing.T) {
	tr := pinFixture(t)

	// Parameter names may contain spaces, so the delimiter is
	// configurable; "geometry/axial offset" stays one segment.
	got, err := tr.Lookup("geometry/axial offset", "/")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != 0.0 {
		t.Errorf("Lookup = %v, want 0", got)
	}
}

func TestAssign(t *testing.T) {
	tr := pinFixture(t)

	if err := tr.Assign("components.coolant.geometry.radius", 3.5, "."); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got, err := tr.Lookup("components.coolant.geometry.radius", ".")
	if err != nil {
		t.Fatalf("Lookup after Assign: %v", err)
	}
	if got != 3.5 {
		t.Errorf("value after Assign = %v, want 3.5", got)
	}
}

func TestAssignRefusesNewStructure(t *testing.T) {
	tr := pinFixture(t)

	tests := []struct {
		path    string
		segment string
		reason  string
	}{
		{"components.coolant.geometry.girth", "girth", "no such key"},
		{"components.duct.material", "duct", "no such key"},
		{"class.material", "class", "not a tree"},
	}
	for _, tt := range tests {
		err := tr.Assign(tt.path, 1.0, ".")
		var pe *PathError
		if !errors.As(err, &pe) {
			t.Errorf("Assign(%q) err = %v, want PathError", tt.path, err)
			continue
		}
		if pe.Segment != tt.segment || pe.Reason != tt.reason {
			t.Errorf("Assign(%q) PathError = %+v", tt.path, pe)
		}
	}

	// Failed assignments leave the tree untouched.
	snapshot := pinFixture(t)
	if !tr.Equal(snapshot) {
		t.Error("failed Assign mutated the tree")
	}
}

func TestAssignKeepsKeyPosition(t *testing.T) {
	tr := pinFixture(t)
	before := tr.Keys()

	if err := tr.Assign("class", "pin", "."); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	after := tr.Keys()
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("key order changed: %v -> %v", before, after)
		}
	}
}
