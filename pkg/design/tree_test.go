package design

import "testing"

func TestTreeKeyOrder(t *testing.T) {
	tr := NewTree()
	tr.Set("gamma", 1.0)
	tr.Set("alpha", 2.0)
	tr.Set("beta", 3.0)

	got := tr.Keys()
	want := []string{"gamma", "alpha", "beta"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTreeSetKeepsPosition(t *testing.T) {
	tr := NewTree()
	tr.Set("a", 1.0)
	tr.Set("b", 2.0)
	tr.Set("a", 3.0)

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	if tr.Keys()[0] != "a" {
		t.Errorf("overwritten key moved: keys = %v", tr.Keys())
	}
	if v, _ := tr.GetFloat("a"); v != 3.0 {
		t.Errorf("Get(a) = %v, want 3", v)
	}
}

func TestTreeCloneIsDeep(t *testing.T) {
	inner := NewTree()
	inner.Set("radius", 4.0)
	tr := NewTree()
	tr.Set("geometry", inner)
	tr.Set("tags", []any{"a", "b"})

	cl := tr.Clone()
	clInner, _ := cl.Child("geometry")
	clInner.Set("radius", 9.0)
	seq, _ := cl.Get("tags")
	seq.([]any)[0] = "mutated"

	if v, _ := inner.GetFloat("radius"); v != 4.0 {
		t.Errorf("clone shares nested tree: radius = %v", v)
	}
	orig, _ := tr.Get("tags")
	if orig.([]any)[0] != "a" {
		t.Errorf("clone shares sequence: %v", orig)
	}
}

func TestTreeEqual(t *testing.T) {
	build := func(order []string) *Tree {
		tr := NewTree()
		for i, k := range order {
			tr.Set(k, float64(i))
		}
		return tr
	}

	a := build([]string{"x", "y"})
	b := build([]string{"x", "y"})
	c := build([]string{"y", "x"})

	if !a.Equal(b) {
		t.Error("identical trees reported unequal")
	}
	if a.Equal(c) {
		t.Error("key order ignored by Equal")
	}

	b.Set("y", 99.0)
	if a.Equal(b) {
		t.Error("differing values reported equal")
	}
}

func TestTreeEqualNested(t *testing.T) {
	mk := func(r float64) *Tree {
		g := NewTree()
		g.Set("radius", r)
		tr := NewTree()
		tr.Set("class", "coolant")
		tr.Set("geometry", g)
		tr.Set("tags", []any{true, nil, "x"})
		return tr
	}
	if !mk(1).Equal(mk(1)) {
		t.Error("deeply equal trees reported unequal")
	}
	if mk(1).Equal(mk(2)) {
		t.Error("nested difference missed")
	}
}

func TestTreeMarshalJSONOrder(t *testing.T) {
	g := NewTree()
	g.Set("inner radius", 4.0)
	g.Set("length", 100.0)
	tr := NewTree()
	tr.Set("class", "cladding")
	tr.Set("geometry", g)

	b, err := tr.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"class":"cladding","geometry":{"inner radius":4,"length":100}}`
	if string(b) != want {
		t.Errorf("MarshalJSON = %s, want %s", b, want)
	}
}
