package tracker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/mcattow/crucible/pkg/component"
	"github.com/mcattow/crucible/pkg/design"
	"github.com/mcattow/crucible/pkg/kernel/fake"
)

// built resolves src, constructs the component tree and builds its
// geometry on a fresh fake session.
func built(t *testing.T, src string) (*component.Instance, *fake.Session) {
	t.Helper()
	raw, err := design.ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	tree, err := design.NewResolver(design.Defaults(), nil).Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	inst, err := component.Builtins().Construct(tree)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	sess := fake.New()
	if err := component.BuildGeometry(inst, sess); err != nil {
		t.Fatalf("BuildGeometry: %v", err)
	}
	return inst, sess
}

func mustTrack(t *testing.T, inst *component.Instance, sess *fake.Session) *Record {
	t.Helper()
	rec, err := New().Track(inst, sess)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	return rec
}

func TestTrackPin(t *testing.T) {
	inst, sess := built(t, `{"class": "pin"}`)
	rec := mustTrack(t, inst, sess)

	// The pin itself is unnamed; its children are named in slot order
	// with no prefix since the root contributes none.
	want := []string{"EUROFER0", "Helium0"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if rec.Entries[0].Material != "EUROFER" || rec.Entries[1].Material != "Helium" {
		t.Errorf("materials = %s, %s", rec.Entries[0].Material, rec.Entries[1].Material)
	}

	if len(rec.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(rec.Blocks))
	}
	if b, ok := rec.Block("EUROFER"); !ok || !reflect.DeepEqual(b.Members, []string{"EUROFER0"}) {
		t.Errorf("EUROFER block = %+v", b)
	}

	// The coolant sits inside the cladding bore, so the pair touches.
	if len(rec.Sidesets) != 1 {
		t.Fatalf("sidesets = %d, want 1", len(rec.Sidesets))
	}
	ss := rec.Sidesets[0]
	if ss.Name != "EUROFER_Helium" {
		t.Errorf("sideset name = %q, want EUROFER_Helium", ss.Name)
	}
	if ss.Blocks != [2]string{"EUROFER", "Helium"} {
		t.Errorf("sideset blocks = %v", ss.Blocks)
	}
	if rec.Incomplete() {
		t.Errorf("record incomplete: %v", rec.Failures)
	}
}

func TestTrackAppliesToSession(t *testing.T) {
	inst, sess := built(t, `{"class": "pin"}`)
	mustTrack(t, inst, sess)

	if got := sess.NameOf(inst.Child("cladding").Volume); got != "EUROFER0" {
		t.Errorf("kernel name = %q, want EUROFER0", got)
	}
	if got := sess.Blocks(); !reflect.DeepEqual(got, []string{"EUROFER", "Helium"}) {
		t.Errorf("kernel blocks = %v", got)
	}
	if got := sess.Sidesets(); !reflect.DeepEqual(got, []string{"EUROFER_Helium"}) {
		t.Errorf("kernel sidesets = %v", got)
	}
	if n := len(sess.SidesetSurfaces("EUROFER_Helium")); n != 1 {
		t.Errorf("sideset surfaces = %d, want 1", n)
	}
}

func TestTrackNestedPrefixes(t *testing.T) {
	inst, sess := built(t, `{
		"class": "blanket",
		"components": {
			"pin0": {"class": "pin"},
			"pin1": {"class": "pin"}
		}
	}`)
	rec := mustTrack(t, inst, sess)

	// Depth-first over slots, declared slots before template fill-ins.
	// Material counters are global, not per assembly.
	want := []string{
		"pin0.EUROFER0", "pin0.Helium0",
		"pin1.EUROFER1", "pin1.Helium1",
		"Tungsten0",
	}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}

	if len(rec.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(rec.Blocks))
	}
	b, ok := rec.Block("EUROFER")
	if !ok || !reflect.DeepEqual(b.Members, []string{"pin0.EUROFER0", "pin1.EUROFER1"}) {
		t.Errorf("EUROFER block = %+v", b)
	}

	// Each pin's coolant touches its own cladding; the pins sit a
	// pitch apart and the wall is offset in front, so the only
	// boundary is cladding against coolant, once per pin.
	ss, ok := rec.Sideset("EUROFER_Helium")
	if !ok {
		t.Fatalf("sidesets = %v, want EUROFER_Helium", rec.Sidesets)
	}
	if len(ss.Surfaces) != 2 {
		t.Errorf("surfaces = %d, want 2", len(ss.Surfaces))
	}
	if len(rec.Sidesets) != 1 {
		t.Errorf("sidesets = %d, want 1", len(rec.Sidesets))
	}
}

func TestTrackCustomDelimiter(t *testing.T) {
	inst, sess := built(t, `{
		"class": "blanket",
		"components": {"pin0": {"class": "pin"}}
	}`)
	tr := &Tracker{Delimiter: "/"}
	rec, err := tr.Track(inst, sess)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if rec.Entries[0].Name != "pin0/EUROFER0" {
		t.Errorf("name = %q, want pin0/EUROFER0", rec.Entries[0].Name)
	}
}

func TestTrackSelfPair(t *testing.T) {
	// With a pitch of 8 two default coolant rods of radius 4 abut,
	// so the Helium block touches itself.
	inst, sess := built(t, `{
		"class": "blanket",
		"geometry": {"pitch": 8.0},
		"components": {
			"c0": {"class": "coolant"},
			"c1": {"class": "coolant"}
		}
	}`)
	rec := mustTrack(t, inst, sess)

	ss, ok := rec.Sideset("Helium_Helium")
	if !ok {
		t.Fatalf("sidesets = %v, want Helium_Helium", rec.Sidesets)
	}
	if len(ss.Surfaces) != 1 {
		t.Errorf("surfaces = %d, want 1", len(ss.Surfaces))
	}
	if ss.Blocks != [2]string{"Helium", "Helium"} {
		t.Errorf("blocks = %v", ss.Blocks)
	}
}

func TestTrackSelfPairOmittedWhenApart(t *testing.T) {
	// The default pitch of 12 leaves a gap between the rods and
	// between the rods and the wall: no boundaries at all.
	inst, sess := built(t, `{
		"class": "blanket",
		"components": {
			"c0": {"class": "coolant"},
			"c1": {"class": "coolant"}
		}
	}`)
	rec := mustTrack(t, inst, sess)

	if len(rec.Sidesets) != 0 {
		t.Fatalf("sidesets = %v, want none", rec.Sidesets)
	}
	if got := sess.Sidesets(); len(got) != 0 {
		t.Errorf("kernel sidesets = %v, want none", got)
	}
}

func TestTrackSidesetNameIsSorted(t *testing.T) {
	// Declaring the wall first makes Tungsten the first block, but
	// the sideset name still orders the materials lexically.
	inst, sess := built(t, `{
		"class": "blanket",
		"components": {
			"first_wall": {"class": "first_wall"},
			"c0": {"class": "coolant"}
		}
	}`)
	sess.Connect(inst.Child("first_wall").Volume, inst.Child("c0").Volume)
	rec := mustTrack(t, inst, sess)

	if rec.Blocks[0].Material != "Tungsten" {
		t.Fatalf("first block = %s, want Tungsten", rec.Blocks[0].Material)
	}
	if _, ok := rec.Sideset("Helium_Tungsten"); !ok {
		t.Errorf("sidesets = %v, want Helium_Tungsten", rec.Sidesets)
	}
	if _, ok := rec.Sideset("Tungsten_Helium"); ok {
		t.Errorf("sideset name not sorted: %v", rec.Sidesets)
	}
}

func TestTrackCollectsPairFailures(t *testing.T) {
	inst, sess := built(t, `{"class": "pin"}`)
	boom := errors.New("facet query failed")
	sess.FailTouching(inst.Child("cladding").Volume, inst.Child("coolant").Volume, boom)

	rec := mustTrack(t, inst, sess)

	if !rec.Incomplete() {
		t.Fatal("record should be incomplete")
	}
	if len(rec.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(rec.Failures))
	}
	f := rec.Failures[0]
	if !errors.Is(f.Err, boom) {
		t.Errorf("failure err = %v, want %v", f.Err, boom)
	}
	if f.Members != [2]string{"EUROFER0", "Helium0"} {
		t.Errorf("failure members = %v", f.Members)
	}
	if f.Blocks != [2]string{"EUROFER", "Helium"} {
		t.Errorf("failure blocks = %v", f.Blocks)
	}
	if len(rec.Sidesets) != 0 {
		t.Errorf("sidesets = %v, want none", rec.Sidesets)
	}
	if !strings.Contains(f.Error(), "EUROFER0") {
		t.Errorf("failure text = %q", f.Error())
	}
}

func TestTrackFailureLeavesOtherPairsIntact(t *testing.T) {
	inst, sess := built(t, `{
		"class": "blanket",
		"components": {
			"pin0": {"class": "pin"},
			"pin1": {"class": "pin"}
		}
	}`)
	pin0 := inst.Child("pin0")
	boom := errors.New("kernel hiccup")
	sess.FailTouching(pin0.Child("cladding").Volume, pin0.Child("coolant").Volume, boom)

	rec := mustTrack(t, inst, sess)

	if !rec.Incomplete() || len(rec.Failures) != 1 {
		t.Fatalf("failures = %v", rec.Failures)
	}
	// pin1's boundary still makes it into the sideset.
	ss, ok := rec.Sideset("EUROFER_Helium")
	if !ok {
		t.Fatalf("sidesets = %v, want EUROFER_Helium", rec.Sidesets)
	}
	if len(ss.Surfaces) != 1 {
		t.Errorf("surfaces = %d, want 1", len(ss.Surfaces))
	}
}

func TestTrackRequiresBuiltBodies(t *testing.T) {
	raw, err := design.ParseJSON([]byte(`{"class": "pin"}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	tree, err := design.NewResolver(design.Defaults(), nil).Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	inst, err := component.Builtins().Construct(tree)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}

	_, err = New().Track(inst, fake.New())
	if err == nil || !strings.Contains(err.Error(), "has no body") {
		t.Fatalf("err = %v, want unbuilt component error", err)
	}
}

func TestTrackNameCollisionPanics(t *testing.T) {
	// Eleven "He" rods count up to He10, which collides with the
	// first rod of material "He1". The naming scheme treats that as
	// corruption, not input error.
	var b strings.Builder
	b.WriteString(`{"class": "blanket", "components": {`)
	b.WriteString(`"d0": {"class": "coolant", "material": "He1"}`)
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&b, `, "c%d": {"class": "coolant", "material": "He"}`, i)
	}
	b.WriteString(`}}`)
	inst, sess := built(t, b.String())

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on name collision")
		}
	}()
	_, _ = New().Track(inst, sess)
}

func TestProperty_CountersGlobalPerMaterial(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.IntRange(1, 6).Draw(rt, "k")
		material := "R" + rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "material")

		var b strings.Builder
		b.WriteString(`{"class": "blanket", "components": {`)
		for i := 0; i < k; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, `"c%d": {"class": "coolant", "material": %q}`, i, material)
		}
		b.WriteString(`}}`)

		raw, err := design.ParseJSON([]byte(b.String()))
		if err != nil {
			rt.Fatalf("ParseJSON: %v", err)
		}
		tree, err := design.NewResolver(design.Defaults(), nil).Resolve(raw)
		if err != nil {
			rt.Fatalf("Resolve: %v", err)
		}
		inst, err := component.Builtins().Construct(tree)
		if err != nil {
			rt.Fatalf("Construct: %v", err)
		}
		sess := fake.New()
		if err := component.BuildGeometry(inst, sess); err != nil {
			rt.Fatalf("BuildGeometry: %v", err)
		}
		rec, err := New().Track(inst, sess)
		if err != nil {
			rt.Fatalf("Track: %v", err)
		}

		want := make([]string, 0, k+1)
		for i := 0; i < k; i++ {
			want = append(want, fmt.Sprintf("%s%d", material, i))
		}
		want = append(want, "Tungsten0")
		if got := rec.Names(); !reflect.DeepEqual(got, want) {
			rt.Fatalf("names = %v, want %v", got, want)
		}
	})
}
