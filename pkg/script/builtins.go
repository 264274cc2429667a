package script

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/mcattow/crucible/pkg/design"
	"github.com/mcattow/crucible/pkg/maker"
	"github.com/mcattow/crucible/pkg/tracker"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms shell source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals,
//     which would conflict with user-defined variables of the same
//     name.
//
//  2. Kebab-case to underscore: merge-overlaps -> merge_overlaps
//     zygomys does not allow hyphens in identifiers (it interprets
//     them as the subtraction operator). This converts kebab-case
//     identifiers to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line
// comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when the hyphen sits between identifier characters, so
		// the minus operator survives.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpTree wraps a design tree so subtrees can be inspected and
// passed around in the shell.
type sexpTree struct {
	tree *design.Tree
}

func (t *sexpTree) SexpString(ps *zygo.PrintState) string {
	return t.tree.String()
}
func (t *sexpTree) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by
// preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string. Returns the
// keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword
// argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value conversion
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toValue converts a Sexp into a design tree value. Numbers become
// float64 to match the decoders.
func toValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpStr:
		return v.S, nil
	case *zygo.SexpBool:
		return v.Val, nil
	}
	return nil, fmt.Errorf("expected number, string or bool, got %T (%s)", s, s.SexpString(nil))
}

// fromValue converts a design tree value into a Sexp.
func fromValue(v any) zygo.Sexp {
	switch x := v.(type) {
	case nil:
		return zygo.SexpNull
	case *design.Tree:
		return &sexpTree{tree: x}
	case float64:
		return &zygo.SexpFloat{Val: x}
	case bool:
		return &zygo.SexpBool{Val: x}
	case string:
		return &zygo.SexpStr{S: x}
	case []any:
		items := make([]zygo.Sexp, len(x))
		for i, item := range x {
			items[i] = fromValue(item)
		}
		return &zygo.SexpArray{Val: items}
	}
	return &zygo.SexpStr{S: fmt.Sprint(v)}
}

func stringArray(ss []string) zygo.Sexp {
	items := make([]zygo.Sexp, len(ss))
	for i, s := range ss {
		items[i] = &zygo.SexpStr{S: s}
	}
	return &zygo.SexpArray{Val: items}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// record returns the tracking record or an error telling the user to
// track first.
func record(m *maker.Maker, builtin string) (*tracker.Record, error) {
	rec := m.Record()
	if rec == nil {
		return nil, fmt.Errorf("%s: nothing tracked yet, run (track) first", builtin)
	}
	return rec, nil
}

// registerBuiltins installs the pipeline builtins into a zygomys
// environment. They all act on the bound maker, so state persists
// across evaluations.
//
// Source code must be preprocessed with preprocessSource before
// evaluation so that :keyword tokens and kebab-case names are
// converted.
func registerBuiltins(env *zygo.Zlisp, m *maker.Maker) {

	// -----------------------------------------------------------------------
	// (load-design "blanket.json")
	// -----------------------------------------------------------------------
	env.AddFunction("load_design", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("load-design requires a file path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load-design: %w", err)
		}
		if err := m.LoadFile(path); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: path}, nil
	})

	// -----------------------------------------------------------------------
	// (fill)
	// -----------------------------------------------------------------------
	env.AddFunction("fill", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := m.Fill(); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (build)
	// -----------------------------------------------------------------------
	env.AddFunction("build", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := m.Build(); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (merge-overlaps)
	// -----------------------------------------------------------------------
	env.AddFunction("merge_overlaps", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := m.MergeOverlaps(); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (track)
	// -----------------------------------------------------------------------
	env.AddFunction("track", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := m.Track(); err != nil {
			return zygo.SexpNull, err
		}
		rec := m.Record()
		summary := fmt.Sprintf("%d components, %d blocks, %d sidesets",
			len(rec.Entries), len(rec.Blocks), len(rec.Sidesets))
		if rec.Incomplete() {
			summary += fmt.Sprintf(", %d failures", len(rec.Failures))
		}
		return &zygo.SexpStr{S: summary}, nil
	})

	// -----------------------------------------------------------------------
	// (mesh) or (mesh :size 1.5)
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if v, ok := pa.kw["size"]; ok {
			size, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mesh: size: %w", err)
			}
			if err := m.MeshSize(size); err != nil {
				return zygo.SexpNull, err
			}
			return zygo.SexpNull, nil
		}
		if err := m.Mesh(); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (export) -> array of written paths
	// -----------------------------------------------------------------------
	env.AddFunction("export", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		paths, err := m.Export()
		if err != nil {
			return zygo.SexpNull, err
		}
		return stringArray(paths), nil
	})

	// -----------------------------------------------------------------------
	// (run) -> array of written paths
	// -----------------------------------------------------------------------
	env.AddFunction("run", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		paths, err := m.Run()
		if err != nil {
			return zygo.SexpNull, err
		}
		return stringArray(paths), nil
	})

	// -----------------------------------------------------------------------
	// (reset)
	// -----------------------------------------------------------------------
	env.AddFunction("reset", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := m.Reset(); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (param "components.coolant.geometry.radius")
	// -----------------------------------------------------------------------
	env.AddFunction("param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("param requires a path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %w", err)
		}
		v, err := m.Param(path)
		if err != nil {
			return zygo.SexpNull, err
		}
		return fromValue(v), nil
	})

	// -----------------------------------------------------------------------
	// (set-param "components.coolant.geometry.radius" 2.5)
	// -----------------------------------------------------------------------
	env.AddFunction("set_param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("set-param requires a path and a value")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-param: %w", err)
		}
		value, err := toValue(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-param: %w", err)
		}
		if err := m.SetParam(path, value); err != nil {
			return zygo.SexpNull, err
		}
		return args[1], nil
	})

	// -----------------------------------------------------------------------
	// (design) -> the filled tree, or the raw one before filling
	// -----------------------------------------------------------------------
	env.AddFunction("design", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		t := m.Tree()
		if t == nil {
			t = m.Raw()
		}
		if t == nil {
			return zygo.SexpNull, maker.ErrNoDesign
		}
		return &sexpTree{tree: t}, nil
	})

	// -----------------------------------------------------------------------
	// (classes) -> array of registered class tags
	// -----------------------------------------------------------------------
	env.AddFunction("classes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return stringArray(m.Classes().Tags()), nil
	})

	// -----------------------------------------------------------------------
	// (template "pin") -> the class template tree
	// -----------------------------------------------------------------------
	env.AddFunction("template", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("template requires a class tag")
		}
		tag, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("template: %w", err)
		}
		t, ok := m.Templates().Template(tag)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("template: no class %q", tag)
		}
		return &sexpTree{tree: t}, nil
	})

	// -----------------------------------------------------------------------
	// (names) -> array of tracked component names
	// -----------------------------------------------------------------------
	env.AddFunction("names", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		rec, err := record(m, "names")
		if err != nil {
			return zygo.SexpNull, err
		}
		return stringArray(rec.Names()), nil
	})

	// -----------------------------------------------------------------------
	// (blocks) -> array of block materials
	// -----------------------------------------------------------------------
	env.AddFunction("blocks", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		rec, err := record(m, "blocks")
		if err != nil {
			return zygo.SexpNull, err
		}
		materials := make([]string, len(rec.Blocks))
		for i, b := range rec.Blocks {
			materials[i] = b.Material
		}
		return stringArray(materials), nil
	})

	// -----------------------------------------------------------------------
	// (block-members "EUROFER") -> array of component names
	// -----------------------------------------------------------------------
	env.AddFunction("block_members", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("block-members requires a material")
		}
		material, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block-members: %w", err)
		}
		rec, err := record(m, "block-members")
		if err != nil {
			return zygo.SexpNull, err
		}
		b, ok := rec.Block(material)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("block-members: no block %q", material)
		}
		return stringArray(b.Members), nil
	})

	// -----------------------------------------------------------------------
	// (sidesets) -> array of sideset names
	// -----------------------------------------------------------------------
	env.AddFunction("sidesets", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		rec, err := record(m, "sidesets")
		if err != nil {
			return zygo.SexpNull, err
		}
		names := make([]string, len(rec.Sidesets))
		for i, s := range rec.Sidesets {
			names[i] = s.Name
		}
		return stringArray(names), nil
	})

	// -----------------------------------------------------------------------
	// (failures) -> array of boundary query failures
	// -----------------------------------------------------------------------
	env.AddFunction("failures", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		rec, err := record(m, "failures")
		if err != nil {
			return zygo.SexpNull, err
		}
		msgs := make([]string, len(rec.Failures))
		for i, f := range rec.Failures {
			msgs[i] = f.Error()
		}
		return stringArray(msgs), nil
	})
}
