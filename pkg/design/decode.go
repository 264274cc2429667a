package design

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// DecodeJSON reads a parameter tree from JSON. The decoder walks the
// token stream rather than unmarshalling into a map so that object key
// order survives intact. Numbers decode to float64, duplicate keys
// keep their first position with the last value winning.
func DecodeJSON(r io.Reader) (*Tree, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("design: decode json: %w", err)
	}
	d, ok := tok.(json.Delim)
	if !ok || d != '{' {
		return nil, fmt.Errorf("design: decode json: top-level value must be an object, got %v", tok)
	}
	t, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("design: decode json: %w", err)
	}
	return t, nil
}

// ParseJSON decodes a parameter tree from a byte slice.
func ParseJSON(data []byte) (*Tree, error) {
	return DecodeJSON(bytes.NewReader(data))
}

// decodeObject consumes tokens after an opening '{' up to and
// including the matching '}'.
func decodeObject(dec *json.Decoder) (*Tree, error) {
	t := NewTree()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(dec, valTok)
		if err != nil {
			return nil, err
		}
		t.Set(key, val)
	}
	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return t, nil
}

// decodeArray consumes tokens after an opening '[' up to and including
// the matching ']'.
func decodeArray(dec *json.Decoder) ([]any, error) {
	out := []any{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(dec, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(dec *json.Decoder, tok json.Token) (any, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", v.String(), err)
		}
		return f, nil
	case string:
		return v, nil
	case bool:
		return v, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// LoadFile reads a parameter tree from disk, choosing the parser by
// file extension: .json, .yaml or .yml.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	case ".json":
		return DecodeJSON(f)
	default:
		return nil, fmt.Errorf("design: %s: unsupported parameter file extension", path)
	}
}

// FileLoader resolves reference names against a base directory. It is
// the default Loader used for `components` file references; tests
// substitute an in-memory implementation.
type FileLoader struct {
	Dir string
}

// Load parses the named file relative to the loader's directory.
func (l FileLoader) Load(name string) (*Tree, error) {
	return LoadFile(filepath.Join(l.Dir, name))
}
