package design

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DecodeYAML reads a parameter tree from YAML. Decoding goes through
// the yaml.Node API so mapping key order is preserved; plain maps would
// shuffle it. Integers and floats both decode to float64 to match the
// JSON value model.
func DecodeYAML(r io.Reader) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewTree(), nil
		}
		return nil, fmt.Errorf("design: decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return NewTree(), nil
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("design: decode yaml: top-level value must be a mapping")
	}
	t, err := yamlTree(root)
	if err != nil {
		return nil, fmt.Errorf("design: decode yaml: %w", err)
	}
	return t, nil
}

// ParseYAML decodes a parameter tree from a byte slice.
func ParseYAML(data []byte) (*Tree, error) {
	return DecodeYAML(bytes.NewReader(data))
}

func yamlTree(n *yaml.Node) (*Tree, error) {
	t := NewTree()
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := resolveAlias(n.Content[i])
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
		}
		val, err := yamlValue(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		t.Set(keyNode.Value, val)
	}
	return t, nil
}

func yamlValue(n *yaml.Node) (any, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		return yamlTree(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind", n.Line)
}

func yamlScalar(n *yaml.Node) (any, error) {
	switch n.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad bool %q", n.Line, n.Value)
		}
		return b, nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad number %q", n.Line, n.Value)
		}
		return f, nil
	default:
		return n.Value, nil
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
