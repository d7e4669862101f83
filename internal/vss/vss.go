// Package vss translates a Vehicle Signal Specification tree into device
// template field schemas.
package vss

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownDatatype is returned for a leaf whose datatype has no mapping.
	ErrUnknownDatatype = errors.New("unknown vss datatype")
	// ErrInvalidTree is returned when the document is not a VSS tree.
	ErrInvalidTree = errors.New("invalid vss tree")
)

const TypeBranch = "branch"

// Node is one branch or leaf of the tree. Children keep document order.
type Node struct {
	Name        string
	Type        string
	Datatype    string
	Description string
	Unit        string
	Min         *float64
	Max         *float64
	Default     any
	Allowed     []any
	Children    []*Node
}

// IsBranch reports whether n groups other signals.
func (n *Node) IsBranch() bool { return n.Type == TypeBranch }

type nodeProps struct {
	Type        string   `yaml:"type"`
	Datatype    string   `yaml:"datatype"`
	Description string   `yaml:"description"`
	Unit        string   `yaml:"unit"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	Default     any      `yaml:"default"`
	Allowed     []any    `yaml:"allowed"`
}

// Parse reads a VSS document in JSON or YAML. Both the nested export
// ({"Vehicle":{"type":"branch","children":{...}}}) and the flat export keyed
// by dotted path ("Vehicle.Speed") are accepted. The returned root is an
// unnamed branch holding the top level entries.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidTree)
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidTree)
	}
	root := &Node{Type: TypeBranch}
	if isFlat(top) {
		return root, parseFlat(root, top)
	}
	children, err := parseChildren(top, "")
	if err != nil {
		return nil, err
	}
	root.Children = children
	return root, nil
}

func isFlat(m *yaml.Node) bool {
	for i := 0; i < len(m.Content); i += 2 {
		if strings.Contains(m.Content[i].Value, ".") {
			return true
		}
	}
	return false
}

func parseChildren(m *yaml.Node, parent string) ([]*Node, error) {
	out := make([]*Node, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		name := m.Content[i].Value
		n, err := parseNode(name, join(parent, name), m.Content[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseNode(name, path string, v *yaml.Node) (*Node, error) {
	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s is not a mapping", ErrInvalidTree, path)
	}
	var p nodeProps
	if err := v.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTree, path, err)
	}
	n := &Node{
		Name:        name,
		Type:        p.Type,
		Datatype:    p.Datatype,
		Description: p.Description,
		Unit:        p.Unit,
		Min:         p.Min,
		Max:         p.Max,
		Default:     p.Default,
		Allowed:     p.Allowed,
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		if v.Content[i].Value != "children" {
			continue
		}
		c := v.Content[i+1]
		if c.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: %s.children is not a mapping", ErrInvalidTree, path)
		}
		children, err := parseChildren(c, path)
		if err != nil {
			return nil, err
		}
		n.Children = children
	}
	return n, nil
}

func parseFlat(root *Node, m *yaml.Node) error {
	index := map[string]*Node{"": root}
	for i := 0; i+1 < len(m.Content); i += 2 {
		path := m.Content[i].Value
		parts := strings.Split(path, ".")
		parent := root
		for j := 0; j < len(parts)-1; j++ {
			p := strings.Join(parts[:j+1], ".")
			n, ok := index[p]
			if !ok {
				n = &Node{Name: parts[j], Type: TypeBranch}
				parent.Children = append(parent.Children, n)
				index[p] = n
			}
			parent = n
		}
		n, err := parseNode(parts[len(parts)-1], path, m.Content[i+1])
		if err != nil {
			return err
		}
		// A branch may be declared after an implicit one was created for
		// an earlier leaf.
		if existing, ok := index[path]; ok {
			existing.Type = n.Type
			existing.Description = n.Description
			continue
		}
		parent.Children = append(parent.Children, n)
		index[path] = n
	}
	return nil
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// Write encodes v as indented JSON.
func Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
