// Package scene models generated Godot scenes and persists them in the text
// scene format.
package scene

import (
	"encoding/json"
	"sort"
	"strings"
)

// RootPath is the node path of a scene's root node.
const RootPath = "."

// Property is a single node property. Value is a Godot variant literal such
// as `Vector2(16, 32)` or `"text"`. When Resource is set the property refers
// to the scene stored at that path and Value is ignored.
type Property struct {
	Key      string
	Value    string
	Resource string
}

// Node is one node of a scene tree. A node either has a Type or instances
// another scene through Instance, which holds that scene's path.
type Node struct {
	Name       string
	Type       string
	Instance   string
	Properties []Property
	Children   []*Node
}

// NewNode returns a node of the given type.
func NewNode(name, typ string) *Node {
	return &Node{Name: name, Type: typ}
}

// NewInstance returns a node instancing the scene stored at path.
func NewInstance(name, path string) *Node {
	return &Node{Name: name, Instance: path}
}

// Set assigns a property, replacing an existing value in place so property
// order stays stable.
func (n *Node) Set(key, value string) *Node {
	for i := range n.Properties {
		if n.Properties[i].Key == key {
			n.Properties[i] = Property{Key: key, Value: value}
			return n
		}
	}
	n.Properties = append(n.Properties, Property{Key: key, Value: value})
	return n
}

// SetResource assigns a property referring to the scene stored at path.
func (n *Node) SetResource(key, path string) *Node {
	for i := range n.Properties {
		if n.Properties[i].Key == key {
			n.Properties[i] = Property{Key: key, Resource: path}
			return n
		}
	}
	n.Properties = append(n.Properties, Property{Key: key, Resource: path})
	return n
}

// AddChild appends c and returns it.
func (n *Node) AddChild(c *Node) *Node {
	n.Children = append(n.Children, c)
	return c
}

// Child returns the direct child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Metadata is a side-table of opaque JSON fragments keyed by node path and
// then by metadata key.
type Metadata map[string]map[string]json.RawMessage

// Set stores a fragment for the node at path.
func (m Metadata) Set(path, key string, value json.RawMessage) {
	entries, ok := m[path]
	if !ok {
		entries = make(map[string]json.RawMessage)
		m[path] = entries
	}
	entries[key] = value
}

// Get returns the fragment stored for the node at path.
func (m Metadata) Get(path, key string) (json.RawMessage, bool) {
	v, ok := m[path][key]
	return v, ok
}

// Keys returns the metadata keys for the node at path in sorted order.
func (m Metadata) Keys(path string) []string {
	keys := make([]string, 0, len(m[path]))
	for k := range m[path] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Scene is a node tree plus the metadata attached to its nodes.
type Scene struct {
	Root *Node
	Meta Metadata
}

// New returns a scene rooted at root.
func New(root *Node) *Scene {
	return &Scene{Root: root, Meta: make(Metadata)}
}

// Walk visits every node depth first, parents before children. path is the
// node path relative to the root and parent is the parent's path ("" for the
// root).
func (s *Scene) Walk(fn func(n *Node, path, parent string)) {
	if s.Root == nil {
		return
	}
	fn(s.Root, RootPath, "")
	for _, c := range s.Root.Children {
		walk(c, c.Name, RootPath, fn)
	}
}

func walk(n *Node, path, parent string, fn func(*Node, string, string)) {
	fn(n, path, parent)
	for _, c := range n.Children {
		walk(c, path+"/"+c.Name, path, fn)
	}
}

// ChildPath joins a parent node path and a child name.
func ChildPath(parent, name string) string {
	if parent == "" || parent == RootPath {
		return name
	}
	return parent + "/" + name
}

// Find returns the node at path.
func (s *Scene) Find(path string) *Node {
	if s.Root == nil {
		return nil
	}
	if path == RootPath {
		return s.Root
	}
	n := s.Root
	for _, part := range strings.Split(path, "/") {
		if n = n.Child(part); n == nil {
			return nil
		}
	}
	return n
}
