package tree

import (
	"cmp"
	"slices"
)

// Node is one package in a dependency tree.
type Node struct {
	Name     string  `json:"name"`
	Version  string  `json:"version,omitempty"`
	Children []*Node `json:"dependencies,omitempty"`
}

// Pair identifies a package version independent of its tree position.
type Pair struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (p Pair) String() string { return p.Name + "@" + p.Version }

// IsRoot reports whether n is the workspace root (no pinned version).
func (n *Node) IsRoot() bool { return n.Version == "" }

// Pair returns n's name and version.
func (n *Node) Pair() Pair { return Pair{Name: n.Name, Version: n.Version} }

// Child returns the first direct child named name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(n *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns the number of non-root nodes reachable from n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(m *Node, _ int) bool {
		if !m.IsRoot() {
			count++
		}
		return true
	})
	return count
}

// Pairs returns every distinct (name, version) reachable from n, excluding
// the root, sorted by name then version.
func (n *Node) Pairs() []Pair {
	seen := make(map[Pair]struct{})
	n.Walk(func(m *Node, _ int) bool {
		if !m.IsRoot() {
			seen[m.Pair()] = struct{}{}
		}
		return true
	})
	pairs := make([]Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b Pair) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Version, b.Version))
	})
	return pairs
}

// Find returns every node named name, in walk order.
func (n *Node) Find(name string) []*Node {
	var found []*Node
	n.Walk(func(m *Node, _ int) bool {
		if m.Name == name {
			found = append(found, m)
		}
		return true
	})
	return found
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name, Version: n.Version}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// SortChildren orders n's children by name then version, recursively.
func (n *Node) SortChildren() {
	slices.SortFunc(n.Children, func(a, b *Node) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Version, b.Version))
	})
	for _, c := range n.Children {
		c.SortChildren()
	}
}

// Equal reports whether a and b have the same shape, names, versions and
// child order.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Version != b.Version || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
