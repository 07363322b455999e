package tree

import "slices"

// Optimize returns a flattened copy of n. See the package documentation
// for the hoisting rules.
func Optimize(n *Node) *Node {
	if n == nil {
		return nil
	}
	cur := n
	for {
		next := optimize(cur)
		if Equal(next, cur) {
			return next
		}
		cur = next
	}
}

// optimize runs one post-order hoist/dedup pass, building new nodes.
func optimize(n *Node) *Node {
	children := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, optimize(c))
	}

	hard := len(children)
	for _, h := range children[:hard] {
		for _, sub := range slices.Clone(h.Children) {
			d := findChild(children, sub.Name)
			switch {
			case d == nil:
				children = append(children, sub)
				h.Children = removeOne(h.Children, sub)
			case d.Version == sub.Version:
				h.Children = removeOne(h.Children, sub)
			}
		}
	}

	return &Node{Name: n.Name, Version: n.Version, Children: children}
}

func findChild(children []*Node, name string) *Node {
	for _, c := range children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func removeOne(nodes []*Node, target *Node) []*Node {
	if i := slices.Index(nodes, target); i >= 0 {
		return slices.Delete(nodes, i, i+1)
	}
	return nodes
}
