package tree

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts a tree to Graphviz DOT format. Every tree position gets its
// own graph node, so a package installed in several places appears several
// times.
func ToDOT(n *Node) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	ids := make(map[*Node]string)
	n.Walk(func(m *Node, _ int) bool {
		id := fmt.Sprintf("n%d", len(ids))
		ids[m] = id
		fmt.Fprintf(&buf, "  %s [label=%q];\n", id, label(m))
		return true
	})

	buf.WriteString("\n")
	n.Walk(func(m *Node, _ int) bool {
		for _, c := range m.Children {
			fmt.Fprintf(&buf, "  %s -> %s;\n", ids[m], ids[c])
		}
		return true
	})

	buf.WriteString("}\n")
	return buf.String()
}

func label(n *Node) string {
	if n.IsRoot() {
		return n.Name
	}
	return n.Name + "\n" + n.Version
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
