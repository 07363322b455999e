// Package tree defines the dependency tree produced by resolution and the
// optimizer that flattens it before linking.
//
// A [Node] with an empty Version is the root: its content already lives in
// the install directory. Every other node is pinned to an exact version or
// a concrete archive location. The same name may occur at many positions
// with different versions; that is how version conflicts are represented.
//
// # Optimization
//
// [Optimize] hoists sub-dependencies one level up when the parent has no
// child of that name, and drops sub-dependencies already satisfied by an
// identical sibling of their parent. Conflicting versions stay where they
// are. The pass repeats until the tree stops changing, so the result is a
// fixed point and no node ends up with two children sharing a name.
//
// Optimize never mutates its input.
//
// # Export
//
// [ToDOT] and [RenderSVG] turn a tree into a Graphviz graph for inspection.
package tree
