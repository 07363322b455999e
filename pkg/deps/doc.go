// Package deps resolves declared dependencies into a pinned dependency tree.
//
// # Specifiers
//
// A [Specifier] pairs a package name with the string declared for it in a
// manifest. [Specifier.Kind] classifies that string:
//
//   - KindPath: "/abs.tgz", "./rel.tgz", "../up.tgz"
//   - KindURL: "https://host/pkg.tgz", "file:///tmp/pkg.tgz"
//   - KindExact: "1.2.3", "v1.2.3", "=1.2.3"
//   - KindRange: "^1.2.0", "~1.2", ">=1 <2", "1.x", "*"
//   - KindTag: "latest", "next"
//
// # Resolution
//
// [Resolver.Resolve] walks the root manifest's dependencies. A dependency
// already satisfied by an ancestor (see [Visibility]) is pruned; the rest
// are pinned with [Resolver.Pin], their archives fetched, and their own
// dependencies resolved recursively. Sibling branches resolve concurrently
// and every branch error is reported, joined, rather than only the first.
//
//	r := deps.NewResolver(client, deps.Options{Logger: logger})
//	root, err := r.Resolve(ctx, m)
package deps
