// Package pkg provides the core libraries of palace, a package.json
// dependency installer.
//
// # Overview
//
// Palace turns the dependencies declared in a root manifest into a tree of
// pinned packages, hoists shared packages toward the root, and links the
// result into a nested store on disk. The pkg directory is organized into
// three areas:
//
//  1. Domain logic: [deps], [tree], [link]
//  2. Infrastructure: [registry], [archive], [manifest], [config], [httputil]
//  3. Orchestration and support: [pipeline], [observability], [errors], [buildinfo]
//
// # Architecture
//
// The data flow of an install:
//
//	package.json
//	     ↓
//	[deps] resolve specifiers against the [registry] (exact, range, tag, path, URL)
//	     ↓
//	[tree] optimize: hoist sub-dependencies that do not conflict
//	     ↓
//	[link] extract archives into <dir>/store, link executables, run scripts
//
// # Quick Start
//
//	cfg, _ := config.Load(dir)
//	runner := pipeline.FromConfig(cfg, pipeline.Env{Dir: dir})
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Manifest:  cfg.ManifestPath(dir),
//	    TargetDir: dir,
//	})
//
// # Main Packages
//
//   - [deps]: Resolver with immutable visibility pruning and version pinning
//   - [tree]: Dependency tree, optimizer, and DOT/SVG rendering
//   - [link]: Store layout, executable symlinks, lifecycle scripts
//   - [registry]: HTTP and filesystem archive fetching, version listings
//   - [archive]: Tarball extraction with path stripping and escape checks
//   - [manifest]: package.json parsing
//   - [config]: palace.toml settings
//   - [pipeline]: resolve → optimize → link orchestration
//   - [observability]: Hooks for progress and metrics
//   - [errors]: Structured error codes
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/deps
// [tree]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/tree
// [link]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/link
// [registry]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/registry
// [archive]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/archive
// [manifest]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/manifest
// [config]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/config
// [httputil]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/httputil
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/palace/pkg/buildinfo
package pkg
