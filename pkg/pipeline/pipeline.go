// Package pipeline runs a complete install: resolve → optimize → link.
//
// The same [Runner] backs both the install command and the dry-run tree
// command, so resolution behaves identically whether or not anything is
// written to disk.
//
// # Usage
//
//	runner := pipeline.FromConfig(cfg, pipeline.Env{Dir: dir, RunID: id, Logger: logger})
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Manifest:  cfg.ManifestPath(dir),
//	    TargetDir: dir,
//	})
//
// Each stage reports start and completion through
// [observability.Pipeline] and is logged with its duration.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/palace/pkg/config"
	"github.com/matzehuels/palace/pkg/deps"
	"github.com/matzehuels/palace/pkg/link"
	"github.com/matzehuels/palace/pkg/manifest"
	"github.com/matzehuels/palace/pkg/registry"
	"github.com/matzehuels/palace/pkg/tree"
)

// Resolver builds a dependency tree for a root manifest.
type Resolver interface {
	Resolve(ctx context.Context, root *manifest.Manifest) (*tree.Node, error)
}

// Linker materializes a tree into a directory.
type Linker interface {
	Link(ctx context.Context, n *tree.Node, targetDir string) error
}

// Options selects what a run does.
type Options struct {
	Manifest   string // Path of the root package.json
	TargetDir  string // Install directory (root package content lives here)
	NoOptimize bool   // Keep the resolved tree as-is
	DryRun     bool   // Stop before linking
}

// Stats records timings and sizes of one run.
type Stats struct {
	ResolveTime  time.Duration
	OptimizeTime time.Duration
	LinkTime     time.Duration
	Resolved     int // Nodes in the resolved tree
	Installed    int // Nodes in the tree that is linked
	Unique       int // Distinct name@version pairs
}

// Total returns the summed stage durations.
func (s Stats) Total() time.Duration {
	return s.ResolveTime + s.OptimizeTime + s.LinkTime
}

// Result holds the outputs of a run.
type Result struct {
	Root      *manifest.Manifest
	Resolved  *tree.Node
	Optimized *tree.Node // Equal to Resolved when optimization is skipped
	Stats     Stats
}

// Env carries the per-invocation context FromConfig needs.
type Env struct {
	Dir    string      // Workspace directory; relative path specifiers resolve here
	RunID  string      // Sent to the registry as npm-session
	Logger *log.Logger // Defaults to discard
}

// FromConfig wires a registry client, resolver and linker from cfg.
func FromConfig(cfg config.Config, env Env) *Runner {
	logger := env.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	client := registry.NewClient(registry.Options{
		URL:         cfg.Registry,
		Dir:         env.Dir,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout.Duration,
		Retries:     cfg.Retries,
		RunID:       env.RunID,
		Logger:      logger,
	})
	resolver := deps.NewResolver(client, deps.Options{
		MaxDepth: cfg.MaxDepth,
		Logger:   logger,
	})
	linker := link.NewLinker(client, link.Options{
		ScriptConcurrency: cfg.ScriptConcurrency,
		IgnoreScripts:     cfg.IgnoreScripts,
		Runner:            &link.ShellRunner{Shell: cfg.Shell},
		Logger:            logger,
	})
	return NewRunner(resolver, linker, logger)
}
