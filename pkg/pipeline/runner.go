package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/palace/pkg/manifest"
	"github.com/matzehuels/palace/pkg/observability"
	"github.com/matzehuels/palace/pkg/tree"
)

// Runner executes install runs. It keeps no per-run state, so one Runner
// may serve concurrent runs with different options.
type Runner struct {
	Resolver Resolver
	Linker   Linker
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(resolver Resolver, linker Linker, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Resolver: resolver, Linker: linker, Logger: logger}
}

// Execute loads the root manifest and runs every stage opts enables.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	root, err := manifest.Load(opts.Manifest)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, root, opts)
}

// Run executes the pipeline for an already loaded root manifest.
func (r *Runner) Run(ctx context.Context, root *manifest.Manifest, opts Options) (*Result, error) {
	result := &Result{Root: root}

	// Stage 1: Resolve
	d, err := r.stage(ctx, observability.StageResolve, func() error {
		var err error
		result.Resolved, err = r.Resolver.Resolve(ctx, root)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	result.Stats.ResolveTime = d
	result.Stats.Resolved = result.Resolved.Count()
	result.Stats.Unique = len(result.Resolved.Pairs())
	r.Logger.Info("resolved dependencies",
		"packages", result.Stats.Resolved,
		"unique", result.Stats.Unique,
		"duration", d)

	// Stage 2: Optimize
	result.Optimized = result.Resolved
	if !opts.NoOptimize {
		d, _ = r.stage(ctx, observability.StageOptimize, func() error {
			result.Optimized = tree.Optimize(result.Resolved)
			return nil
		})
		result.Stats.OptimizeTime = d
		r.Logger.Info("optimized tree",
			"before", result.Stats.Resolved,
			"after", result.Optimized.Count(),
			"duration", d)
	}
	result.Stats.Installed = result.Optimized.Count()

	if opts.DryRun {
		return result, nil
	}

	// Stage 3: Link
	d, err = r.stage(ctx, observability.StageLink, func() error {
		return r.Linker.Link(ctx, result.Optimized, opts.TargetDir)
	})
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	result.Stats.LinkTime = d
	r.Logger.Info("linked packages",
		"packages", result.Stats.Installed,
		"dir", opts.TargetDir,
		"duration", d)

	return result, nil
}

func (r *Runner) stage(ctx context.Context, s observability.Stage, fn func() error) (time.Duration, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, s)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	hooks.OnStageComplete(ctx, s, d, err)
	return d, err
}
