package deps

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/palace/pkg/archive"
	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/manifest"
	"github.com/matzehuels/palace/pkg/observability"
	"github.com/matzehuels/palace/pkg/tree"
)

// Resolver builds dependency trees from manifests. It holds no per-run
// state besides what its Fetcher memoizes, so one Resolver may serve
// concurrent calls.
type Resolver struct {
	fetcher Fetcher
	opts    Options
}

// NewResolver creates a Resolver backed by f.
func NewResolver(f Fetcher, opts Options) *Resolver {
	return &Resolver{fetcher: f, opts: opts.WithDefaults()}
}

// Resolve returns the full dependency tree of root. The returned root node
// has no version; every other node is pinned.
func (r *Resolver) Resolve(ctx context.Context, root *manifest.Manifest) (*tree.Node, error) {
	children, err := r.resolveAll(ctx, specifiers(root), Visibility{}, 1)
	if err != nil {
		return nil, err
	}
	return &tree.Node{Name: root.Name, Children: children}, nil
}

// Dependencies fetches the archive of p and returns the dependencies its
// manifest declares.
func (r *Resolver) Dependencies(ctx context.Context, p Pinned) ([]Specifier, error) {
	location := r.fetcher.Location(p.Name, p.Version)

	start := time.Now()
	data, err := r.fetcher.FetchBytes(ctx, location)
	observability.Install().OnFetch(ctx, p.Name, location, len(data), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}

	text, err := archive.ExtractManifest(data, archive.NpmStrip)
	if errors.Is(err, errors.ErrCodeManifestNotFound) {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "package %s has no manifest", p)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	m, err := manifest.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", p, err)
	}
	return specifiers(m), nil
}

// resolveAll resolves every spec not already visible, one goroutine per
// branch, and waits for all of them.
func (r *Resolver) resolveAll(ctx context.Context, specs []Specifier, visible Visibility, depth int) ([]*tree.Node, error) {
	pending, pruned := visible.Partition(specs)
	for _, s := range pruned {
		r.opts.Logger.Debug("satisfied by ancestor", "dependency", s.String())
	}
	if len(pending) == 0 {
		return nil, nil
	}

	nodes := make([]*tree.Node, len(pending))
	errs := make([]error, len(pending))

	var g errgroup.Group
	for i, s := range pending {
		g.Go(func() error {
			nodes[i], errs[i] = r.resolve(ctx, s, visible, depth)
			return nil
		})
	}
	_ = g.Wait()

	if err := stderrors.Join(errs...); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *Resolver) resolve(ctx context.Context, s Specifier, visible Visibility, depth int) (*tree.Node, error) {
	if depth > r.opts.MaxDepth {
		return nil, errors.New(errors.ErrCodeDepthExceeded,
			"dependency %s is nested deeper than %d levels", s, r.opts.MaxDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.ValidatePackageName(s.Name); err != nil {
		return nil, err
	}

	pinned, err := r.Pin(ctx, s)
	if err != nil {
		return nil, err
	}
	r.opts.Logger.Debug("pinned", "dependency", s.String(), "version", pinned.Version)
	observability.Install().OnResolve(ctx, pinned.Name, pinned.Version)

	sub, err := r.Dependencies(ctx, pinned)
	if err != nil {
		return nil, err
	}

	children, err := r.resolveAll(ctx, sub, visible.With(pinned.Name, pinned.Version), depth+1)
	if err != nil {
		return nil, err
	}
	return &tree.Node{Name: pinned.Name, Version: pinned.Version, Children: children}, nil
}

func specifiers(m *manifest.Manifest) []Specifier {
	declared := m.Deps()
	specs := make([]Specifier, len(declared))
	for i, d := range declared {
		specs[i] = Specifier{Name: d.Name, Spec: d.Spec}
	}
	return specs
}
