package deps

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/palace/pkg/registry"
)

// DefaultMaxDepth bounds how deep resolution may recurse.
const DefaultMaxDepth = 256

// Options configures dependency resolution behavior.
type Options struct {
	MaxDepth int         // Maximum tree depth before failing with DEPTH_EXCEEDED (default: 256)
	Logger   *log.Logger // Debug-level progress output (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Pinned is a specifier resolved to an exact version or a concrete archive
// location. Version is never a range or tag.
type Pinned struct {
	Name    string
	Version string
}

func (p Pinned) String() string { return p.Name + "@" + p.Version }

// Fetcher retrieves archives and version metadata. [registry.Client]
// is the standard implementation; it must be safe for concurrent use.
type Fetcher interface {
	// FetchBytes returns the raw archive stored at location.
	FetchBytes(ctx context.Context, location string) ([]byte, error)
	// FetchVersions lists the published versions and dist-tags of name.
	FetchVersions(ctx context.Context, name string) (*registry.VersionList, error)
	// Location translates a pinned version into an archive location.
	Location(name, version string) string
}
