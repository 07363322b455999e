package link

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/palace/pkg/archive"
	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/manifest"
	"github.com/matzehuels/palace/pkg/observability"
	"github.com/matzehuels/palace/pkg/tree"
)

const (
	StoreDir = "store" // Directory holding a package's installed dependencies
	BinDir   = ".bin"  // Directory inside the store holding executable links

	DefaultScriptConcurrency = 4 // Default concurrently running lifecycle scripts
)

// Fetcher retrieves package archives.
type Fetcher interface {
	FetchBytes(ctx context.Context, location string) ([]byte, error)
	Location(name, version string) string
}

// Options configures a Linker.
type Options struct {
	ScriptConcurrency int          // Maximum concurrently running scripts (default: 4)
	IgnoreScripts     bool         // Skip lifecycle scripts entirely
	Runner            ScriptRunner // Executes lifecycle scripts (default: ShellRunner)
	BaseEnv           []string     // Environment scripts inherit (default: os.Environ())
	Logger            *log.Logger  // Progress and script output (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.ScriptConcurrency <= 0 {
		opts.ScriptConcurrency = DefaultScriptConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Runner == nil {
		opts.Runner = &ShellRunner{}
	}
	if opts.BaseEnv == nil {
		opts.BaseEnv = os.Environ()
	}
	return opts
}

// Linker installs trees into directories. It is safe for concurrent use.
type Linker struct {
	fetcher Fetcher
	opts    Options
	scripts *semaphore.Weighted
}

// NewLinker creates a Linker that downloads archives through f.
func NewLinker(f Fetcher, opts Options) *Linker {
	opts = opts.WithDefaults()
	return &Linker{
		fetcher: f,
		opts:    opts,
		scripts: semaphore.NewWeighted(int64(opts.ScriptConcurrency)),
	}
}

// Link installs n into targetDir. The root node's content is assumed to be
// present already; every other node's archive is extracted into targetDir
// before its children are linked beneath it.
func (l *Linker) Link(ctx context.Context, n *tree.Node, targetDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !n.IsRoot() {
		if err := l.extract(ctx, n, targetDir); err != nil {
			return err
		}
	}
	if len(n.Children) == 0 {
		return nil
	}

	errs := make([]error, len(n.Children))
	var g errgroup.Group
	for i, c := range n.Children {
		g.Go(func() error {
			errs[i] = l.linkChild(ctx, c, targetDir)
			return nil
		})
	}
	_ = g.Wait()
	return stderrors.Join(errs...)
}

func (l *Linker) extract(ctx context.Context, n *tree.Node, dir string) error {
	location := l.fetcher.Location(n.Name, n.Version)

	start := time.Now()
	data, err := l.fetcher.FetchBytes(ctx, location)
	observability.Install().OnFetch(ctx, n.Name, location, len(data), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("fetch %s@%s: %w", n.Name, n.Version, err)
	}
	if err := archive.ExtractTo(data, dir, archive.NpmStrip); err != nil {
		return fmt.Errorf("extract %s@%s: %w", n.Name, n.Version, err)
	}

	l.opts.Logger.Debug("extracted", "package", n.Name, "version", n.Version, "dir", dir)
	observability.Install().OnLink(ctx, n.Name, dir)
	return nil
}

func (l *Linker) linkChild(ctx context.Context, c *tree.Node, parentDir string) error {
	if err := errors.ValidatePackageName(c.Name); err != nil {
		return err
	}
	store := filepath.Join(parentDir, StoreDir)
	childDir := filepath.Join(store, filepath.FromSlash(c.Name))
	binDir := filepath.Join(store, BinDir)

	if err := l.Link(ctx, c, childDir); err != nil {
		return err
	}

	m, err := manifest.Load(filepath.Join(childDir, manifest.FileName))
	if err != nil {
		return fmt.Errorf("%s@%s: %w", c.Name, c.Version, err)
	}
	if m.Name == "" {
		m.Name = c.Name
	}

	if err := l.linkBins(ctx, c, m, childDir, binDir); err != nil {
		return err
	}
	if l.opts.IgnoreScripts {
		return nil
	}
	return l.runLifecycle(ctx, c, m, childDir)
}

// ScriptPath returns the PATH entry a package installed at dir uses to
// find its dependencies' executables.
func ScriptPath(dir string) string {
	return filepath.Join(dir, StoreDir, BinDir)
}

func (l *Linker) runLifecycle(ctx context.Context, c *tree.Node, m *manifest.Manifest, dir string) error {
	if !m.HasLifecycleScripts() {
		return nil
	}
	logger := l.opts.Logger.With("package", c.Name)

	for _, event := range manifest.LifecycleScripts {
		script := m.Script(event)
		if script == "" {
			continue
		}
		if err := l.runScript(ctx, c, event, script, dir, logger); err != nil {
			return err
		}
	}
	return nil
}

func (l *Linker) runScript(ctx context.Context, c *tree.Node, event, script, dir string, logger *log.Logger) error {
	if err := l.scripts.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.scripts.Release(1)

	logger = logger.With("script", event)
	logger.Debug("running", "command", script)

	stdout := newLineWriter(logger, log.DebugLevel)
	stderr := newLineWriter(logger, log.WarnLevel)
	env := ScriptEnv{
		Dir: dir,
		Env: resolveEnvironment(l.opts.BaseEnv, []string{
			"PATH=" + ScriptPath(dir),
			"npm_package_name=" + c.Name,
			"npm_package_version=" + c.Version,
			"npm_lifecycle_event=" + event,
		}),
		Stdout: stdout,
		Stderr: stderr,
	}

	start := time.Now()
	err := l.opts.Runner.Run(ctx, script, env)
	stdout.Flush()
	stderr.Flush()
	observability.Install().OnScript(ctx, c.Name, event, time.Since(start), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeScriptExecution, err,
			"%s script of %s@%s failed (exit %d)", event, c.Name, c.Version, exitCode(err))
	}
	return nil
}
