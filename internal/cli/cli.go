// Package cli implements the palace command-line interface.
package cli

import (
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/palace/pkg/buildinfo"
	"github.com/matzehuels/palace/pkg/config"
	"github.com/matzehuels/palace/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for commands and display.
const appName = "palace"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Palace installs package.json dependency trees",
		Long:         `Palace resolves the dependencies declared in a package.json against an npm-compatible registry, hoists them into a flat tree, and links every package into a nested store with its executables and lifecycle scripts.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.installCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Workspace
// =============================================================================

// workspaceFlags are the config overrides shared by install and tree.
type workspaceFlags struct {
	manifest          string
	registry          string
	concurrency       int
	scriptConcurrency int
	retries           int
	timeout           time.Duration
	ignoreScripts     bool
}

func (f *workspaceFlags) register(cmd *cobra.Command) {
	defaults := config.Default()
	fs := cmd.Flags()
	fs.StringVar(&f.manifest, "manifest", defaults.Manifest, "root manifest, relative to the workspace")
	fs.StringVar(&f.registry, "registry", defaults.Registry, "registry base URL")
	fs.IntVar(&f.concurrency, "concurrency", defaults.Concurrency, "maximum concurrent registry requests")
	fs.IntVar(&f.scriptConcurrency, "script-concurrency", defaults.ScriptConcurrency, "maximum concurrent lifecycle scripts")
	fs.IntVar(&f.retries, "retries", defaults.Retries, "retries for failed registry requests")
	fs.DurationVar(&f.timeout, "timeout", defaults.Timeout.Duration, "timeout for a single registry request")
	fs.BoolVar(&f.ignoreScripts, "ignore-scripts", defaults.IgnoreScripts, "skip lifecycle scripts")
}

// apply overrides cfg with every flag set on the command line.
func (f *workspaceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("manifest") {
		cfg.Manifest = f.manifest
	}
	if fs.Changed("registry") {
		cfg.Registry = f.registry
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if fs.Changed("script-concurrency") {
		cfg.ScriptConcurrency = f.scriptConcurrency
	}
	if fs.Changed("retries") {
		cfg.Retries = f.retries
	}
	if fs.Changed("timeout") {
		cfg.Timeout = config.Duration{Duration: f.timeout}
	}
	if fs.Changed("ignore-scripts") {
		cfg.IgnoreScripts = f.ignoreScripts
	}
}

// workspace resolves the target directory from args and loads its
// configuration with flag overrides applied.
func (f *workspaceFlags) workspace(cmd *cobra.Command, args []string) (string, config.Config, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", config.Config{}, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return "", config.Config{}, err
	}
	f.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return "", config.Config{}, err
	}
	return dir, cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for one invocation. Every run gets a
// fresh ID, attached to the log lines and sent to the registry.
func newRunner(logger *log.Logger, dir string, cfg config.Config) *pipeline.Runner {
	runID := uuid.NewString()
	return pipeline.FromConfig(cfg, pipeline.Env{
		Dir:    dir,
		RunID:  runID,
		Logger: logger.With("run", runID[:8]),
	})
}
