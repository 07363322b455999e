package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/palace/pkg/link"
	"github.com/matzehuels/palace/pkg/observability"
	"github.com/matzehuels/palace/pkg/pipeline"
)

// installOpts holds options for the install command.
type installOpts struct {
	workspaceFlags
	noOptimize bool
	progress   bool
	summary    bool
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var opts installOpts

	cmd := &cobra.Command{
		Use:   "install [dir]",
		Short: "Install the dependencies of a workspace",
		Long: `Install resolves every dependency declared in the workspace manifest,
hoists shared packages as close to the root as possible, and links the
result under <dir>/store. Executables are linked into <dir>/store/.bin and
lifecycle scripts (preinstall, install, postinstall) run after each package
is in place.

Settings are read from <dir>/palace.toml when present; flags override them.`,
		Example: `  # Install the current directory
  palace install

  # Install another workspace without running scripts
  palace install ./app --ignore-scripts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd, args, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.noOptimize, "no-optimize", false, "link the resolved tree without hoisting")
	cmd.Flags().BoolVar(&opts.progress, "progress", true, "show live progress (only when stderr is a terminal)")
	cmd.Flags().BoolVar(&opts.summary, "summary", true, "print a summary table when done")

	return cmd
}

func (c *CLI) runInstall(cmd *cobra.Command, args []string, opts installOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := cmd.OutOrStdout()

	dir, cfg, err := opts.workspace(cmd, args)
	if err != nil {
		return err
	}

	live := opts.progress && isTerminal(os.Stderr)
	runLogger := logger
	if live {
		// Info lines would tear the progress line; warnings still show.
		runLogger = logger.With()
		runLogger.SetLevel(max(logger.GetLevel(), log.WarnLevel))
	}
	runner := newRunner(runLogger, dir, cfg)

	var (
		stats  observability.Stats
		result *pipeline.Result
	)
	install := func(ctx context.Context) error {
		var err error
		result, err = runner.Execute(ctx, pipeline.Options{
			Manifest:   cfg.ManifestPath(dir),
			TargetDir:  dir,
			NoOptimize: opts.noOptimize,
		})
		return err
	}

	prog := newProgress(logger)
	if live {
		err = trackInstallLive(ctx, os.Stderr, &stats, install)
	} else {
		err = trackInstall(ctx, &stats, install)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Installed %d packages", result.Stats.Installed))

	printSuccess(out, "Installed %s into %s",
		StyleNumber.Render(fmt.Sprintf("%d packages", result.Stats.Installed)),
		StyleValue.Render(filepath.Join(dir, link.StoreDir)))
	printDetail(out, "registry %s", cfg.Registry)
	if cfg.IgnoreScripts {
		printWarning(out, "lifecycle scripts were skipped")
	}
	if opts.summary {
		fmt.Fprintln(out, renderSummary(result.Stats, stats.Snapshot()))
	}
	return nil
}
