package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltree "github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/matzehuels/palace/pkg/pipeline"
	"github.com/matzehuels/palace/pkg/tree"
)

// Output formats supported by the tree command.
const (
	formatText = "text"
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var treeFormats = []string{formatText, formatJSON, formatDOT, formatSVG}

// treeOpts holds options for the tree command.
type treeOpts struct {
	workspaceFlags
	optimized bool
	format    string
	output    string
}

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	var opts treeOpts

	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "Print the resolved dependency tree without installing",
		Long: `Tree resolves the workspace manifest exactly as install does and prints the
result without touching the filesystem. By default the tree is shown as
resolved; --optimized shows the hoisted tree install would link.`,
		Example: `  # Show the hoisted tree
  palace tree --optimized

  # Render the resolved tree as SVG
  palace tree --format svg -o deps.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd, args, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.optimized, "optimized", false, "show the hoisted tree")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format: "+strings.Join(treeFormats, ", "))
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, args []string, opts treeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	if !slices.Contains(treeFormats, opts.format) {
		return fmt.Errorf("unknown format %q (valid: %s)", opts.format, strings.Join(treeFormats, ", "))
	}

	dir, cfg, err := opts.workspace(cmd, args)
	if err != nil {
		return err
	}

	result, err := newRunner(logger, dir, cfg).Execute(ctx, pipeline.Options{
		Manifest:   cfg.ManifestPath(dir),
		TargetDir:  dir,
		NoOptimize: !opts.optimized,
		DryRun:     true,
	})
	if err != nil {
		return err
	}

	data, err := renderTree(ctx, result.Optimized, opts.format)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printInfo(cmd.OutOrStdout(), "Wrote %s tree of %d packages", opts.format, result.Optimized.Count())
	printFile(cmd.OutOrStdout(), opts.output)
	return nil
}

// renderTree encodes n in the given format.
func renderTree(ctx context.Context, n *tree.Node, format string) ([]byte, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(n, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case formatDOT:
		return []byte(tree.ToDOT(n)), nil
	case formatSVG:
		return tree.RenderSVG(ctx, tree.ToDOT(n))
	default:
		return []byte(textTree(n).String() + "\n"), nil
	}
}

// =============================================================================
// Text Rendering
// =============================================================================

var (
	styleTreeRoot    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleTreeVersion = lipgloss.NewStyle().Foreground(colorDim)
	styleTreeBranch  = lipgloss.NewStyle().Foreground(colorDim).PaddingRight(1)
)

// textTree builds a lipgloss tree mirroring n.
func textTree(n *tree.Node) *ltree.Tree {
	t := branch(styleTreeRoot.Render(n.Name))
	addChildren(t, n)
	return t
}

func branch(label string) *ltree.Tree {
	return ltree.Root(label).
		Enumerator(ltree.RoundedEnumerator).
		EnumeratorStyle(styleTreeBranch)
}

func addChildren(t *ltree.Tree, n *tree.Node) {
	for _, c := range n.Children {
		label := c.Name + " " + styleTreeVersion.Render(c.Version)
		if len(c.Children) == 0 {
			t.Child(label)
			continue
		}
		sub := branch(label)
		addChildren(sub, c)
		t.Child(sub)
	}
}
