package link

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/manifest"
	"github.com/matzehuels/palace/pkg/observability"
	"github.com/matzehuels/palace/pkg/tree"
)

// linkBins creates binDir/<exec> symlinks for every executable m declares.
func (l *Linker) linkBins(ctx context.Context, c *tree.Node, m *manifest.Manifest, dir, binDir string) error {
	bins := m.Executables()
	if len(bins) == 0 {
		return nil
	}
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", binDir, err)
	}

	for _, name := range slices.Sorted(maps.Keys(bins)) {
		script := bins[name]
		if err := errors.ValidateBinName(name); err != nil {
			return fmt.Errorf("%s@%s: %w", c.Name, c.Version, err)
		}
		if err := errors.ValidateRelativePath(script); err != nil {
			return fmt.Errorf("%s@%s: bin %s: %w", c.Name, c.Version, name, err)
		}

		source := filepath.Join(dir, filepath.FromSlash(script))
		dest := filepath.Join(binDir, name)
		rel, err := filepath.Rel(binDir, source)
		if err != nil {
			return fmt.Errorf("%s@%s: bin %s: %w", c.Name, c.Version, name, err)
		}
		if err := symlink(rel, dest); err != nil {
			return fmt.Errorf("%s@%s: link bin %s: %w", c.Name, c.Version, name, err)
		}
		if err := makeExecutable(source); err != nil {
			l.opts.Logger.Debug("bin target not made executable", "package", c.Name, "bin", name, "err", err)
		}

		l.opts.Logger.Debug("linked bin", "package", c.Name, "bin", name, "target", rel)
		observability.Install().OnBin(ctx, c.Name, name)
	}
	return nil
}

// symlink points dest at target, replacing whatever dest held before.
func symlink(target, dest string) error {
	for range 2 {
		if _, err := os.Lstat(dest); err == nil {
			if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		err := os.Symlink(target, dest)
		if err == nil || !os.IsExist(err) {
			return err
		}
	}
	return os.Symlink(target, dest)
}

// makeExecutable adds execute bits wherever read bits are set. Missing
// targets are left alone; the link dangles until the file appears.
func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	mode := info.Mode().Perm()
	return os.Chmod(path, mode|(mode&0o444)>>2)
}
