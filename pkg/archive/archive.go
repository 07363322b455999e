package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/manifest"
)

// NpmStrip is the strip count for registry tarballs.
const NpmStrip = 1

// maxManifestSize bounds how much of a manifest entry is read into memory.
const maxManifestSize = 16 << 20

// ExtractManifest returns the text of package.json from the archive.
func ExtractManifest(data []byte, strip int) (string, error) {
	return ExtractFile(data, manifest.FileName, strip)
}

// ExtractFile returns the contents of the entry named name (after
// stripping) from the archive.
func ExtractFile(data []byte, name string, strip int) (string, error) {
	var (
		content string
		found   bool
	)
	err := walk(data, strip, func(hdr *tar.Header, entry string, r io.Reader) (bool, error) {
		if entry != name || hdr.Typeflag != tar.TypeReg {
			return true, nil
		}
		b, err := io.ReadAll(io.LimitReader(r, maxManifestSize))
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeDecode, err, "read %s", hdr.Name)
		}
		content, found = string(b), true
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.New(errors.ErrCodeManifestNotFound, "couldn't find %q inside the archive", name)
	}
	return content, nil
}

// ExtractTo writes every entry of the archive under dest, creating dest if
// needed. Existing files are overwritten.
func ExtractTo(data []byte, dest string, strip int) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	return walk(data, strip, func(hdr *tar.Header, entry string, r io.Reader) (bool, error) {
		target, ok := within(root, entry)
		if !ok || throughLink(root, target) {
			return true, nil
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			return true, os.MkdirAll(target, 0o755)
		case tar.TypeReg:
			return true, writeFile(target, r, fileMode(hdr))
		case tar.TypeSymlink:
			return true, writeSymlink(root, target, hdr.Linkname)
		default:
			return true, nil
		}
	})
}

// StripPath removes leading slashes and then strip leading segments from an
// entry name. It reports false when the name has too few segments.
func StripPath(name string, strip int) (string, bool) {
	name = strings.TrimLeft(name, "/")
	for range strip {
		i := strings.IndexByte(name, '/')
		if i < 0 {
			return "", false
		}
		name = name[i+1:]
	}
	return name, true
}

type visitFunc func(hdr *tar.Header, entry string, r io.Reader) (cont bool, err error)

// walk iterates over archive entries, calling fn with each stripped name.
func walk(data []byte, strip int, fn visitFunc) error {
	r, err := open(data)
	if err != nil {
		return err
	}
	defer r.Close()

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeDecode, err, "read archive")
		}

		entry, ok := StripPath(hdr.Name, strip)
		if !ok || entry == "" {
			continue
		}
		cont, err := fn(hdr, strings.TrimSuffix(entry, "/"), tr)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// open returns a reader over the tar stream, decompressing when the input
// carries the gzip magic bytes.
func open(data []byte) (io.ReadCloser, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "gunzip archive")
		}
		return zr, nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// within joins entry onto root and reports whether the result stays inside
// root.
func within(root, entry string) (string, bool) {
	target := filepath.Join(root, filepath.FromSlash(entry))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

// throughLink reports whether any directory between root and target is a
// symlink. Writing through one may land outside root even when the joined
// path does not.
func throughLink(root, target string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil {
		return true
	}
	if rel == "." {
		return false
	}
	dir := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		dir = filepath.Join(dir, part)
		info, err := os.Lstat(dir)
		if err != nil {
			// Missing directories are created as real ones.
			return false
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

// fileMode keeps the entry's permission bits but always grants the owner
// read and write access.
func fileMode(hdr *tar.Header) os.FileMode {
	return os.FileMode(hdr.Mode).Perm() | 0o600
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	// Replace a link left by an earlier entry instead of writing through it.
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeDecode, err, "extract %s", filepath.Base(target))
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}

// writeSymlink creates a link whose target must resolve inside root.
// Links pointing elsewhere are skipped.
func writeSymlink(root, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), resolved)
	}
	if rel, err := filepath.Rel(root, resolved); err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_ = os.Remove(target)
	return os.Symlink(linkname, target)
}
