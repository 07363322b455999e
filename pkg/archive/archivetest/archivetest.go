// Package archivetest builds in-memory package tarballs for tests.
package archivetest

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"slices"

	"github.com/klauspost/compress/gzip"
)

// Entry is one tar entry. An empty Link with a trailing "/" in Name makes a
// directory; a non-empty Link makes a symlink.
type Entry struct {
	Name string
	Body string
	Mode int64
	Link string
}

// Build encodes entries as a tar stream, gzip-compressed when compress is
// true.
func Build(entries []Entry, compress bool) []byte {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: e.Mode}
		switch {
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
		case len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/':
			hdr.Typeflag = tar.TypeDir
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
			if hdr.Typeflag == tar.TypeDir {
				hdr.Mode = 0o755
			}
		}
		must(tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			must(err)
		}
	}
	must(tw.Close())

	if !compress {
		return buf.Bytes()
	}
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	_, err := zw.Write(buf.Bytes())
	must(err)
	must(zw.Close())
	return out.Bytes()
}

// Files builds a gzip tarball with every file placed under prefix
// (for example "package/"), in name order.
func Files(prefix string, files map[string]string) []byte {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: prefix + name, Body: files[name]})
	}
	return Build(entries, true)
}

// Package builds a registry-style tarball whose package.json declares the
// given identity, dependencies, bins and scripts. extra adds more files.
func Package(m Manifest, extra map[string]string) []byte {
	data, err := json.Marshal(m)
	must(err)
	files := map[string]string{"package.json": string(data)}
	for k, v := range extra {
		files[k] = v
	}
	return Files("package/", files)
}

// Manifest is the package.json written by [Package].
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Bin          any               `json:"bin,omitempty"`
	Scripts      map[string]string `json:"scripts,omitempty"`
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
