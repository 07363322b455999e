package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/palace/pkg/archive/archivetest"
	"github.com/matzehuels/palace/pkg/errors"
)

func TestStripPath(t *testing.T) {
	tests := []struct {
		name  string
		strip int
		want  string
		ok    bool
	}{
		{"package/package.json", 1, "package.json", true},
		{"/package/lib/index.js", 1, "lib/index.js", true},
		{"///a/b/c", 2, "c", true},
		{"package.json", 0, "package.json", true},
		{"package.json", 1, "", false},
		{"package/", 1, "", true},
		{"a/b", 3, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StripPath(tt.name, tt.strip)
			if got != tt.want || ok != tt.ok {
				t.Errorf("StripPath(%q, %d) = %q, %v, want %q, %v", tt.name, tt.strip, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtractManifest(t *testing.T) {
	data := archivetest.Files("package/", map[string]string{
		"package.json":     `{"name":"left-pad"}`,
		"lib/package.json": `{"name":"nested"}`,
	})

	got, err := ExtractManifest(data, NpmStrip)
	if err != nil {
		t.Fatalf("ExtractManifest() error: %v", err)
	}
	if got != `{"name":"left-pad"}` {
		t.Errorf("ExtractManifest() = %q, want top-level manifest", got)
	}
}

func TestExtractManifestCustomContainer(t *testing.T) {
	// Some registries wrap content in a directory named after the package.
	data := archivetest.Files("node/", map[string]string{"package.json": `{"name":"node-thing"}`})

	got, err := ExtractManifest(data, NpmStrip)
	if err != nil {
		t.Fatalf("ExtractManifest() error: %v", err)
	}
	if got != `{"name":"node-thing"}` {
		t.Errorf("ExtractManifest() = %q", got)
	}
}

func TestExtractManifestPlainTar(t *testing.T) {
	data := archivetest.Build([]archivetest.Entry{
		{Name: "package/package.json", Body: `{"name":"plain"}`},
	}, false)

	got, err := ExtractManifest(data, NpmStrip)
	if err != nil {
		t.Fatalf("ExtractManifest() error: %v", err)
	}
	if got != `{"name":"plain"}` {
		t.Errorf("ExtractManifest() = %q", got)
	}
}

func TestExtractManifestNotFound(t *testing.T) {
	data := archivetest.Files("package/", map[string]string{"index.js": "module.exports = 1"})

	_, err := ExtractManifest(data, NpmStrip)
	if !errors.Is(err, errors.ErrCodeManifestNotFound) {
		t.Errorf("ExtractManifest() error = %v, want MANIFEST_NOT_FOUND", err)
	}

	// Without stripping, the manifest sits one level too deep.
	data = archivetest.Files("package/", map[string]string{"package.json": "{}"})
	if _, err := ExtractManifest(data, 0); !errors.Is(err, errors.ErrCodeManifestNotFound) {
		t.Errorf("ExtractManifest(strip 0) error = %v, want MANIFEST_NOT_FOUND", err)
	}
}

func TestExtractManifestCorrupt(t *testing.T) {
	valid := archivetest.Files("package/", map[string]string{"package.json": "{}"})

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated gzip", valid[:12]},
		{"gzip magic only", []byte{0x1f, 0x8b}},
		{"garbage", []byte("this is not a tarball at all, not even close to one.............................................................................................................................................................................................................................................................................................................................................................................................................................................................................................")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractManifest(tt.data, NpmStrip)
			if !errors.Is(err, errors.ErrCodeDecode) {
				t.Errorf("ExtractManifest() error = %v, want DECODE_ERROR", err)
			}
		})
	}
}

func TestExtractTo(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "left-pad")
	data := archivetest.Build([]archivetest.Entry{
		{Name: "package/"},
		{Name: "package/package.json", Body: `{"name":"left-pad"}`},
		{Name: "package/bin/cli.js", Body: "#!/usr/bin/env node\n", Mode: 0o755},
		{Name: "package/lib/index.js", Body: "module.exports = pad"},
		{Name: "package/lib/alias.js", Link: "index.js"},
	}, true)

	if err := ExtractTo(data, dest, NpmStrip); err != nil {
		t.Fatalf("ExtractTo() error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "lib", "index.js"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "module.exports = pad" {
		t.Errorf("lib/index.js = %q", got)
	}

	info, err := os.Stat(filepath.Join(dest, "bin", "cli.js"))
	if err != nil {
		t.Fatalf("stat cli.js: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("cli.js mode = %v, want executable", info.Mode())
	}

	link, err := os.Readlink(filepath.Join(dest, "lib", "alias.js"))
	if err != nil {
		t.Fatalf("readlink alias.js: %v", err)
	}
	if link != "index.js" {
		t.Errorf("alias.js -> %q, want %q", link, "index.js")
	}
}

func TestExtractToRejectsEscapes(t *testing.T) {
	base := t.TempDir()
	dest := filepath.Join(base, "pkg")
	data := archivetest.Build([]archivetest.Entry{
		{Name: "package/../../evil.txt", Body: "pwned"},
		{Name: "package/ok.txt", Body: "fine"},
		{Name: "package/escape", Link: "../../outside"},
		{Name: "package/here", Link: "."},
		{Name: "package/here/up", Link: ".."},
		{Name: "package/here/up/chained.txt", Body: "pwned"},
		{Name: "package/alias", Link: "ok.txt"},
		{Name: "package/alias", Body: "replaced"},
	}, true)

	if err := ExtractTo(data, dest, NpmStrip); err != nil {
		t.Fatalf("ExtractTo() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "evil.txt")); !os.IsNotExist(err) {
		t.Error("entry escaping dest was written")
	}
	if _, err := os.Lstat(filepath.Join(dest, "escape")); !os.IsNotExist(err) {
		t.Error("symlink escaping dest was created")
	}
	if _, err := os.Stat(filepath.Join(base, "chained.txt")); !os.IsNotExist(err) {
		t.Error("entry written through chained symlinks escaped dest")
	}
	if info, err := os.Lstat(filepath.Join(dest, "alias")); err != nil || info.Mode()&os.ModeSymlink != 0 {
		t.Errorf("alias should be a regular file replacing the link: %v", err)
	}
	if got, err := os.ReadFile(filepath.Join(dest, "ok.txt")); err != nil || string(got) != "fine" {
		t.Errorf("ok.txt = %q, %v, want %q", got, err, "fine")
	}
}

func TestExtractToOverwrites(t *testing.T) {
	dest := t.TempDir()
	first := archivetest.Files("package/", map[string]string{"a.txt": "one"})
	second := archivetest.Files("package/", map[string]string{"a.txt": "two"})

	if err := ExtractTo(first, dest, NpmStrip); err != nil {
		t.Fatal(err)
	}
	if err := ExtractTo(second, dest, NpmStrip); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(filepath.Join(dest, "a.txt"))
	if string(got) != "two" {
		t.Errorf("a.txt = %q, want %q", got, "two")
	}
}
