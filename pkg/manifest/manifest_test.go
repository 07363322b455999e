package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/palace/pkg/errors"
)

func TestParse(t *testing.T) {
	data := []byte(`{
		"name": "left-pad",
		"version": "1.3.0",
		"dependencies": {"b": "^1.0.0", "a": "./vendor/a.tgz"},
		"bin": {"lp": "./cli.js"},
		"scripts": {"install": "node build.js", "test": "tap"}
	}`)

	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Name != "left-pad" || m.Version != "1.3.0" {
		t.Errorf("identity = %s@%s, want left-pad@1.3.0", m.Name, m.Version)
	}

	deps := m.Deps()
	if len(deps) != 2 {
		t.Fatalf("len(Deps()) = %d, want 2", len(deps))
	}
	if deps[0].Name != "a" || deps[0].Spec != "./vendor/a.tgz" {
		t.Errorf("Deps()[0] = %+v, want a ./vendor/a.tgz", deps[0])
	}
	if deps[1].Name != "b" || deps[1].Spec != "^1.0.0" {
		t.Errorf("Deps()[1] = %+v, want b ^1.0.0", deps[1])
	}

	if got := m.Executables()["lp"]; got != "./cli.js" {
		t.Errorf("Executables()[lp] = %q, want %q", got, "./cli.js")
	}
	if got := m.Script("install"); got != "node build.js" {
		t.Errorf("Script(install) = %q, want %q", got, "node build.js")
	}
	if got := m.Script("preinstall"); got != "" {
		t.Errorf("Script(preinstall) = %q, want empty", got)
	}
	if !m.HasLifecycleScripts() {
		t.Error("HasLifecycleScripts() = false, want true")
	}
}

func TestExecutablesStringForm(t *testing.T) {
	tests := []struct {
		name string
		json string
		want map[string]string
	}{
		{
			name: "string bin named after package",
			json: `{"name": "mkdirp", "bin": "bin/cmd.js"}`,
			want: map[string]string{"mkdirp": "bin/cmd.js"},
		},
		{
			name: "scoped package drops scope",
			json: `{"name": "@acme/tool", "bin": "cli.js"}`,
			want: map[string]string{"tool": "cli.js"},
		},
		{
			name: "no bin",
			json: `{"name": "left-pad"}`,
			want: nil,
		},
		{
			name: "string bin without name",
			json: `{"bin": "cli.js"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.json))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			got := m.Executables()
			if len(got) != len(tt.want) {
				t.Fatalf("Executables() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Executables()[%s] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{`{`, `[]`, `{"bin": 42}`, ``} {
		if _, err := Parse([]byte(input)); !errors.Is(err, errors.ErrCodeInvalidManifest) {
			t.Errorf("Parse(%q) error = %v, want INVALID_MANIFEST", input, err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, FileName)
	if err := os.WriteFile(file, []byte(`{"name":"app","dependencies":{"x":"1.0.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(file)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Name != "app" || len(m.Deps()) != 1 {
		t.Errorf("Load() = %+v, want app with one dependency", m)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("Load(missing) error = %v, want INVALID_MANIFEST", err)
	}
}
