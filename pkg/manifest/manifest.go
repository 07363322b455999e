// Package manifest reads package.json manifests.
//
// Only the fields the installer acts on are decoded: the package identity,
// its runtime "dependencies", the "bin" executable map, and lifecycle
// "scripts". devDependencies and peerDependencies are ignored.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/matzehuels/palace/pkg/errors"
)

// FileName is the manifest file name inside a package.
const FileName = "package.json"

// Lifecycle scripts run after a package is linked, in this order.
var LifecycleScripts = []string{"preinstall", "install", "postinstall"}

// Manifest is the decoded subset of a package.json file.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
	Bin          Bin               `json:"bin"`
	Scripts      map[string]string `json:"scripts"`
}

// Dependency is a declared name → specifier pair.
type Dependency struct {
	Name string
	Spec string
}

// Bin holds the "bin" field, which package.json allows to be either a single
// script path or a map of executable names to script paths.
type Bin struct {
	Path    string
	Entries map[string]string
}

// UnmarshalJSON accepts both the string and the object form.
func (b *Bin) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*b = Bin{Path: single}
		return nil
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*b = Bin{Entries: entries}
	return nil
}

// MarshalJSON writes the form the value was decoded from.
func (b Bin) MarshalJSON() ([]byte, error) {
	if b.Path != "" {
		return json.Marshal(b.Path)
	}
	return json.Marshal(b.Entries)
}

// Parse decodes manifest text. Invalid JSON fails with INVALID_MANIFEST.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", FileName)
	}
	return &m, nil
}

// Load reads and parses the manifest at path. A missing file fails with
// INVALID_MANIFEST.
func Load(file string) (*Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", file)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	return m, nil
}

// Deps returns the declared runtime dependencies sorted by name.
func (m *Manifest) Deps() []Dependency {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)

	deps := make([]Dependency, len(names))
	for i, name := range names {
		deps[i] = Dependency{Name: name, Spec: m.Dependencies[name]}
	}
	return deps
}

// Executables returns the declared executables as name → relative script
// path. A single-string "bin" is named after the package, without its scope.
func (m *Manifest) Executables() map[string]string {
	if m.Bin.Path != "" {
		if m.Name == "" {
			return nil
		}
		return map[string]string{BaseName(m.Name): m.Bin.Path}
	}
	if len(m.Bin.Entries) == 0 {
		return nil
	}
	bins := make(map[string]string, len(m.Bin.Entries))
	for name, script := range m.Bin.Entries {
		bins[BaseName(name)] = script
	}
	return bins
}

// Script returns the command for a lifecycle script, or "" when absent.
func (m *Manifest) Script(name string) string {
	return strings.TrimSpace(m.Scripts[name])
}

// HasLifecycleScripts reports whether any of the install lifecycle scripts
// is declared.
func (m *Manifest) HasLifecycleScripts() bool {
	for _, s := range LifecycleScripts {
		if m.Script(s) != "" {
			return true
		}
	}
	return false
}

// BaseName strips the "@scope/" prefix from a scoped package name.
func BaseName(name string) string {
	if strings.HasPrefix(name, "@") {
		return path.Base(name)
	}
	return name
}
