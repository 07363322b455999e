// Package config loads workspace settings from palace.toml.
//
// Every field is optional; missing fields fall back to [Default]. Command
// line flags override file values after loading.
//
//	registry = "https://registry.npmjs.org"
//	manifest = "package.json"
//	concurrency = 16
//	script_concurrency = 4
//	timeout = "30s"
//	retries = 0
//	max_depth = 256
//	shell = "sh"
//	ignore_scripts = false
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/palace/pkg/deps"
	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/link"
	"github.com/matzehuels/palace/pkg/manifest"
	"github.com/matzehuels/palace/pkg/registry"
)

// FileName is the configuration file looked up in the workspace.
const FileName = "palace.toml"

// Config holds workspace settings.
type Config struct {
	Registry          string   `toml:"registry"`
	Manifest          string   `toml:"manifest"`
	Concurrency       int      `toml:"concurrency"`
	ScriptConcurrency int      `toml:"script_concurrency"`
	Timeout           Duration `toml:"timeout"`
	Retries           int      `toml:"retries"`
	MaxDepth          int      `toml:"max_depth"`
	Shell             string   `toml:"shell"`
	IgnoreScripts     bool     `toml:"ignore_scripts"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Registry:          registry.DefaultURL,
		Manifest:          manifest.FileName,
		Concurrency:       registry.DefaultConcurrency,
		ScriptConcurrency: link.DefaultScriptConcurrency,
		Timeout:           Duration{registry.DefaultTimeout},
		MaxDepth:          deps.DefaultMaxDepth,
	}
}

// Load reads dir/palace.toml over the defaults. A missing file is not an
// error.
func Load(dir string) (Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads the given file over the defaults. A missing file is not
// an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.Registry)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "registry must be an http(s) URL, got %q", c.Registry)
	}
	switch {
	case c.Concurrency < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "concurrency must be at least 1, got %d", c.Concurrency)
	case c.ScriptConcurrency < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "script_concurrency must be at least 1, got %d", c.ScriptConcurrency)
	case c.Retries < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "retries cannot be negative, got %d", c.Retries)
	case c.MaxDepth < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max_depth must be at least 1, got %d", c.MaxDepth)
	case c.Timeout.Duration <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must be positive, got %s", c.Timeout)
	case c.Manifest == "":
		return errors.New(errors.ErrCodeInvalidConfig, "manifest cannot be empty")
	}
	return nil
}

// ManifestPath returns the root manifest location for a workspace.
// Relative manifest settings are resolved against dir.
func (c Config) ManifestPath(dir string) string {
	m := c.Manifest
	if m == "" {
		m = manifest.FileName
	}
	if filepath.IsAbs(m) {
		return m
	}
	return filepath.Join(dir, m)
}
