package link

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

// ScriptEnv is the explicit execution context of one lifecycle script.
type ScriptEnv struct {
	Dir    string    // Working directory
	Env    []string  // Complete environment, KEY=VALUE
	Stdout io.Writer // Receives standard output (optional)
	Stderr io.Writer // Receives standard error (optional)
}

// ScriptRunner executes a lifecycle script.
type ScriptRunner interface {
	Run(ctx context.Context, script string, env ScriptEnv) error
}

// ShellRunner runs scripts through a shell with "-c" (or "/C" for cmd).
type ShellRunner struct {
	Shell string // Shell executable (default: sh)
}

// Run executes script and waits for it. The process is killed when ctx is
// canceled.
func (r *ShellRunner) Run(ctx context.Context, script string, env ScriptEnv) error {
	shell := r.Shell
	if shell == "" {
		shell = defaultShell()
	}
	flag := "-c"
	if shell == "cmd" || strings.HasSuffix(strings.ToLower(shell), "cmd.exe") {
		flag = "/C"
	}

	cmd := exec.CommandContext(ctx, shell, flag, script) //nolint:gosec // package scripts are executed by design
	cmd.Dir = env.Dir
	cmd.Env = env.Env
	cmd.Stdout = env.Stdout
	cmd.Stderr = env.Stderr
	return cmd.Run()
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// resolveEnvironment overlays extra onto base. PATH entries in extra are
// prepended to the base PATH instead of replacing it. The result is sorted.
func resolveEnvironment(base, extra []string) []string {
	env := make(map[string]string, len(base)+len(extra))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			env[k] = v
		}
	}
	for _, entry := range extra {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" {
			if sys := env["PATH"]; sys != "" {
				v += string(os.PathListSeparator) + sys
			}
		}
		env[k] = v
	}

	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lineWriter forwards complete lines to a logger at a fixed level.
type lineWriter struct {
	mu     sync.Mutex
	logger *log.Logger
	level  log.Level
	buf    bytes.Buffer
}

func newLineWriter(logger *log.Logger, level log.Level) *lineWriter {
	return &lineWriter{logger: logger, level: level}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	if line == "" {
		return
	}
	w.logger.Log(w.level, line)
}
