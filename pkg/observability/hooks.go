// Package observability provides hooks for progress reporting, metrics, and
// logging of install runs.
//
// Libraries call the registered hooks at well-defined points (a stage
// starting, a package being pinned, an archive fetched, a script finishing).
// The default hooks do nothing, so the core packages stay free of any
// particular progress UI or metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetInstallHooks(&progressHooks{})
//	    // ... run install
//	}
//
// Libraries emit events:
//
//	observability.Install().OnResolve(ctx, name, version)
//	observability.Pipeline().OnStageComplete(ctx, observability.StageLink, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names the phases of an install run.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageOptimize Stage = "optimize"
	StageLink     Stage = "link"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events about the resolve → optimize → link stages.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage Stage)
	OnStageComplete(ctx context.Context, stage Stage, duration time.Duration, err error)
}

// =============================================================================
// Install Hooks
// =============================================================================

// InstallHooks receives per-package events. Implementations must be safe
// for concurrent use: events arrive from every resolution and link branch.
type InstallHooks interface {
	// OnResolve records a dependency pinned to version.
	OnResolve(ctx context.Context, name, version string)

	// OnFetch records an archive download or read.
	OnFetch(ctx context.Context, name, location string, size int, duration time.Duration, err error)

	// OnLink records a package extracted into dir.
	OnLink(ctx context.Context, name, dir string)

	// OnBin records an executable symlink created for a package.
	OnBin(ctx context.Context, name, bin string)

	// OnScript records a lifecycle script run.
	OnScript(ctx context.Context, name, script string, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from registry HTTP requests.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, Stage)                          {}
func (NoopPipelineHooks) OnStageComplete(context.Context, Stage, time.Duration, error) {}

// NoopInstallHooks is a no-op implementation of InstallHooks.
type NoopInstallHooks struct{}

func (NoopInstallHooks) OnResolve(context.Context, string, string)                          {}
func (NoopInstallHooks) OnFetch(context.Context, string, string, int, time.Duration, error) {}
func (NoopInstallHooks) OnLink(context.Context, string, string)                             {}
func (NoopInstallHooks) OnBin(context.Context, string, string)                              {}
func (NoopInstallHooks) OnScript(context.Context, string, string, time.Duration, error)     {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	installHooks  InstallHooks  = NoopInstallHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any install runs.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetInstallHooks registers custom install hooks.
func SetInstallHooks(h InstallHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		installHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Install returns the registered install hooks.
func Install() InstallHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return installHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	installHooks = NoopInstallHooks{}
	httpHooks = NoopHTTPHooks{}
}
