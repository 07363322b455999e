package observability

import (
	"context"
	"sync"
	"time"
)

// Stats tallies install and registry HTTP events. It is safe for
// concurrent use.
type Stats struct {
	mu            sync.Mutex
	Resolved      int
	Fetched       int
	FetchBytes    int64
	Linked        int
	Bins          int
	Scripts       int
	Failures      int
	Requests      int
	RequestErrors int
	FetchTime     time.Duration
	ScriptTime    time.Duration
	RequestTime   time.Duration
}

var (
	_ InstallHooks = (*Stats)(nil)
	_ HTTPHooks    = (*Stats)(nil)
)

func (s *Stats) OnResolve(context.Context, string, string) {
	s.mu.Lock()
	s.Resolved++
	s.mu.Unlock()
}

func (s *Stats) OnFetch(_ context.Context, _, _ string, size int, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.Failures++
		return
	}
	s.Fetched++
	s.FetchBytes += int64(size)
	s.FetchTime += d
}

func (s *Stats) OnLink(context.Context, string, string) {
	s.mu.Lock()
	s.Linked++
	s.mu.Unlock()
}

func (s *Stats) OnBin(context.Context, string, string) {
	s.mu.Lock()
	s.Bins++
	s.mu.Unlock()
}

func (s *Stats) OnScript(_ context.Context, _, _ string, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.Failures++
	}
	s.Scripts++
	s.ScriptTime += d
}

func (s *Stats) OnRequest(context.Context, string, string, string) {
	s.mu.Lock()
	s.Requests++
	s.mu.Unlock()
}

func (s *Stats) OnResponse(_ context.Context, _, _, _ string, status int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status >= 400 {
		s.RequestErrors++
	}
	s.RequestTime += d
}

func (s *Stats) OnError(context.Context, string, string, string, error) {
	s.mu.Lock()
	s.RequestErrors++
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters that is safe to read while events
// are still arriving.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Resolved:      s.Resolved,
		Fetched:       s.Fetched,
		FetchBytes:    s.FetchBytes,
		Linked:        s.Linked,
		Bins:          s.Bins,
		Scripts:       s.Scripts,
		Failures:      s.Failures,
		Requests:      s.Requests,
		RequestErrors: s.RequestErrors,
		FetchTime:     s.FetchTime,
		ScriptTime:    s.ScriptTime,
		RequestTime:   s.RequestTime,
	}
}

// MultiInstall fans events out to several InstallHooks in order.
type MultiInstall []InstallHooks

var _ InstallHooks = MultiInstall(nil)

func (m MultiInstall) OnResolve(ctx context.Context, name, version string) {
	for _, h := range m {
		h.OnResolve(ctx, name, version)
	}
}

func (m MultiInstall) OnFetch(ctx context.Context, name, location string, size int, d time.Duration, err error) {
	for _, h := range m {
		h.OnFetch(ctx, name, location, size, d, err)
	}
}

func (m MultiInstall) OnLink(ctx context.Context, name, dir string) {
	for _, h := range m {
		h.OnLink(ctx, name, dir)
	}
}

func (m MultiInstall) OnBin(ctx context.Context, name, bin string) {
	for _, h := range m {
		h.OnBin(ctx, name, bin)
	}
}

func (m MultiInstall) OnScript(ctx context.Context, name, script string, d time.Duration, err error) {
	for _, h := range m {
		h.OnScript(ctx, name, script, d, err)
	}
}
