package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/palace/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// =============================================================================
// Messages
// =============================================================================

type (
	tickMsg    time.Time
	stageMsg   observability.Stage
	packageMsg string
	doneMsg    struct{}
)

func tick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// progressModel - Live install status line
// =============================================================================

// progressModel renders a single status line for a running install:
// the active stage, running counters, and the last package touched.
type progressModel struct {
	stats   *observability.Stats
	cancel  context.CancelFunc
	stage   observability.Stage
	current string
	frame   int
	done    bool
}

func newProgressModel(stats *observability.Stats, cancel context.CancelFunc) progressModel {
	return progressModel{stats: stats, cancel: cancel, stage: observability.StageResolve}
}

func (m progressModel) Init() tea.Cmd {
	return tick()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	case stageMsg:
		m.stage = observability.Stage(msg)
		m.current = ""
	case packageMsg:
		m.current = string(msg)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	s := m.stats.Snapshot()

	var b strings.Builder
	b.WriteString(styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]))
	b.WriteString(" ")
	b.WriteString(StyleTitle.Render(string(m.stage)))

	counters := []string{fmt.Sprintf("%d resolved", s.Resolved)}
	if s.Fetched > 0 {
		counters = append(counters, fmt.Sprintf("%d fetched", s.Fetched))
	}
	if s.Linked > 0 {
		counters = append(counters, fmt.Sprintf("%d linked", s.Linked))
	}
	if s.Scripts > 0 {
		counters = append(counters, fmt.Sprintf("%d scripts", s.Scripts))
	}
	b.WriteString(" ")
	b.WriteString(StyleDim.Render(strings.Join(counters, " · ")))

	if m.current != "" {
		b.WriteString(" ")
		b.WriteString(StyleHighlight.Render(m.current))
	}
	return b.String()
}

// =============================================================================
// Hooks
// =============================================================================

// progressHooks forwards pipeline and install events to a running program.
type progressHooks struct {
	observability.NoopInstallHooks
	send func(tea.Msg)
}

func (h progressHooks) OnStageStart(_ context.Context, stage observability.Stage) {
	h.send(stageMsg(stage))
}

func (h progressHooks) OnStageComplete(context.Context, observability.Stage, time.Duration, error) {}

func (h progressHooks) OnResolve(_ context.Context, name, version string) {
	h.send(packageMsg(name + "@" + version))
}

func (h progressHooks) OnLink(_ context.Context, name, _ string) {
	h.send(packageMsg(name))
}

// =============================================================================
// Runners
// =============================================================================

// trackInstall runs fn with stats registered as the install hooks.
func trackInstall(ctx context.Context, stats *observability.Stats, fn func(context.Context) error) error {
	observability.SetInstallHooks(stats)
	observability.SetHTTPHooks(stats)
	defer observability.Reset()
	return fn(ctx)
}

// trackInstallLive runs fn while a progress line on w reflects its events.
// Pressing ctrl+c cancels the context handed to fn.
func trackInstallLive(ctx context.Context, w io.Writer, stats *observability.Stats, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(stats, cancel), tea.WithOutput(w))
	hooks := progressHooks{send: p.Send}
	observability.SetPipelineHooks(hooks)
	observability.SetInstallHooks(observability.MultiInstall{stats, hooks})
	observability.SetHTTPHooks(stats)
	defer observability.Reset()

	errc := make(chan error, 1)
	go func() {
		errc <- fn(ctx)
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}
