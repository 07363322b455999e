package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
		{"warn at info level", log.InfoLevel, func(l *log.Logger) { l.Warn("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Installed 3 packages")

	out := buf.String()
	if !strings.Contains(out, "Installed 3 packages (") {
		t.Errorf("output = %q, want message with duration", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("loggerFromContext should return the default logger when none is set")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if got := loggerFromContext(ctx); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestRootCommandAttachesLogger(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	root := c.RootCommand()

	var got *log.Logger
	probe := c.versionCommand()
	probe.Use = "probe"
	probe.RunE = func(cmd *cobra.Command, args []string) error {
		got = loggerFromContext(cmd.Context())
		return nil
	}
	root.AddCommand(probe)
	root.SetArgs([]string{"probe"})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if got != c.Logger {
		t.Error("commands should see the CLI logger in their context")
	}
}
