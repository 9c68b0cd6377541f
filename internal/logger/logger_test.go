package logger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jonesrussell/jobsweep/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	l := logger.NewFromZap(zap.NewNop())
	ctx := logger.WithContext(context.Background(), l)

	if got := logger.FromContext(ctx); got != l {
		t.Errorf("FromContext returned %v, want %v", got, l)
	}
}

func TestFromContext_NoLogger_ReturnsFallback(t *testing.T) {
	t.Parallel()

	got := logger.FromContext(context.Background())
	if got == nil {
		t.Fatal("FromContext on empty context returned nil, want fallback logger")
	}
	got.Warn("fallback usable", logger.String("key", "value"))
}

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		level  string
		format string
	}{
		{name: "default", level: "", format: ""},
		{name: "debug console", level: "debug", format: "console"},
		{name: "warning alias", level: "warning", format: "json"},
		{name: "unknown level", level: "verbose", format: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, err := logger.New(logger.Config{Level: tt.level, Format: tt.format, OutputPaths: []string{"stderr"}})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			l.Debug("debug", logger.Int("n", 1))
		})
	}
}

func TestWith_AttachesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	l := logger.NewFromZap(zap.New(core)).With(logger.String("component", "test"))

	l.Info("hello", logger.Error(errors.New("boom")))

	entries := logs.FilterMessage("hello").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["component"] != "test" {
		t.Errorf("component = %v, want test", ctx["component"])
	}
	if ctx["error"] != "boom" {
		t.Errorf("error = %v, want boom", ctx["error"])
	}
}

func TestNoOpLogger(t *testing.T) {
	t.Parallel()

	l := logger.NewNop()
	l.Info("ignored")
	if l.With(logger.Bool("x", true)) != l {
		t.Error("With on no-op logger should return itself")
	}
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() = %v, want nil", err)
	}
}
