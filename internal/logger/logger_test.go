package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// resetLogger resets the logger to default state for test isolation
func resetLogger() {
	_ = Init(Options{})
}

func initBuffer(t *testing.T, opts Options) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	opts.Output = buf
	if err := Init(opts); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(resetLogger)
	return buf
}

// --- Init Tests ---

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
		wantError bool
	}{
		{"default info", Options{}, false, true, true},
		{"debug", Options{Debug: true}, true, true, true},
		{"quiet", Options{Quiet: true}, false, false, true},
		{"quiet overrides debug", Options{Debug: true, Quiet: true}, false, false, true},
		{"explicit level overrides flags", Options{Quiet: true, Level: "debug"}, true, true, true},
		{"explicit warn", Options{Level: "warn"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := initBuffer(t, tt.opts)

			Debug("debug message")
			Info("info message")
			Error("error message")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info message"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out, "error message"); got != tt.wantError {
				t.Errorf("error logged = %v, want %v", got, tt.wantError)
			}
		})
	}
}

func TestInit_InvalidLevel(t *testing.T) {
	defer resetLogger()
	if err := Init(Options{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := initBuffer(t, Options{JSON: true})

	Info("test message")

	output := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("JSON format should produce JSON output, got %q", output)
	}
	if !strings.Contains(output, `"msg":"test message"`) {
		t.Errorf("JSON output should contain the message, got %q", output)
	}
}

func TestInit_TextFormat(t *testing.T) {
	buf := initBuffer(t, Options{})

	Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Text output should contain the message")
	}
	if !strings.Contains(output, "level=INFO") {
		t.Errorf("Text output should contain level INFO, got %q", output)
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	custom := slog.New(slog.NewTextHandler(buf, nil))
	defer resetLogger()

	if err := Init(Options{Logger: custom}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Logger() != custom {
		t.Error("expected custom logger to be installed")
	}
}

// --- ParseLevel Tests ---

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// --- With / Component Tests ---

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := initBuffer(t, Options{})

	With("key", "value").Info("test with attrs")

	output := buf.String()
	if !strings.Contains(output, "test with attrs") {
		t.Error("expected message in output")
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("expected attributes in output, got %q", output)
	}
}

func TestComponent_TagsOutput(t *testing.T) {
	buf := initBuffer(t, Options{})

	Component("crawler").Info("page emitted", "url", "https://example.org/")

	output := buf.String()
	if !strings.Contains(output, "component=crawler") {
		t.Errorf("expected component attribute, got %q", output)
	}
	if !strings.Contains(output, "url=https://example.org/") {
		t.Errorf("expected url attribute, got %q", output)
	}
}

// --- Context Tests ---

func TestContextVariants(t *testing.T) {
	buf := initBuffer(t, Options{Debug: true})
	ctx := context.Background()

	DebugContext(ctx, "debug with context")
	InfoContext(ctx, "info with context")
	WarnContext(ctx, "warn with context")
	ErrorContext(ctx, "error with context")

	output := buf.String()
	for _, msg := range []string{"debug with context", "info with context", "warn with context", "error with context"} {
		if !strings.Contains(output, msg) {
			t.Errorf("expected %q in output", msg)
		}
	}
}
