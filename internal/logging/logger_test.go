package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func newBufferedLogger(level string) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return slog.New(newLineHandler(&buf, levelVar)), &buf
}

var linePattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `)

func TestLineHandlerFormat(t *testing.T) {
	logger, buf := newBufferedLogger("info")

	logger.Info("archive created",
		String(FieldArchive, "/b/proj-2024-11-03-1430.tar.gz"),
		Int64("size_bytes", 2048))

	line := buf.String()
	if !linePattern.MatchString(line) {
		t.Fatalf("line missing bracketed timestamp: %q", line)
	}
	if !strings.Contains(line, "INFO: archive created") {
		t.Fatalf("line missing level and message: %q", line)
	}
	if !strings.Contains(line, "archive=/b/proj-2024-11-03-1430.tar.gz") {
		t.Fatalf("line missing archive attr: %q", line)
	}
	if !strings.Contains(line, "size_bytes=2048") {
		t.Fatalf("line missing int attr: %q", line)
	}
}

func TestLineHandlerComponentPrefix(t *testing.T) {
	logger, buf := newBufferedLogger("info")

	NewComponentLogger(logger, "retention").Info("archive rotated out")

	line := buf.String()
	if !strings.Contains(line, "INFO: retention: archive rotated out") {
		t.Fatalf("component not rendered as prefix: %q", line)
	}
	if strings.Contains(line, FieldComponent+"=") {
		t.Fatalf("component leaked as a key=value attr: %q", line)
	}
}

func TestLineHandlerQuotesAwkwardValues(t *testing.T) {
	logger, buf := newBufferedLogger("info")

	logger.Warn("lock conflict", Error(errors.New("held by pid 42")))

	if !strings.Contains(buf.String(), `error="held by pid 42"`) {
		t.Fatalf("value with spaces not quoted: %q", buf.String())
	}
}

func TestLineHandlerLevelFilter(t *testing.T) {
	logger, buf := newBufferedLogger("warn")

	logger.Info("not shown")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "not shown") {
		t.Fatalf("info record passed a warn-level handler: %q", out)
	}
	if !strings.Contains(out, "WARN: shown") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tarkeep.log")
	logger, err := New(Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "INFO: hello") {
		t.Fatalf("log file content = %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "logfmt"}); err == nil {
		t.Fatal("unknown format accepted")
	}
}

func TestJSONHandlerEmitsLowercaseLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newJSONHandler(&buf, levelVar))

	logger.Error("boom")

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"msg":"boom"`) {
		t.Fatalf("unexpected json record: %q", out)
	}
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger must report disabled")
	}
	logger.Error("goes nowhere")
}
