package logbuf

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestTailRetainsAll(t *testing.T) {
	buf := New(5)
	now := time.Now()

	for i := 0; i < 3; i++ {
		buf.add(Entry{Time: now, Level: "INFO", Message: "msg"})
	}

	if got := len(buf.Tail(slog.LevelDebug, 0)); got != 3 {
		t.Fatalf("expected 3 entries, got %d", got)
	}
	if buf.Len() != 3 {
		t.Fatalf("Len = %d", buf.Len())
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	buf := New(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		buf.add(Entry{Time: now, Level: "INFO", Message: "msg", Attrs: map[string]any{"i": i}})
	}

	entries := buf.Tail(slog.LevelDebug, 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after wrap, got %d", len(entries))
	}
	if entries[0].Attrs["i"] != 2 || entries[2].Attrs["i"] != 4 {
		t.Fatalf("wrong window: %v .. %v", entries[0].Attrs["i"], entries[2].Attrs["i"])
	}
}

func TestTailLevelFilter(t *testing.T) {
	buf := New(10)
	now := time.Now()

	buf.add(Entry{Time: now, Level: "DEBUG", Message: "debug"})
	buf.add(Entry{Time: now, Level: "INFO", Message: "info"})
	buf.add(Entry{Time: now, Level: "WARN", Message: "warn"})
	buf.add(Entry{Time: now, Level: "ERROR", Message: "error"})

	entries := buf.Tail(slog.LevelWarn, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at WARN+, got %d", len(entries))
	}
	if entries[0].Message != "warn" || entries[1].Message != "error" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestTailLimitKeepsNewest(t *testing.T) {
	buf := New(10)
	now := time.Now()

	for i := 0; i < 8; i++ {
		buf.add(Entry{Time: now, Level: "INFO", Message: "msg", Attrs: map[string]any{"i": i}})
	}

	entries := buf.Tail(slog.LevelDebug, 3)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries with limit, got %d", len(entries))
	}
	if entries[0].Attrs["i"] != 5 {
		t.Fatalf("limit did not keep newest: %v", entries[0].Attrs["i"])
	}
}

func TestHandlerCaptures(t *testing.T) {
	buf := New(10)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), buf))

	logger.Info("hello", "key", "value")
	logger.Warn("warning")

	entries := buf.Tail(slog.LevelDebug, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "hello" || entries[0].Attrs["key"] != "value" {
		t.Fatalf("entry = %+v", entries[0])
	}
	if entries[1].Level != "WARN" {
		t.Fatalf("level = %q", entries[1].Level)
	}
}

func TestHandlerBoundAttrsAndGroups(t *testing.T) {
	buf := New(10)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), buf))

	logger.With("component", "api").WithGroup("req").Info("msg", "path", "/api/query")

	entries := buf.Tail(slog.LevelDebug, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Attrs["component"] != "api" {
		t.Fatalf("attrs = %v", entries[0].Attrs)
	}
	if entries[0].Attrs["req.path"] != "/api/query" {
		t.Fatalf("attrs = %v", entries[0].Attrs)
	}
}

func TestHandlerCapturesBelowInnerLevel(t *testing.T) {
	buf := New(10)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewHandler(inner, buf)
	logger := slog.New(h)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("handler must accept all levels")
	}

	logger.Debug("debug msg")
	logger.Info("info msg")
	logger.Warn("warn msg")

	if got := len(buf.Tail(slog.LevelDebug, 0)); got != 3 {
		t.Fatalf("expected 3 buffered entries, got %d", got)
	}
}

func TestHandlerErrorAttr(t *testing.T) {
	buf := New(4)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), buf))

	logger.Error("failed", "error", io.ErrUnexpectedEOF)

	entries := buf.Tail(slog.LevelError, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Attrs["error"] != io.ErrUnexpectedEOF.Error() {
		t.Fatalf("error attr = %v", entries[0].Attrs["error"])
	}
}
