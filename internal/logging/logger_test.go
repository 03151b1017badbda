package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recplan/internal/services"
)

func TestNewJSONWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("section dispatched", String(FieldRunID, "abc"), Int(FieldSection, 3))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
		t.Fatalf("decode log line %q: %v", data, err)
	}
	if payload["msg"] != "section dispatched" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
	if payload[FieldRunID] != "abc" {
		t.Fatalf("unexpected run id: %v", payload[FieldRunID])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPrettyHandlerHeader(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger = NewComponentLogger(logger, "segmenter")

	logger.Info("section closed",
		String(FieldRunID, "1f2e3d4c-aaaa-bbbb"),
		Int(FieldSection, 2),
		Int("tiles", 3),
	)

	out := buf.String()
	if !strings.Contains(out, "INFO [segmenter] Run 1f2e3d4c · Section #2 – section closed") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "    - tiles: 3") {
		t.Fatalf("expected tiles field, got %q", out)
	}
	if strings.Contains(out, "run_id:") {
		t.Fatalf("run id should be folded into header at info level: %q", out)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "WARN") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	WarnWithContext(logger, "unknown participant", "participant_unknown", String(FieldParticipantID, "p9"))

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[FieldEventType] != "participant_unknown" {
		t.Fatalf("unexpected event type: %v", payload[FieldEventType])
	}
	if payload[FieldImpact] != "operation skipped" {
		t.Fatalf("unexpected impact: %v", payload[FieldImpact])
	}
	if payload[FieldErrorHint] == nil {
		t.Fatal("expected error hint default")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithSection(ctx, 5)
	ctx = services.WithPhase(ctx, "render")

	fields := ContextFields(ctx)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if WithContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger fallback")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	old := filepath.Join(dir, "recplan-20260101.log")
	fresh := filepath.Join(dir, "recplan-20260309.log")
	keep := filepath.Join(dir, "recplan-20251201.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, keep, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := now.AddDate(0, 0, -30)
	for _, path := range []string{old, keep, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	if err := os.Chtimes(fresh, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed := CleanupOldLogs(NewNop(), 7, now, RetentionTarget{Dir: dir, Pattern: LogFilePattern, Exclude: []string{keep}})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{fresh, keep, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	if removed := CleanupOldLogs(nil, 0, time.Now(), RetentionTarget{Dir: t.TempDir()}); removed != 0 {
		t.Fatalf("expected no removals, got %d", removed)
	}
}

func TestLogFileName(t *testing.T) {
	name := LogFileName(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC))
	if name != "recplan-20261018.log" {
		t.Fatalf("unexpected name %q", name)
	}
	if ok, _ := filepath.Match(LogFilePattern, name); !ok {
		t.Fatalf("name %q does not match pattern", name)
	}
}
