package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plexbanner/internal/config"
	"plexbanner/internal/logging"
	"plexbanner/internal/services"
)

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("run started", logging.String(logging.FieldRunID, "abc"))

	matches, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "plexbanner-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one run log, got %v", matches)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("run log is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "run started" || record[logging.FieldRunID] != "abc" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewFromConfigPrunesOldRunLogs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.RetentionDays = 1

	old := filepath.Join(cfg.Paths.LogDir, "plexbanner-20000101T000000.log")
	keep := filepath.Join(cfg.Paths.LogDir, "notes.txt")
	for _, path := range []string{old, keep} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -3)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if _, err := logging.NewFromConfig(&cfg); err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected stale run log to be pruned, stat err=%v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("expected unrelated file to survive: %v", err)
	}
}

func TestConsoleLoggerFormatsComponentAndGUID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	logger.Info("poster updated", logging.String(logging.FieldItemGUID, "plex://movie/1"), logging.Int("actions", 2))
	logger.Info("banner decision", logging.String(logging.FieldStage, "detect"), logging.String(logging.FieldRunID, "run-1"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO pipeline [plex://movie/1]: poster updated", "actions=2", "INFO pipeline/detect: banner decision"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if strings.Contains(line, "run-1") {
		t.Fatalf("run id belongs in the run log only, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "verbose", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") || !strings.Contains(string(content), "shown") {
		t.Fatalf("unexpected level filtering: %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	base, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRunID(services.WithItemGUID(context.Background(), "plex://show/9"), "run-7")
	logging.WithContext(ctx, base).Info("hello")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldItemGUID] != "plex://show/9" || record[logging.FieldRunID] != "run-7" {
		t.Fatalf("context fields missing: %v", record)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "template missing", "asset_missing", logging.String(logging.FieldImpact, "region unknown"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "asset_missing" {
		t.Fatalf("expected event type, got %v", record)
	}
	if record[logging.FieldImpact] != "region unknown" {
		t.Fatalf("explicit impact should win, got %v", record[logging.FieldImpact])
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default error hint, got %v", record)
	}
}

func TestPruneRunLogsKeepsCurrentAndRecent(t *testing.T) {
	dir := t.TempDir()
	stale := time.Now().AddDate(0, 0, -10)
	current := filepath.Join(dir, logging.RunLogName(stale))
	old := filepath.Join(dir, "plexbanner-20010101T000000.log")
	recent := filepath.Join(dir, logging.RunLogName(time.Now()))
	for _, path := range []string{current, old, recent} {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	for _, path := range []string{current, old} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if n := logging.PruneRunLogs(logging.NewNop(), dir, 5, current); n != 1 {
		t.Fatalf("removed %d files, want 1", n)
	}
	for _, path := range []string{current, recent} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", path, err)
		}
	}
	if n := logging.PruneRunLogs(nil, dir, 0, ""); n != 0 {
		t.Fatalf("retention 0 removed %d files", n)
	}
}
