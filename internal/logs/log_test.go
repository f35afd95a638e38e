package logs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mapdesk/internal/config"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapdesk.log")
	l := New("mapdesk", config.Log{Level: "warn", File: path})

	l.Info("dropped below level")
	l.Warn("could not load country borders")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["level"] != "WARN" {
		t.Errorf("level: got %v, want WARN", entry["level"])
	}
	if entry["logger"] != "mapdesk" {
		t.Errorf("logger: got %v, want mapdesk", entry["logger"])
	}
	if entry["msg"] != "could not load country borders" {
		t.Errorf("msg: got %v", entry["msg"])
	}
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	l := New("mapdesk", config.Log{Level: "loud"})
	if !l.Core().Enabled(0) {
		t.Error("info level should be enabled")
	}
	if l.Core().Enabled(-1) {
		t.Error("debug level should be disabled")
	}
}
