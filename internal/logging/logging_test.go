package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "okrboard.log")

	logger, closeFn, err := New(Options{Level: "info", Format: "json", File: file, MaxSizeMB: 1, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("dataset persisted", zap.String("tenant", "t1"))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if strings.Contains(console.String(), "hidden") {
		t.Fatalf("debug line written at info level: %s", console.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(console.Bytes()), &entry); err != nil {
		t.Fatalf("console line is not JSON: %v (%q)", err, console.String())
	}
	if entry["msg"] != "dataset persisted" || entry["tenant"] != "t1" {
		t.Fatalf("entry = %v", entry)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"dataset persisted"`) {
		t.Fatalf("log file = %q", data)
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
