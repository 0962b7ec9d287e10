package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLogEventAndQuery(t *testing.T) {
	ctx := context.Background()
	logger := NewLogger(filepath.Join(t.TempDir(), "audit", "events.db"))
	defer logger.Close()

	if err := logger.LogEvent(ctx, "tenant-a", EventDatasetWrite, map[string]string{"action": "kr.add"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := logger.LogEvent(ctx, "tenant-a", EventVersionSave, map[string]string{"name": "Q1"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := logger.LogEvent(ctx, "tenant-b", EventDatasetWrite, nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	all, err := logger.Events(ctx, Query{})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if got, want := len(all), 3; got != want {
		t.Fatalf("len(events) = %d, want %d", got, want)
	}
	if all[0].Actor != "tenant-b" {
		t.Fatalf("newest actor = %q, want tenant-b", all[0].Actor)
	}

	filtered, err := logger.Events(ctx, Query{Actor: "tenant-a", Type: EventVersionSave})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(filtered) != 1 || string(filtered[0].Payload) != `{"name":"Q1"}` {
		t.Fatalf("filtered = %#v", filtered)
	}

	limited, err := logger.Events(ctx, Query{Limit: 2})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("len(limited) = %d, want 2", len(limited))
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var logger *Logger
	if err := logger.LogEvent(context.Background(), "x", EventDatasetWrite, nil); err != nil {
		t.Fatalf("nil LogEvent: %v", err)
	}
}
