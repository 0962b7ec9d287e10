package integration_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func auditDBPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, "audit", "events.sqlite")
}

// loadAuditTypes counts events per type, optionally for one actor.
func loadAuditTypes(t *testing.T, dbPath, actor string) map[string]int {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	query := "SELECT type, COUNT(*) FROM events GROUP BY type"
	var args []any
	if actor != "" {
		query = "SELECT type, COUNT(*) FROM events WHERE actor = ? GROUP BY type"
		args = append(args, actor)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		t.Fatalf("query audit events: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	types := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			t.Fatalf("scan audit event: %v", err)
		}
		types[eventType] = count
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate audit events: %v", err)
	}
	return types
}

func requireAuditEvents(t *testing.T, dbPath, actor string, want []string) {
	t.Helper()
	types := loadAuditTypes(t, dbPath, actor)
	for _, eventType := range want {
		if types[eventType] == 0 {
			t.Fatalf("missing audit event %s for actor %q in %s (have %v)", eventType, actor, dbPath, types)
		}
	}
}
