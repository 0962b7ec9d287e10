package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const defaultAuditPath = "audit/events.db"

// Event types recorded by the application.
const (
	EventDatasetWrite    = "dataset.write"
	EventVersionSave     = "version.save"
	EventVersionDelete   = "version.delete"
	EventImport          = "dataset.import"
	EventOrgChartImport  = "orgchart.import"
	EventSessionOpen     = "session.open"
	EventSessionClose    = "session.close"
	EventSuggestionAsked = "suggest.request"
	EventWorkspaceInit   = "workspace.init"
)

// Event is a single recorded audit entry.
type Event struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"ts"`
	Actor     string          `json:"actor"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// Logger writes audit events to a SQLite database. The database is opened
// lazily on first use and kept open until Close.
type Logger struct {
	DBPath string

	once    sync.Once
	db      *sql.DB
	openErr error
	now     func() time.Time
}

// NewLogger returns a Logger bound to dbPath. An empty path falls back to
// $OKRBOARD_AUDIT_DB and then audit/events.db.
func NewLogger(dbPath string) *Logger {
	return &Logger{DBPath: dbPath, now: time.Now}
}

func (l *Logger) open() (*sql.DB, error) {
	l.once.Do(func() {
		resolved, err := resolveDBPath(l.DBPath)
		if err != nil {
			l.openErr = err
			return
		}
		db, err := sql.Open("sqlite", resolved)
		if err != nil {
			l.openErr = fmt.Errorf("open audit db: %w", err)
			return
		}
		db.SetMaxOpenConns(1)
		if err := ensureSchema(db); err != nil {
			_ = db.Close()
			l.openErr = err
			return
		}
		l.DBPath = resolved
		l.db = db
	})
	return l.db, l.openErr
}

// LogEvent records an event. A nil Logger discards events.
func (l *Logger) LogEvent(ctx context.Context, actor string, eventType string, payload any) error {
	if l == nil {
		return nil
	}
	db, err := l.open()
	if err != nil {
		return err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO events (ts, actor, type, payload_json) VALUES (?, ?, ?, ?)",
		now().UTC().Format(time.RFC3339Nano),
		actor,
		eventType,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query filters Events. Zero fields match everything.
type Query struct {
	Actor string
	Type  string
	Limit int
}

// Events returns matching events, newest first.
func (l *Logger) Events(ctx context.Context, q Query) ([]Event, error) {
	db, err := l.open()
	if err != nil {
		return nil, err
	}
	stmt := "SELECT id, ts, actor, type, payload_json FROM events WHERE 1=1"
	var args []any
	if q.Actor != "" {
		stmt += " AND actor = ?"
		args = append(args, q.Actor)
	}
	if q.Type != "" {
		stmt += " AND type = ?"
		args = append(args, q.Type)
	}
	stmt += " ORDER BY id DESC"
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []Event
	for rows.Next() {
		var e Event
		var ts, payload string
		if err := rows.Scan(&e.ID, &ts, &e.Actor, &e.Type, &payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp %q: %w", ts, err)
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// Close releases the database handle.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			actor TEXT NOT NULL,
			type TEXT NOT NULL,
			payload_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

func resolveDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		dbPath = os.Getenv("OKRBOARD_AUDIT_DB")
	}
	if dbPath == "" {
		dbPath = defaultAuditPath
	}
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("resolve audit db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure audit db dir: %w", err)
	}
	return absPath, nil
}
