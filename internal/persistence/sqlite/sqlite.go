// Package sqlite persists datasets and versions in a local SQLite file using
// the same table layout as the hosted okr_data/okr_versions tables.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"okrboard/internal/okr"
	"okrboard/internal/persistence"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages tenant data in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
	now    func() time.Time
}

var _ persistence.Backend = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{
		DBPath: absPath,
		db:     db,
		now:    time.Now,
	}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS okr_data (
	user_id TEXT PRIMARY KEY,
	objectives TEXT NOT NULL,
	departments TEXT NOT NULL,
	org_chart TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS okr_versions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_versions_user_created ON okr_versions(user_id, created_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

func (s *Store) LoadDataset(ctx context.Context, tenant string) (okr.Dataset, bool, error) {
	var objectives, departments, orgChart string
	err := s.db.QueryRowContext(ctx,
		"SELECT objectives, departments, org_chart FROM okr_data WHERE user_id = ?",
		tenant,
	).Scan(&objectives, &departments, &orgChart)
	if errors.Is(err, sql.ErrNoRows) {
		return okr.Dataset{}, false, nil
	}
	if err != nil {
		return okr.Dataset{}, false, fmt.Errorf("query dataset: %w", err)
	}

	var ds okr.Dataset
	if err := json.Unmarshal([]byte(objectives), &ds.Objectives); err != nil {
		return okr.Dataset{}, false, fmt.Errorf("decode objectives: %w", err)
	}
	if err := json.Unmarshal([]byte(departments), &ds.Departments); err != nil {
		return okr.Dataset{}, false, fmt.Errorf("decode departments: %w", err)
	}
	if err := json.Unmarshal([]byte(orgChart), &ds.OrgChart); err != nil {
		return okr.Dataset{}, false, fmt.Errorf("decode org chart: %w", err)
	}
	return ds, true, nil
}

func (s *Store) SaveDataset(ctx context.Context, tenant string, ds okr.Dataset) error {
	objectives, err := marshalList(ds.Objectives)
	if err != nil {
		return fmt.Errorf("encode objectives: %w", err)
	}
	departments, err := marshalList(ds.Departments)
	if err != nil {
		return fmt.Errorf("encode departments: %w", err)
	}
	orgChart, err := json.Marshal(ds.OrgChart)
	if err != nil {
		return fmt.Errorf("encode org chart: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO okr_data (user_id, objectives, departments, org_chart, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			objectives = excluded.objectives,
			departments = excluded.departments,
			org_chart = excluded.org_chart,
			updated_at = excluded.updated_at
	`, tenant, objectives, departments, string(orgChart), s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}
	return nil
}

func (s *Store) ListVersions(ctx context.Context, tenant string) ([]okr.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, data, created_at FROM okr_versions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var versions []okr.Version
	for rows.Next() {
		var v okr.Version
		var data, createdAt string
		if err := rows.Scan(&v.ID, &v.Name, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &v.Data); err != nil {
			return nil, fmt.Errorf("decode version %s: %w", v.ID, err)
		}
		v.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse version %s created_at: %w", v.ID, err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

func (s *Store) SaveVersion(ctx context.Context, tenant string, v okr.Version) (okr.Version, error) {
	data, err := json.Marshal(v.Data)
	if err != nil {
		return okr.Version{}, fmt.Errorf("encode version data: %w", err)
	}
	stored := v.Clone()
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.CreatedAt = stored.CreatedAt.UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO okr_versions (id, user_id, name, data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, stored.ID, tenant, stored.Name, string(data), stored.CreatedAt.Format(timeLayout))
	if err != nil {
		return okr.Version{}, fmt.Errorf("insert version: %w", err)
	}
	return stored, nil
}

func (s *Store) DeleteVersion(ctx context.Context, tenant, versionID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM okr_versions WHERE id = ? AND user_id = ?",
		versionID, tenant,
	)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if n == 0 {
		return persistence.ErrVersionNotFound
	}
	return nil
}

// marshalList encodes a nil slice as [] so rows never hold JSON null.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
