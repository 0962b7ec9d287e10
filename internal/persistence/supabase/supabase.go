// Package supabase persists datasets and versions in the hosted okr_data and
// okr_versions tables through PostgREST.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"okrboard/internal/okr"
	"okrboard/internal/persistence"
)

const (
	dataTable     = "okr_data"
	versionsTable = "okr_versions"
)

type dataRow struct {
	ID          okr.ID          `json:"id,omitempty"`
	UserID      string          `json:"user_id"`
	Objectives  json.RawMessage `json:"objectives"`
	Departments json.RawMessage `json:"departments"`
	OrgChart    json.RawMessage `json:"org_chart"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

type versionRow struct {
	ID        okr.ID      `json:"id,omitempty"`
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Data      okr.Dataset `json:"data"`
	CreatedAt time.Time   `json:"created_at"`
}

// Backend talks to a Supabase project.
type Backend struct {
	client *supa.Client
	now    func() time.Time
}

var _ persistence.Backend = (*Backend)(nil)

// New creates a client for the project at url using key.
func New(url, key string) (*Backend, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Backend{client: client, now: time.Now}, nil
}

func (b *Backend) LoadDataset(ctx context.Context, tenant string) (okr.Dataset, bool, error) {
	if err := ctx.Err(); err != nil {
		return okr.Dataset{}, false, err
	}
	var rows []dataRow
	_, err := b.client.From(dataTable).
		Select("objectives,departments,org_chart", "", false).
		Eq("user_id", tenant).
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return okr.Dataset{}, false, fmt.Errorf("select %s: %w", dataTable, err)
	}
	if len(rows) == 0 {
		return okr.Dataset{}, false, nil
	}

	var ds okr.Dataset
	if err := decodeOptional(rows[0].Objectives, &ds.Objectives); err != nil {
		return okr.Dataset{}, false, fmt.Errorf("decode objectives: %w", err)
	}
	if err := decodeOptional(rows[0].Departments, &ds.Departments); err != nil {
		return okr.Dataset{}, false, fmt.Errorf("decode departments: %w", err)
	}
	if err := decodeOptional(rows[0].OrgChart, &ds.OrgChart); err != nil {
		return okr.Dataset{}, false, fmt.Errorf("decode org chart: %w", err)
	}
	return ds, true, nil
}

func (b *Backend) SaveDataset(ctx context.Context, tenant string, ds okr.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := dataRow{UserID: tenant, UpdatedAt: b.now().UTC().Format(time.RFC3339Nano)}
	var err error
	if row.Objectives, err = marshalList(ds.Objectives); err != nil {
		return fmt.Errorf("encode objectives: %w", err)
	}
	if row.Departments, err = marshalList(ds.Departments); err != nil {
		return fmt.Errorf("encode departments: %w", err)
	}
	if row.OrgChart, err = json.Marshal(ds.OrgChart); err != nil {
		return fmt.Errorf("encode org chart: %w", err)
	}

	id, found, err := b.currentRowID(tenant)
	if err != nil {
		return err
	}
	if found {
		_, _, err = b.client.From(dataTable).
			Update(row, "minimal", "").
			Eq("id", id.String()).
			Execute()
		if err != nil {
			return fmt.Errorf("update %s: %w", dataTable, err)
		}
		return nil
	}
	_, _, err = b.client.From(dataTable).
		Insert(row, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert %s: %w", dataTable, err)
	}
	return nil
}

// currentRowID returns the id of the tenant's newest okr_data row. The table
// has no unique constraint on user_id, so saves update that row in place.
func (b *Backend) currentRowID(tenant string) (okr.ID, bool, error) {
	var rows []dataRow
	_, err := b.client.From(dataTable).
		Select("id", "", false).
		Eq("user_id", tenant).
		Order("updated_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return "", false, fmt.Errorf("select %s id: %w", dataTable, err)
	}
	if len(rows) == 0 || rows[0].ID == "" {
		return "", false, nil
	}
	return rows[0].ID, true, nil
}

func (b *Backend) ListVersions(ctx context.Context, tenant string) ([]okr.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []versionRow
	_, err := b.client.From(versionsTable).
		Select("*", "", false).
		Eq("user_id", tenant).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", versionsTable, err)
	}
	versions := make([]okr.Version, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, row.version())
	}
	return versions, nil
}

func (b *Backend) SaveVersion(ctx context.Context, tenant string, v okr.Version) (okr.Version, error) {
	if err := ctx.Err(); err != nil {
		return okr.Version{}, err
	}
	created := v.CreatedAt
	if created.IsZero() {
		created = b.now()
	}
	row := versionRow{UserID: tenant, Name: v.Name, Data: v.Data, CreatedAt: created.UTC()}

	var inserted []versionRow
	_, err := b.client.From(versionsTable).
		Insert(row, false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		return okr.Version{}, fmt.Errorf("insert %s: %w", versionsTable, err)
	}
	if len(inserted) == 0 {
		return okr.Version{}, fmt.Errorf("insert %s: no row returned", versionsTable)
	}
	return inserted[0].version(), nil
}

func (b *Backend) DeleteVersion(ctx context.Context, tenant, versionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var deleted []versionRow
	_, err := b.client.From(versionsTable).
		Delete("representation", "").
		Eq("id", versionID).
		Eq("user_id", tenant).
		ExecuteTo(&deleted)
	if err != nil {
		return fmt.Errorf("delete %s: %w", versionsTable, err)
	}
	if len(deleted) == 0 {
		return persistence.ErrVersionNotFound
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}

func (r versionRow) version() okr.Version {
	return okr.Version{ID: r.ID.String(), Name: r.Name, CreatedAt: r.CreatedAt, Data: r.Data}
}

func decodeOptional(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func marshalList[T any](items []T) (json.RawMessage, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}
