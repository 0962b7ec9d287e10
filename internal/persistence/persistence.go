// Package persistence defines the tenant-keyed store for datasets and
// versions. Backends live in subpackages.
package persistence

import (
	"context"
	"errors"

	"okrboard/internal/okr"
)

// ErrVersionNotFound is returned by DeleteVersion when the id is unknown.
var ErrVersionNotFound = errors.New("version not found")

// Backend persists one live dataset and a list of versions per tenant.
type Backend interface {
	// LoadDataset returns the tenant's dataset. found is false when the
	// tenant has never saved one.
	LoadDataset(ctx context.Context, tenant string) (ds okr.Dataset, found bool, err error)
	SaveDataset(ctx context.Context, tenant string, ds okr.Dataset) error
	// ListVersions returns versions ordered most recent first.
	ListVersions(ctx context.Context, tenant string) ([]okr.Version, error)
	// SaveVersion stores v and returns it with its assigned id.
	SaveVersion(ctx context.Context, tenant string, v okr.Version) (okr.Version, error)
	DeleteVersion(ctx context.Context, tenant, versionID string) error
	Close() error
}
