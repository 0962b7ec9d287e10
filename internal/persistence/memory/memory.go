// Package memory is an in-process persistence backend used for tests and
// throwaway sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"okrboard/internal/okr"
	"okrboard/internal/persistence"
)

type tenantData struct {
	dataset  *okr.Dataset
	versions []okr.Version
}

// Backend keeps everything in maps guarded by a mutex.
type Backend struct {
	mu      sync.Mutex
	tenants map[string]*tenantData
	saveErr error
	saves   int
}

var _ persistence.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{tenants: make(map[string]*tenantData)}
}

// FailSaves makes every subsequent write return err. Pass nil to recover.
func (b *Backend) FailSaves(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveErr = err
}

// DatasetSaves returns how many SaveDataset calls succeeded.
func (b *Backend) DatasetSaves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *Backend) tenant(id string) *tenantData {
	td, ok := b.tenants[id]
	if !ok {
		td = &tenantData{}
		b.tenants[id] = td
	}
	return td
}

func (b *Backend) LoadDataset(ctx context.Context, tenant string) (okr.Dataset, bool, error) {
	if err := ctx.Err(); err != nil {
		return okr.Dataset{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	td := b.tenant(tenant)
	if td.dataset == nil {
		return okr.Dataset{}, false, nil
	}
	return td.dataset.Clone(), true, nil
}

func (b *Backend) SaveDataset(ctx context.Context, tenant string, ds okr.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	cp := ds.Clone()
	b.tenant(tenant).dataset = &cp
	b.saves++
	return nil
}

func (b *Backend) ListVersions(ctx context.Context, tenant string) ([]okr.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	versions := b.tenant(tenant).versions
	out := make([]okr.Version, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (b *Backend) SaveVersion(ctx context.Context, tenant string, v okr.Version) (okr.Version, error) {
	if err := ctx.Err(); err != nil {
		return okr.Version{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return okr.Version{}, b.saveErr
	}
	stored := v.Clone()
	stored.ID = uuid.NewString()
	td := b.tenant(tenant)
	td.versions = append(td.versions, stored)
	return stored.Clone(), nil
}

func (b *Backend) DeleteVersion(ctx context.Context, tenant, versionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	td := b.tenant(tenant)
	for i, v := range td.versions {
		if v.ID == versionID {
			td.versions = append(td.versions[:i:i], td.versions[i+1:]...)
			return nil
		}
	}
	return persistence.ErrVersionNotFound
}

func (b *Backend) Close() error {
	return nil
}
