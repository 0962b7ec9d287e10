// Package versions manages named, immutable snapshots of a tenant's dataset.
package versions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"okrboard/internal/apperr"
	"okrboard/internal/audit"
	"okrboard/internal/metrics"
	"okrboard/internal/okr"
	"okrboard/internal/persistence"
)

// Backend is the slice of persistence the manager needs.
type Backend interface {
	ListVersions(ctx context.Context, tenant string) ([]okr.Version, error)
	SaveVersion(ctx context.Context, tenant string, v okr.Version) (okr.Version, error)
	DeleteVersion(ctx context.Context, tenant, versionID string) error
}

// LiveSource supplies the dataset to snapshot.
type LiveSource interface {
	Live() okr.Dataset
}

// ViewResetter is told when a version that may be on screen disappears.
type ViewResetter interface {
	ResetViewIf(names ...string)
}

// EventLogger records audit events.
type EventLogger interface {
	LogEvent(ctx context.Context, actor string, eventType string, payload any) error
}

type Options struct {
	Tenant  string
	Backend Backend
	Source  LiveSource
	Views   ViewResetter
	Logger  *zap.Logger
	Audit   EventLogger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Manager keeps the tenant's version list in memory, most recent first, and
// writes every change through to the backend.
type Manager struct {
	tenant  string
	backend Backend
	source  LiveSource
	views   ViewResetter
	logger  *zap.Logger
	audit   EventLogger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	versions []okr.Version
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		tenant:  opts.Tenant,
		backend: opts.Backend,
		source:  opts.Source,
		views:   opts.Views,
		logger:  opts.Logger,
		audit:   opts.Audit,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Load replaces the in-memory list with the backend's.
func (m *Manager) Load(ctx context.Context) error {
	versions, err := m.backend.ListVersions(ctx, m.tenant)
	if err != nil {
		return apperr.Persistence("could not load versions", err)
	}
	m.Reset(versions)
	return nil
}

// Reset installs an already-loaded version list.
func (m *Manager) Reset(versions []okr.Version) {
	sorted := make([]okr.Version, len(versions))
	copy(sorted, versions)
	sortNewestFirst(sorted)
	m.mu.Lock()
	m.versions = sorted
	m.mu.Unlock()
}

// DefaultName is the name used when a version is saved without one.
func DefaultName(existing int, now time.Time) string {
	return fmt.Sprintf("Versiyon %d - %s", existing+1, now.Format("02.01.2006"))
}

// Save snapshots the live dataset under name. A blank name gets DefaultName.
func (m *Manager) Save(ctx context.Context, name string) (okr.Version, error) {
	live := m.source.Live()
	now := m.now()

	name = strings.TrimSpace(name)
	if name == "" {
		m.mu.RLock()
		name = DefaultName(len(m.versions), now)
		m.mu.RUnlock()
	}

	v := okr.Version{
		Name:      name,
		CreatedAt: now,
		Data: okr.Dataset{
			Objectives:  live.Objectives,
			Departments: live.Departments,
			OrgChart:    live.OrgChart,
		},
	}
	stored, err := m.backend.SaveVersion(ctx, m.tenant, v)
	m.metrics.RecordVersionOp("save", err)
	if err != nil {
		m.logger.Error("save version failed", zap.String("tenant", m.tenant), zap.String("name", name), zap.Error(err))
		return okr.Version{}, apperr.Persistence("could not save version", err)
	}

	m.mu.Lock()
	m.versions = append([]okr.Version{stored}, m.versions...)
	sortNewestFirst(m.versions)
	m.mu.Unlock()

	m.logEvent(ctx, audit.EventVersionSave, map[string]any{"id": stored.ID, "name": stored.Name})
	return stored.Clone(), nil
}

// Delete removes the version with the given id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.RLock()
	target, ok := m.byID(id)
	m.mu.RUnlock()
	if !ok {
		return apperr.NotFound("version not found", fmt.Sprintf("no version with id %q", id))
	}

	err := m.backend.DeleteVersion(ctx, m.tenant, id)
	m.metrics.RecordVersionOp("delete", err)
	switch {
	case errors.Is(err, persistence.ErrVersionNotFound):
		m.remove(id, target.Name)
		return apperr.NotFound("version not found", fmt.Sprintf("version %q was already deleted", target.Name))
	case err != nil:
		m.logger.Error("delete version failed", zap.String("tenant", m.tenant), zap.String("id", id), zap.Error(err))
		return apperr.Persistence("could not delete version", err)
	}

	m.remove(id, target.Name)
	m.logEvent(ctx, audit.EventVersionDelete, map[string]any{"id": id, "name": target.Name})
	return nil
}

func (m *Manager) remove(id, name string) {
	m.mu.Lock()
	for i, v := range m.versions {
		if v.ID == id {
			m.versions = append(m.versions[:i:i], m.versions[i+1:]...)
			break
		}
	}
	_, nameStillUsed := m.byName(name)
	m.mu.Unlock()

	if m.views == nil {
		return
	}
	if nameStillUsed {
		m.views.ResetViewIf(id)
	} else {
		m.views.ResetViewIf(id, name)
	}
}

// List returns versions, most recent first.
func (m *Manager) List() []okr.Version {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]okr.Version, len(m.versions))
	for i, v := range m.versions {
		out[i] = v.Clone()
	}
	return out
}

// Lookup finds a version by id or, failing that, the most recent version
// with the given name.
func (m *Manager) Lookup(nameOrID string) (okr.Version, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.byID(nameOrID); ok {
		return v.Clone(), true
	}
	if v, ok := m.byName(nameOrID); ok {
		return v.Clone(), true
	}
	return okr.Version{}, false
}

// Diff renders a unified diff from the named version to the live dataset.
func (m *Manager) Diff(nameOrID string) (string, error) {
	v, ok := m.Lookup(nameOrID)
	if !ok {
		return "", apperr.NotFound("version not found", fmt.Sprintf("no version named %q", nameOrID))
	}
	from, err := okr.MarshalDatasetYAML(v.Data)
	if err != nil {
		return "", err
	}
	to, err := okr.MarshalDatasetYAML(m.source.Live())
	if err != nil {
		return "", err
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(from)),
		B:        difflib.SplitLines(string(to)),
		FromFile: "version/" + v.Name,
		ToFile:   okr.LatestView,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff version %s: %w", v.Name, err)
	}
	return text, nil
}

func (m *Manager) byID(id string) (okr.Version, bool) {
	for _, v := range m.versions {
		if v.ID == id {
			return v, true
		}
	}
	return okr.Version{}, false
}

func (m *Manager) byName(name string) (okr.Version, bool) {
	for _, v := range m.versions {
		if v.Name == name {
			return v, true
		}
	}
	return okr.Version{}, false
}

func (m *Manager) logEvent(ctx context.Context, eventType string, payload map[string]any) {
	if m.audit == nil {
		return
	}
	if err := m.audit.LogEvent(ctx, m.tenant, eventType, payload); err != nil {
		m.logger.Warn("audit event failed", zap.String("type", eventType), zap.Error(err))
	}
}

func sortNewestFirst(versions []okr.Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].CreatedAt.After(versions[j].CreatedAt)
	})
}
