// Package store owns a tenant's live dataset and the current read view.
package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"okrboard/internal/apperr"
	"okrboard/internal/audit"
	"okrboard/internal/metrics"
	"okrboard/internal/okr"
)

// Saver persists the live dataset.
type Saver interface {
	SaveDataset(ctx context.Context, tenant string, ds okr.Dataset) error
}

// VersionLookup resolves a version by name for the read view.
type VersionLookup interface {
	Lookup(nameOrID string) (okr.Version, bool)
}

// EventLogger records audit events.
type EventLogger interface {
	LogEvent(ctx context.Context, actor string, eventType string, payload any) error
}

// Mutator edits a private working copy of the live dataset. Returning an
// error discards the copy and leaves the store untouched.
type Mutator func(ds *okr.Dataset) error

// Options configures a Store. Tenant and Saver are required.
type Options struct {
	Tenant   string
	Saver    Saver
	Initial  okr.Dataset
	IDs      okr.IDGenerator
	Versions VersionLookup
	Logger   *zap.Logger
	Audit    EventLogger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Store holds the live dataset and the view indicator. Mutations go through
// Write, which recomputes every progress field before the new dataset becomes
// visible to readers.
type Store struct {
	tenant   string
	saver    Saver
	ids      okr.IDGenerator
	versions VersionLookup
	logger   *zap.Logger
	audit    EventLogger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu   sync.RWMutex
	live okr.Dataset
	view string
	seq  uint64

	persistMu sync.Mutex
	persisted uint64
}

func New(opts Options) *Store {
	s := &Store{
		tenant:   opts.Tenant,
		saver:    opts.Saver,
		ids:      opts.IDs,
		versions: opts.Versions,
		logger:   opts.Logger,
		audit:    opts.Audit,
		metrics:  opts.Metrics,
		now:      opts.Now,
		live:     okr.RecomputeAll(opts.Initial),
		view:     okr.LatestView,
	}
	if s.ids == nil {
		s.ids = okr.UUIDGenerator{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SetVersions attaches the version source consulted by Read and SetView.
func (s *Store) SetVersions(v VersionLookup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = v
}

func (s *Store) Tenant() string {
	return s.tenant
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// Live returns a copy of the live dataset regardless of the view.
func (s *Store) Live() okr.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.Clone()
}

// Read returns the dataset for the current view: the selected version's data
// if the view names an existing version, otherwise the live dataset.
func (s *Store) Read() okr.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view != okr.LatestView && s.versions != nil {
		if v, ok := s.versions.Lookup(s.view); ok {
			return v.Data.Clone()
		}
	}
	return s.live.Clone()
}

// View returns the current view name.
func (s *Store) View() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetView switches what Read returns. The live dataset is not touched.
func (s *Store) SetView(name string) error {
	if name == "" {
		name = okr.LatestView
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != okr.LatestView {
		if s.versions == nil {
			return apperr.NotFound("version not found", "no version named "+name)
		}
		if _, ok := s.versions.Lookup(name); !ok {
			return apperr.NotFound("version not found", "no version named "+name)
		}
	}
	s.view = name
	return nil
}

// ResetViewIf returns the view to latest when it currently shows one of the
// given names.
func (s *Store) ResetViewIf(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if s.view == name {
			s.view = okr.LatestView
			return
		}
	}
}

// Write applies m to a copy of the live dataset, recomputes progress and
// swaps the result in atomically. Writes always target the live dataset,
// whatever the view, but the new dataset is persisted only while the view is
// latest.
//
// A persistence failure is returned as an apperr persistence error together
// with the new dataset; the in-memory change is kept and not retried.
func (s *Store) Write(ctx context.Context, action string, m Mutator) (okr.Dataset, error) {
	start := time.Now()

	s.mu.Lock()
	working := s.live.Clone()
	if err := m(&working); err != nil {
		s.mu.Unlock()
		s.metrics.RecordWrite(action, time.Since(start), err)
		return okr.Dataset{}, err
	}
	next := okr.RecomputeAll(working)
	s.live = next
	s.seq++
	seq := s.seq
	view := s.view
	s.mu.Unlock()

	s.metrics.RecordWrite(action, time.Since(start), nil)
	if view != okr.LatestView {
		// Only the latest view persists. The change stays in the live
		// dataset and is saved by the next write made on latest.
		s.logger.Info("write kept in memory while viewing a version",
			zap.String("tenant", s.tenant), zap.String("action", action), zap.String("view", view))
		s.recordEvent(ctx, audit.EventDatasetWrite, map[string]any{"action": action, "persisted": false})
		return next.Clone(), nil
	}

	if err := s.persist(ctx, seq, next); err != nil {
		return next.Clone(), err
	}
	s.recordEvent(ctx, audit.EventDatasetWrite, map[string]any{"action": action, "persisted": true})
	return next.Clone(), nil
}

// Replace swaps in ds wholesale.
func (s *Store) Replace(ctx context.Context, action string, ds okr.Dataset) (okr.Dataset, error) {
	replacement := ds.Clone()
	return s.Write(ctx, action, func(working *okr.Dataset) error {
		*working = replacement
		return nil
	})
}

// persist saves snapshots in write order. A snapshot older than the last
// saved one is skipped.
func (s *Store) persist(ctx context.Context, seq uint64, ds okr.Dataset) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if seq <= s.persisted {
		return nil
	}
	if err := s.saver.SaveDataset(ctx, s.tenant, ds); err != nil {
		s.metrics.RecordPersistFailure("save_dataset")
		s.logger.Error("persist dataset failed", zap.String("tenant", s.tenant), zap.Error(err))
		return apperr.Persistence("could not save your changes", err)
	}
	s.persisted = seq
	s.logger.Debug("dataset persisted", zap.String("tenant", s.tenant), zap.Uint64("seq", seq))
	return nil
}

func (s *Store) recordEvent(ctx context.Context, eventType string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, s.tenant, eventType, payload); err != nil {
		s.logger.Warn("audit event failed", zap.String("type", eventType), zap.Error(err))
	}
}

// RecordEvent logs an audit event attributed to the store's tenant.
func (s *Store) RecordEvent(ctx context.Context, eventType string, payload map[string]any) {
	s.recordEvent(ctx, eventType, payload)
}

func (s *Store) newID(ds okr.Dataset) okr.ID {
	return okr.FreshID(s.ids, ds)
}
