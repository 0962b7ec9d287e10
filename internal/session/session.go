// Package session wires one tenant's store, versions and collaborators
// together. A session is opened when a tenant signs in and closed on sign-out;
// nothing is shared between tenants.
package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"okrboard/internal/apperr"
	"okrboard/internal/audit"
	"okrboard/internal/importer"
	"okrboard/internal/metrics"
	"okrboard/internal/okr"
	"okrboard/internal/persistence"
	"okrboard/internal/store"
	"okrboard/internal/suggest"
	"okrboard/internal/tabular"
	"okrboard/internal/versions"
)

// Deps are the process-wide collaborators shared by all sessions.
type Deps struct {
	Backend persistence.Backend
	Audit   store.EventLogger
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Suggest *suggest.Service
	IDs     okr.IDGenerator
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.IDs == nil {
		d.IDs = okr.UUIDGenerator{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Suggest == nil {
		d.Suggest = suggest.NewService(suggest.Options{Metrics: d.Metrics, Logger: d.Logger, Now: d.Now})
	}
	return d
}

// Session is a signed-in tenant's working set.
type Session struct {
	Tenant   string
	Store    *store.Store
	Versions *versions.Manager

	deps   Deps
	merger importer.Merger
	logger *zap.Logger
}

// Open loads the tenant's dataset and versions concurrently and builds the
// session around them. A tenant that never saved starts with an empty
// dataset.
func Open(ctx context.Context, tenant string, deps Deps) (*Session, error) {
	if tenant == "" {
		return nil, apperr.Unauthenticated("no tenant id available")
	}
	deps = deps.withDefaults()
	logger := deps.Logger.With(zap.String("tenant", tenant))

	var (
		ds      okr.Dataset
		found   bool
		history []okr.Version
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds, found, err = deps.Backend.LoadDataset(gctx, tenant)
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		history, err = deps.Backend.ListVersions(gctx, tenant)
		if err != nil {
			return fmt.Errorf("list versions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		deps.Metrics.RecordPersistFailure("load")
		logger.Error("open session failed", zap.Error(err))
		return nil, apperr.Persistence("could not load your data", err)
	}

	st := store.New(store.Options{
		Tenant:  tenant,
		Saver:   deps.Backend,
		Initial: ds,
		IDs:     deps.IDs,
		Logger:  logger,
		Audit:   deps.Audit,
		Metrics: deps.Metrics,
		Now:     deps.Now,
	})
	mgr := versions.NewManager(versions.Options{
		Tenant:  tenant,
		Backend: deps.Backend,
		Source:  st,
		Views:   st,
		Logger:  logger,
		Audit:   deps.Audit,
		Metrics: deps.Metrics,
		Now:     deps.Now,
	})
	mgr.Reset(history)
	st.SetVersions(mgr)

	s := &Session{
		Tenant:   tenant,
		Store:    st,
		Versions: mgr,
		deps:     deps,
		merger:   importer.Merger{IDs: deps.IDs},
		logger:   logger,
	}
	deps.Metrics.SessionOpened()
	st.RecordEvent(ctx, audit.EventSessionOpen, map[string]any{"found": found, "versions": len(history)})
	logger.Info("session opened", zap.Bool("found", found), zap.Int("versions", len(history)))
	return s, nil
}

// Close ends the session. The store keeps no background work, so there is
// nothing to flush.
func (s *Session) Close(ctx context.Context) {
	s.deps.Metrics.SessionClosed()
	s.Store.RecordEvent(ctx, audit.EventSessionClose, nil)
	s.logger.Info("session closed")
}

// Dataset resolves a dataset source: "" is the current view, "latest" the
// live dataset, anything else a version name or id.
func (s *Session) Dataset(source string) (okr.Dataset, error) {
	switch source {
	case "":
		return s.Store.Read(), nil
	case okr.LatestView:
		return s.Store.Live(), nil
	}
	v, ok := s.Versions.Lookup(source)
	if !ok {
		return okr.Dataset{}, apperr.NotFound("version not found", fmt.Sprintf("no version named %q", source))
	}
	return v.Data, nil
}

// Summary reports dashboard figures for the current view.
func (s *Session) Summary() okr.Summary {
	return okr.Summarize(s.Store.Read(), s.deps.Now())
}

// Export writes source (see Dataset) as an xlsx workbook.
func (s *Session) Export(w io.Writer, source string) error {
	ds, err := s.Dataset(source)
	if err != nil {
		return err
	}
	return tabular.ExportWorkbook(w, ds, s.deps.Now())
}

// Import reads an xlsx workbook and reconciles it into the live dataset. A
// workbook that cannot be parsed leaves the dataset untouched.
func (s *Session) Import(ctx context.Context, r io.Reader, mode importer.Mode) (importer.Stats, error) {
	records, err := tabular.ImportWorkbook(r)
	if err != nil {
		s.deps.Metrics.RecordImport(string(mode), err)
		s.logger.Warn("import rejected", zap.String("mode", string(mode)), zap.Error(err))
		return importer.Stats{}, err
	}
	return s.ImportRecords(ctx, records, mode)
}

// ImportRecords reconciles already-parsed records into the live dataset.
func (s *Session) ImportRecords(ctx context.Context, records []tabular.Record, mode importer.Mode) (importer.Stats, error) {
	var stats importer.Stats
	_, err := s.Store.Write(ctx, "import."+string(mode), func(ds *okr.Dataset) error {
		next, st, err := s.merger.Apply(*ds, records, mode)
		if err != nil {
			return err
		}
		*ds = next
		stats = st
		return nil
	})
	s.deps.Metrics.RecordImport(string(mode), err)
	if err != nil && !apperr.IsPersistence(err) {
		return importer.Stats{}, err
	}
	s.Store.RecordEvent(ctx, audit.EventImport, map[string]any{"mode": mode, "rows": len(records), "stats": stats})
	s.logger.Info("import applied", zap.String("mode", string(mode)), zap.Int("rows", len(records)),
		zap.Int("krs_created", stats.KRsCreated), zap.Int("krs_updated", stats.KRsUpdated))
	return stats, err
}

// ImportOrgChart reads Name/Parent rows and replaces the org chart.
func (s *Session) ImportOrgChart(ctx context.Context, r io.Reader) (okr.OrgNode, error) {
	rows, err := tabular.ReadOrgChart(r)
	if err != nil {
		return okr.OrgNode{}, err
	}
	return s.SetOrgChartRows(ctx, rows)
}

// SetOrgChartRows builds a tree from rows and stores it as the org chart.
func (s *Session) SetOrgChartRows(ctx context.Context, rows []tabular.OrgRow) (okr.OrgNode, error) {
	root, err := importer.BuildOrgChart(rows)
	if err != nil {
		return okr.OrgNode{}, err
	}
	stored, err := s.Store.SetOrgChart(ctx, root)
	if err != nil && !apperr.IsPersistence(err) {
		return okr.OrgNode{}, err
	}
	s.Store.RecordEvent(ctx, audit.EventOrgChartImport, map[string]any{"rows": len(rows), "root": root.Name})
	return stored, err
}

func (s *Session) SuggestObjectives(ctx context.Context) ([]string, error) {
	out, err := s.deps.Suggest.SuggestObjectives(ctx)
	s.recordSuggestion(ctx, suggest.KindObjective, err)
	return out, err
}

func (s *Session) SuggestKRs(ctx context.Context, objective string) ([]string, error) {
	out, err := s.deps.Suggest.SuggestKRs(ctx, objective)
	s.recordSuggestion(ctx, suggest.KindKR, err)
	return out, err
}

// Ask answers question using the current view as context.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	out, err := s.deps.Suggest.Ask(ctx, question, s.Store.Read())
	s.recordSuggestion(ctx, suggest.KindAsk, err)
	return out, err
}

func (s *Session) recordSuggestion(ctx context.Context, kind string, err error) {
	payload := map[string]any{"kind": kind, "ok": err == nil}
	s.Store.RecordEvent(ctx, audit.EventSuggestionAsked, payload)
}
