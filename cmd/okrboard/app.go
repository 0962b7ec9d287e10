package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"okrboard/internal/apperr"
	"okrboard/internal/audit"
	"okrboard/internal/config"
	"okrboard/internal/identity"
	"okrboard/internal/logging"
	"okrboard/internal/metrics"
	"okrboard/internal/persistence"
	"okrboard/internal/persistence/memory"
	"okrboard/internal/persistence/sqlite"
	"okrboard/internal/persistence/supabase"
	"okrboard/internal/session"
	"okrboard/internal/suggest"
	"okrboard/internal/workspace"
)

// commonFlags are accepted by every command that opens a session.
type commonFlags struct {
	tenant  *string
	backend *string
	verbose *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		tenant:  fs.String("tenant", "", "Tenant id (default: config tenant)"),
		backend: fs.String("backend", "", "Storage backend: sqlite, supabase or memory"),
		verbose: fs.Bool("verbose", false, "Also write logs to stderr"),
	}
}

func (c commonFlags) overrides() map[string]any {
	out := map[string]any{}
	if v := strings.TrimSpace(*c.tenant); v != "" {
		out["tenant"] = v
	}
	if v := strings.TrimSpace(*c.backend); v != "" {
		out["storage.backend"] = v
	}
	return out
}

// app holds the process-wide collaborators built from the workspace config.
type app struct {
	ws       *workspace.Workspace
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	backend  persistence.Backend
	audit    *audit.Logger
	suggest  *suggest.Service
	closeLog func() error
}

type appOptions struct {
	overrides map[string]any
	// console receives log lines; nil keeps logs in the workspace log file
	// only so command output stays readable.
	console io.Writer
}

func requireWorkspace(workspacePath string) (*workspace.Workspace, error) {
	if strings.TrimSpace(workspacePath) == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	return workspace.Resolve(workspacePath)
}

func openApp(workspacePath string, opts appOptions) (*app, error) {
	ws, err := requireWorkspace(workspacePath)
	if err != nil {
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(ws.ConfigPath, opts.overrides)
	if err != nil {
		return nil, err
	}

	logFile := filepath.Join(ws.LogsDir, appName+".log")
	if cfg.Log.File != "" {
		if logFile, err = ws.ResolvePath(cfg.Log.File); err != nil {
			return nil, fmt.Errorf("resolve log.file: %w", err)
		}
	}
	console := opts.console
	if console == nil {
		console = io.Discard
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       logFile,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Console:    console,
	})
	if err != nil {
		return nil, err
	}

	a := &app{ws: ws, cfg: cfg, logger: logger, metrics: metrics.New(), closeLog: closeLog}
	backend, err := a.openBackend()
	if err != nil {
		a.close()
		return nil, err
	}
	a.backend = backend
	if !cfg.Audit.Disabled {
		auditPath, err := ws.ResolvePath(cfg.Audit.DBPath)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("resolve audit.db_path: %w", err)
		}
		a.audit = audit.NewLogger(auditPath)
	}
	gen, err := a.generator()
	if err != nil {
		a.close()
		return nil, err
	}
	a.suggest = suggest.NewService(suggest.Options{Generator: gen, Metrics: a.metrics, Logger: logger})
	return a, nil
}

func (a *app) openBackend() (persistence.Backend, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendSupabase:
		b, err := supabase.New(a.cfg.Supabase.URL, a.cfg.Supabase.Key)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		path, err := a.ws.ResolvePath(a.cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("resolve storage.sqlite_path: %w", err)
		}
		st, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// generator picks the text generator. With no provider configured an API
// key alone selects Gemini. Without a key suggestions stay disabled and
// fail when used.
func (a *app) generator() (suggest.Generator, error) {
	sc := a.cfg.Suggest
	provider := sc.Provider
	if provider == "" && sc.APIKey != "" {
		provider = config.ProviderGemini
	}
	switch provider {
	case config.ProviderMock:
		return suggest.Mock{}, nil
	case config.ProviderGemini:
		if sc.APIKey == "" {
			return nil, nil
		}
		return suggest.NewGemini(suggest.GeminiConfig{
			APIKey:   sc.APIKey,
			Model:    sc.Model,
			Endpoint: sc.Endpoint,
			Timeout:  sc.Timeout,
			Metrics:  a.metrics,
			Logger:   a.logger,
		})
	default:
		return nil, nil
	}
}

func (a *app) deps() session.Deps {
	deps := session.Deps{
		Backend: a.backend,
		Metrics: a.metrics,
		Logger:  a.logger,
		Suggest: a.suggest,
	}
	if a.audit != nil {
		deps.Audit = a.audit
	}
	return deps
}

// identity returns the provider used by the HTTP API. Supabase storage
// implies Supabase sign-in; anything else runs as the configured tenant.
func (a *app) identity() (identity.Provider, error) {
	if a.cfg.Storage.Backend == config.BackendSupabase {
		return identity.NewSupabase(a.cfg.Supabase.URL, a.cfg.Supabase.Key)
	}
	return identity.Static{Tenant: a.cfg.Tenant}, nil
}

// openSession opens the configured tenant's session. The CLI always acts as
// the static tenant.
func (a *app) openSession(ctx context.Context) (*session.Session, error) {
	id, err := identity.Static{Tenant: a.cfg.Tenant}.Authenticate(ctx, "")
	if err != nil {
		return nil, err
	}
	return session.Open(ctx, id.TenantID, a.deps())
}

func (a *app) close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("close backend", zap.Error(err))
		}
	}
	if a.audit != nil {
		_ = a.audit.Close()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// withSession runs fn against a freshly opened session and closes it.
func withSession(workspacePath string, flags commonFlags, fn func(ctx context.Context, a *app, s *session.Session) error) error {
	opts := appOptions{overrides: flags.overrides()}
	if *flags.verbose {
		opts.console = os.Stderr
	}
	a, err := openApp(workspacePath, opts)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)
	return fn(ctx, a, s)
}

// describeError renders apperr errors as "title: description" and anything
// else as is.
func describeError(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	msg := appErr.Title
	if appErr.Description != "" {
		msg += ": " + appErr.Description
	}
	if appErr.Kind == apperr.KindPersistence && appErr.Err != nil {
		msg += " (" + appErr.Err.Error() + ")"
	}
	return msg
}
