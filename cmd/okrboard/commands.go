package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"okrboard/internal/apperr"
	"okrboard/internal/audit"
	"okrboard/internal/importer"
	"okrboard/internal/okr"
	"okrboard/internal/session"
	"okrboard/internal/tabular"
	"okrboard/internal/workspace"
)

const defaultConfigTemplate = `# okrboard workspace configuration. Every key can also be set through an
# OKRBOARD_* environment variable, e.g. OKRBOARD_STORAGE_BACKEND.
tenant: local
storage:
  backend: sqlite
  sqlite_path: data/okrboard.sqlite
server:
  addr: 127.0.0.1:8080
  allowed_origins:
    - http://localhost:5173
log:
  level: info
  format: console
suggest:
  provider: ""
  model: gemini-1.5-flash-latest
`

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}
	if err := writeFileIfMissing(ws.ConfigPath, defaultConfigTemplate); err != nil {
		return err
	}

	a, err := openApp(ws.Root, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()
	if a.audit != nil {
		payload := map[string]any{"workspace": ws.Root, "backend": a.cfg.Storage.Backend}
		if err := a.audit.LogEvent(context.Background(), "cli", audit.EventWorkspaceInit, payload); err != nil {
			fmt.Fprintln(os.Stderr, "audit log failed:", err)
		}
	}

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s template --workspace %s --out okr.xlsx\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s import --workspace %s okr.xlsx\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s serve --workspace %s\n", appName, ws.Root)
	return nil
}

func writeFileIfMissing(path string, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func runProgress(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("progress", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	source := fs.String("source", "", "Dataset to show: latest or a version name or id (default: latest)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		ds, err := s.Dataset(*source)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, okr.Summarize(ds, s.Store.Now()))
		printTree(os.Stdout, ds)
		return nil
	})
}

func printSummary(w io.Writer, sum okr.Summary) {
	fmt.Fprintf(w, "Quarter:               %s\n", sum.CurrentQuarter)
	fmt.Fprintf(w, "Overall progress:      %s%%\n", formatPercent(sum.OverallProgress))
	fmt.Fprintf(w, "Company objectives:    %d\n", sum.CompanyObjectives)
	fmt.Fprintf(w, "Departments:           %d\n", sum.Departments)
	fmt.Fprintf(w, "Department objectives: %d\n", sum.DepartmentObjectives)
	fmt.Fprintf(w, "Key results:           %d (%d completed)\n", sum.TotalKRs, sum.CompletedKRs)
	if sum.TopDepartment != nil {
		fmt.Fprintf(w, "Top department:        %s (%s%%)\n", sum.TopDepartment.Name, formatPercent(sum.TopDepartment.Progress))
	}
	if sum.BottomDepartment != nil {
		fmt.Fprintf(w, "Bottom department:     %s (%s%%)\n", sum.BottomDepartment.Name, formatPercent(sum.BottomDepartment.Progress))
	}
}

func printTree(w io.Writer, ds okr.Dataset) {
	if len(ds.Objectives) > 0 {
		fmt.Fprintln(w, "\nCompany objectives:")
	}
	for _, obj := range ds.Objectives {
		fmt.Fprintf(w, "  [%s] %s%% %s\n", obj.ID, formatPercent(obj.Progress), obj.Title)
		for _, linked := range ds.LinkedObjectives(obj.ID) {
			fmt.Fprintf(w, "      <- %s%% %s\n", formatPercent(linked.Progress), linked.Title)
		}
	}
	for _, dept := range ds.Departments {
		fmt.Fprintf(w, "\nDepartment [%s] %s: %s%%\n", dept.ID, dept.Name, formatPercent(dept.Progress))
		for _, obj := range dept.Objectives {
			fmt.Fprintf(w, "  [%s] %s%% %s\n", obj.ID, formatPercent(obj.Progress), obj.Title)
			for _, kr := range obj.KRs {
				fmt.Fprintf(w, "    [%s] %s%% %s (%s, %s, weight %s)\n",
					kr.ID, formatPercent(kr.Progress), kr.Title, kr.Responsible, kr.Type,
					formatPercent(float64(kr.Weight)))
			}
		}
	}
}

func formatPercent(f float64) string {
	return string(okr.NumberValue(f))
}

func runExport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	source := fs.String("source", "", "Dataset to export: latest or a version name or id (default: latest)")
	format := fs.String("format", "xlsx", "Output format: xlsx or yaml")
	out := fs.String("out", "", "Output path (default: <workspace>/exports/OKR_Verileri.<format>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format != "xlsx" && *format != "yaml" {
		return fmt.Errorf("unknown format: %s", *format)
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		path := *out
		if path == "" {
			path = filepath.Join(a.ws.ExportsDir, "OKR_Verileri."+*format)
		}
		path, err := a.ws.ResolvePath(path)
		if err != nil {
			return fmt.Errorf("resolve --out: %w", err)
		}

		var buf bytes.Buffer
		if *format == "yaml" {
			ds, err := s.Dataset(*source)
			if err != nil {
				return err
			}
			data, err := okr.MarshalDatasetYAML(ds)
			if err != nil {
				return err
			}
			buf.Write(data)
		} else if err := s.Export(&buf, *source); err != nil {
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(os.Stdout, "Exported %s\n", path)
		return nil
	})
}

func runImport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	modeFlag := fs.String("mode", string(importer.ModeOverwrite), "Import mode: overwrite or merge")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import requires exactly one workbook path")
	}
	mode, err := importer.ParseMode(*modeFlag)
	if err != nil {
		return err
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		f, err := openInput(a, fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		stats, err := s.Import(ctx, f, mode)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Imported (%s): %d company objectives, %d departments, %d department objectives created; %d key results created, %d updated; %d rows skipped\n",
			mode, stats.CompanyObjectivesCreated, stats.DepartmentsCreated, stats.DepartmentObjectivesCreated,
			stats.KRsCreated, stats.KRsUpdated, stats.RowsSkipped)
		return nil
	})
}

func openInput(a *app, path string) (*os.File, error) {
	resolved, err := a.ws.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, apperr.ImportFormat("the file could not be opened", err)
	}
	return f, nil
}

func runTemplate(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	kind := fs.String("kind", "okr", "Template kind: okr or orgchart")
	out := fs.String("out", "", "Output path (default: <workspace>/exports/<template name>.xlsx)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ws, err := requireWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}

	var (
		buf  bytes.Buffer
		name string
	)
	switch *kind {
	case "okr":
		name = "OKR_Sablonu.xlsx"
		err = tabular.WriteOKRTemplate(&buf)
	case "orgchart":
		name = "Organizasyon_Semasi_Sablonu.xlsx"
		err = tabular.WriteOrgChartTemplate(&buf)
	default:
		return fmt.Errorf("unknown template kind: %s", *kind)
	}
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Join(ws.ExportsDir, name)
	}
	if path, err = ws.ResolvePath(path); err != nil {
		return fmt.Errorf("resolve --out: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
	return nil
}

func runOrgChart(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("orgchart", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("orgchart takes at most one workbook path")
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		root := s.Store.Live().OrgChart
		if fs.NArg() == 1 {
			f, err := openInput(a, fs.Arg(0))
			if err != nil {
				return err
			}
			defer f.Close()
			if root, err = s.ImportOrgChart(ctx, f); err != nil {
				return err
			}
		}
		if root.Name == "" {
			fmt.Fprintln(os.Stdout, "No org chart.")
			return nil
		}
		printOrgNode(os.Stdout, root, 0)
		return nil
	})
}

func printOrgNode(w io.Writer, node okr.OrgNode, depth int) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), node.Name)
	for _, child := range node.Children {
		printOrgNode(w, child, depth+1)
	}
}

func runCheckIn(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("checkin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	krID := fs.String("kr", "", "Key result id")
	period := fs.String("period", "", "Period (YYYYQn or YYYYMM)")
	target := fs.String("target", "", "Target value")
	actual := fs.String("actual", "", "Actual value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*krID) == "" {
		return fmt.Errorf("--kr is required")
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		kr, err := s.Store.RecordCheckIn(ctx, okr.ID(*krID), okr.CheckIn{
			Period: strings.TrimSpace(*period),
			Target: okr.Value(strings.TrimSpace(*target)),
			Actual: okr.Value(strings.TrimSpace(*actual)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: %s%%\n", kr.Title, formatPercent(kr.Progress))
		return nil
	})
}

func runSuggest(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s suggest: missing subcommand (objective or kr)", appName)
	}
	kind := args[0]
	if kind != "objective" && kind != "kr" {
		return fmt.Errorf("%s suggest: unknown subcommand %q", appName, kind)
	}

	fs := flag.NewFlagSet("suggest "+kind, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	objective := fs.String("objective", "", "Objective title to suggest key results for")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		var (
			out []string
			err error
		)
		if kind == "objective" {
			out, err = s.SuggestObjectives(ctx)
		} else {
			out, err = s.SuggestKRs(ctx, *objective)
		}
		if err != nil {
			return err
		}
		for i, line := range out {
			fmt.Fprintf(os.Stdout, "%d. %s\n", i+1, line)
		}
		return nil
	})
}

func runAsk(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := strings.Join(fs.Args(), " ")
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		answer, err := s.Ask(ctx, question)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, answer)
		return nil
	})
}

func runAudit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	actor := fs.String("actor", "", "Only events by this actor (tenant id or cli)")
	eventType := fs.String("type", "", "Only events of this type")
	limit := fs.Int("limit", 20, "Maximum number of events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := openApp(workspacePath, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()
	if a.audit == nil {
		return fmt.Errorf("audit is disabled in this workspace")
	}
	events, err := a.audit.Events(context.Background(), audit.Query{Actor: *actor, Type: *eventType, Limit: *limit})
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Fprintf(os.Stdout, "%s  %-10s %-18s %s\n", ev.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), ev.Actor, ev.Type, string(ev.Payload))
	}
	return nil
}
