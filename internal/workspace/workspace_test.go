package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAndEnsureDirs(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, dir := range []string{ws.DataDir, ws.AuditDir, ws.ExportsDir, ws.LogsDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("%s not created: %v", dir, err)
		}
	}
	if got, want := ws.ConfigPath, filepath.Join(root, ConfigFileName); got != want {
		t.Fatalf("ConfigPath = %q, want %q", got, want)
	}
}

func TestResolveMissingRoot(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
	if _, err := Resolve("  "); err == nil {
		t.Fatal("expected error for blank root")
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, err := ws.ResolvePath("exports/okr.xlsx")
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if want := filepath.Join(root, "exports", "okr.xlsx"); got != want {
		t.Fatalf("ResolvePath = %q, want %q", got, want)
	}
	abs := filepath.Join(root, "elsewhere")
	if got, _ := ws.ResolvePath(abs); got != abs {
		t.Fatalf("absolute path changed: %q", got)
	}
	if got, _ := ws.ResolvePath(""); got != "" {
		t.Fatalf("blank path = %q, want empty", got)
	}
}
