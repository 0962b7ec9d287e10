package harness

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// CLI runs one built binary against one workspace. Env entries override the
// inherited environment; every OKRBOARD_* variable of the parent process is
// dropped so the host's settings cannot leak into a test.
type CLI struct {
	Bin       string
	Workspace string
	Env       map[string]string
}

// NewWorkspace builds the binary and runs init in a fresh temporary
// workspace.
func NewWorkspace(t *testing.T) *CLI {
	t.Helper()
	cli := &CLI{
		Bin:       BuildBinary(t),
		Workspace: filepath.Join(t.TempDir(), "workspace"),
		Env:       map[string]string{},
	}
	cli.MustRun(t, "init")
	return cli
}

// Run executes a command with --workspace appended and returns stdout,
// stderr and the exit code.
func (c *CLI) Run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	full := append([]string{}, args...)
	full = append(full, "--workspace", c.Workspace)

	cmd := exec.Command(c.Bin, full...)
	cmd.Dir = t.TempDir()
	cmd.Env = mergeEnv(c.Env)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			t.Fatalf("run %s: %v", c.Bin, err)
		}
	}
	return stdout.String(), stderr.String(), exitCode
}

// MustRun fails the test unless the command exits 0, and returns stdout.
func (c *CLI) MustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := c.Run(t, args...)
	if code != 0 {
		t.Fatalf("okrboard %s exit code %d\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), code, stdout, stderr)
	}
	return stdout
}

// MustFail fails the test if the command exits 0, and returns stderr.
func (c *CLI) MustFail(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := c.Run(t, args...)
	if code == 0 {
		t.Fatalf("okrboard %s succeeded unexpectedly\nstdout:\n%s", strings.Join(args, " "), stdout)
	}
	return stderr
}

func mergeEnv(overrides map[string]string) []string {
	env := make(map[string]string, len(overrides))
	for _, entry := range os.Environ() {
		parts := strings.SplitN(entry, "=", 2)
		key := parts[0]
		if strings.HasPrefix(key, "OKRBOARD_") {
			continue
		}
		val := ""
		if len(parts) > 1 {
			val = parts[1]
		}
		env[key] = val
	}

	for k, v := range overrides {
		env[k] = v
	}

	merged := make([]string, 0, len(env))
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	sort.Strings(merged)
	return merged
}
