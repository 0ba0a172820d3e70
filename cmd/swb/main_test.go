package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execCmd runs the root command with args and returns combined output.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// testConfig writes a minimal config with real temp directories and one
// source/target image pair, and returns the config path.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "sources")
	tgtDir := filepath.Join(dir, "targets")
	for _, d := range []string{srcDir, tgtDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(srcDir, "alice.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tgtDir, "card.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	yaml := fmt.Sprintf(`results_dir: %s
source_dir: %s
target_dir: %s
apis: [v2]
db:
  driver: sqlite
  path: %s
`,
		filepath.Join(dir, "results"), srcDir, tgtDir, filepath.Join(dir, "swapbench.db"))
	path := filepath.Join(dir, "swapbench.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execCmd(t, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, sub := range []string{"run", "status", "db", "images", "thortful", "report", "publish", "watch", "debug", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execCmd(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "swb dev") {
		t.Errorf("version output = %q, want to contain 'swb dev'", out)
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	if _, err := execCmd(t, "nope"); err == nil {
		t.Error("expected error for unknown command")
	}
}
