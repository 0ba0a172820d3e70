package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lukejeff/swapbench/internal/results"
)

func TestReportCmd_Help(t *testing.T) {
	out, err := execCmd(t, "report", "--help")
	if err != nil {
		t.Fatalf("report --help failed: %v", err)
	}
	for _, sub := range []string{"generate", "serve"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestNewReportServeCmd(t *testing.T) {
	cmd := newReportServeCmd()
	if got := cmd.Flags().Lookup("port").DefValue; got != "8080" {
		t.Errorf("--port default = %q, want 8080", got)
	}
}

func TestReportGenerate(t *testing.T) {
	configPath := testConfig(t)
	resultsDir := filepath.Join(filepath.Dir(configPath), "results")
	store, err := results.NewStore(resultsDir)
	if err != nil {
		t.Fatal(err)
	}
	combo := results.Combo{Source: "alice", Target: "card", Variant: "v2"}
	if err := store.SaveResult(combo, []byte("img"), &results.Metadata{APIVariant: "v2", GenerationTime: "1.5"}); err != nil {
		t.Fatal(err)
	}

	out, err := execCmd(t, "report", "generate", "--config", configPath)
	if err != nil {
		t.Fatalf("report generate failed: %v", err)
	}
	if !strings.Contains(out, "1 results") {
		t.Errorf("output = %q, want result count", out)
	}
	for _, page := range []string{"index.html", "comparison.html", "review.html"} {
		if _, err := os.Stat(filepath.Join(resultsDir, page)); err != nil {
			t.Errorf("%s not written: %v", page, err)
		}
	}
}
