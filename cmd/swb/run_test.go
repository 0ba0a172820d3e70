package main

import (
	"strings"
	"testing"
)

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()
	if cmd.Use != "run" {
		t.Errorf("Use = %q, want run", cmd.Use)
	}
	for _, name := range []string{"config", "apis", "face-mode", "limit", "fresh", "dry-run"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
	if got := cmd.Flags().Lookup("limit").DefValue; got != "0" {
		t.Errorf("--limit default = %q, want 0", got)
	}
	if got := cmd.Flags().Lookup("fresh").DefValue; got != "false" {
		t.Errorf("--fresh default = %q, want false", got)
	}
}

func TestRunCmd_DryRun(t *testing.T) {
	configPath := testConfig(t)
	out, err := execCmd(t, "run", "--config", configPath, "--dry-run")
	if err != nil {
		t.Fatalf("run --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "1 of 1 combinations missing") {
		t.Errorf("dry-run output = %q, want missing count", out)
	}
	if !strings.Contains(out, "alice_to_card (v2)") {
		t.Errorf("dry-run output = %q, want combination listing", out)
	}
}

func TestRunCmd_DryRunWithAPIOverride(t *testing.T) {
	configPath := testConfig(t)
	out, err := execCmd(t, "run", "--config", configPath, "--dry-run", "--apis", "v2,v4")
	if err != nil {
		t.Fatalf("run --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "2 of 2 combinations missing") {
		t.Errorf("dry-run output = %q, want two variants planned", out)
	}
}

func TestRunCmd_MissingConfig(t *testing.T) {
	if _, err := execCmd(t, "run", "--config", "does-not-exist.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestRunCmd_RequiresSegmindKey(t *testing.T) {
	t.Setenv("REACT_APP_SEGMIND_API_KEY", "")
	configPath := testConfig(t)
	_, err := execCmd(t, "run", "--config", configPath)
	if err == nil || !strings.Contains(err.Error(), "REACT_APP_SEGMIND_API_KEY") {
		t.Errorf("err = %v, want missing key error", err)
	}
}
