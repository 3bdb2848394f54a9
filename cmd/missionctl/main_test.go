package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// useWorkspace points config loading at a temporary OpenClaw tree.
func useWorkspace(t *testing.T) string {
	t.Helper()
	openclaw := t.TempDir()
	t.Setenv("MISSION_CONTROL_CONFIG", "")
	t.Setenv("MC_OPENCLAW_DIR", openclaw)
	t.Setenv("MC_WORKSPACE_DIR", "")
	t.Setenv("MC_LOG_DIR", filepath.Join(openclaw, "logs"))
	configPath = ""
	return openclaw
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAttestCommandFailsOnGap(t *testing.T) {
	openclaw := useWorkspace(t)
	write(t, filepath.Join(openclaw, "workspace", ".clawdsure", "attestation.log"),
		"2025-01-15T08:00:00Z | #1 | PASS\n2025-01-15T10:00:00Z | #3 | PASS\n")

	cmd := attestCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected an error for a broken chain")
	}

	var report struct {
		Healthy     bool  `json:"healthy"`
		ChainLength int   `json:"chainLength"`
		Gaps        []int `json:"gaps"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if report.Healthy || report.ChainLength != 3 || len(report.Gaps) != 1 || report.Gaps[0] != 2 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestLogsCommandRejectsBadDate(t *testing.T) {
	useWorkspace(t)

	cmd := logsCmd()
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.Flags().Set("date", "2025/01/15"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Error("expected a date validation error")
	}
}

func TestCronCommandPrintsEmptyList(t *testing.T) {
	useWorkspace(t)

	cmd := cronCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	var report struct {
		Jobs []json.RawMessage `json:"jobs"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if report.Jobs == nil || len(report.Jobs) != 0 {
		t.Errorf("jobs = %v", report.Jobs)
	}
}

func TestSearchCommandRejectsShortQuery(t *testing.T) {
	useWorkspace(t)

	cmd := searchCmd()
	cmd.SetOut(&bytes.Buffer{})
	if err := cmd.RunE(cmd, []string{"x"}); err == nil {
		t.Error("expected short query error")
	}
}
