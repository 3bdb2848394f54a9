package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/narvanalabs/mission-control/pkg/config"
)

const testJournal = `# Experiments

## Summary

| ID | Hypothesis | Status | Result |
|----|------------|--------|--------|
| EXP-001 | Forecast edge beats market | ✅ Validated | +12% |
| EXP-002 | Overnight drift | 🔬 Active | |

---

## EXP-001: Forecast edge

**Hypothesis:** NOAA highs beat implied odds
`

// newTestServer builds a server over a fake ~/.openclaw tree.
func newTestServer(t *testing.T, withFixtures bool) *Server {
	t.Helper()

	home := t.TempDir()
	cfg := config.Defaults(home)
	cfg.Paths.LogDir = filepath.Join(home, "logs")
	cfg.Actions.Timeout = 2 * time.Second
	cfg.Actions.Commands = map[string][]string{
		"hello": {"echo", "hi"},
		"fail":  {"sh", "-c", "echo oops >&2; exit 2"},
	}

	if withFixtures {
		writeFixture(t, cfg.Paths.AttestationLog,
			"2025-01-15T08:00:00Z | #1 | PASS\n"+
				"2025-01-15T09:00:00Z | #2 | PASS\n"+
				"2025-01-15T11:00:00Z | #4 | PASS\n")
		writeFixture(t, filepath.Join(cfg.Paths.LogDir, "openclaw-2025-01-15.log"),
			`{"time":"2025-01-15T10:00:00Z","0":"{\"subsystem\":\"gateway\"}","1":"started","_meta":{"logLevelName":"INFO"}}`+"\n"+
				`{"time":"2025-01-15T10:01:00Z","1":"connection refused","_meta":{"logLevelName":"ERROR"}}`+"\n")
		writeFixture(t, cfg.Paths.ExperimentsFile, testJournal)
		writeFixture(t, filepath.Join(cfg.Paths.WorkspaceDir, "notes", "plan.md"), "Check the forecast edge today\n")
		writeFixture(t, cfg.Paths.GatewayConfig, `{
  // runtime settings
  "agents": {"defaults": {"heartbeat": {"every": "15m"}}},
}`)
		writeFixture(t, cfg.Paths.PriceLog,
			`{"timestamp":"2025-01-15T10:00:00Z","target_date":"2025-01-16","forecast_high_f":41}`+"\n")
	}

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, NewSources(cfg, discard), discard)
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func do(t *testing.T, s *Server, method, target string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	var decoded map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("%s %s: decoding %q: %v", method, target, rr.Body.String(), err)
	}
	return rr, decoded
}

func TestHealthReportsSources(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		rr, body := do(t, newTestServer(t, true), http.MethodGet, "/health", "")
		if rr.Code != http.StatusOK || body["status"] != "healthy" {
			t.Errorf("got %d %v", rr.Code, body)
		}
		components, _ := body["components"].(map[string]any)
		for _, name := range []string{"attestation_log", "log_dir", "experiments"} {
			if _, ok := components[name]; !ok {
				t.Errorf("component %s missing", name)
			}
		}
	})

	t.Run("nothing present", func(t *testing.T) {
		rr, body := do(t, newTestServer(t, false), http.MethodGet, "/health", "")
		if rr.Code != http.StatusOK || body["status"] != "degraded" {
			t.Errorf("got %d %v", rr.Code, body)
		}
	})
}

func TestClawdSureReportsGaps(t *testing.T) {
	rr, body := do(t, newTestServer(t, true), http.MethodGet, "/api/clawdsure", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["healthy"] != false || body["chainLength"] != float64(4) || body["lastStatus"] != "PASS" {
		t.Errorf("unexpected report %v", body)
	}
	gaps, _ := body["gaps"].([]any)
	if len(gaps) != 1 || gaps[0] != float64(3) {
		t.Errorf("gaps = %v", body["gaps"])
	}
}

func TestClawdSureMissingLedgerIsDegraded(t *testing.T) {
	rr, body := do(t, newTestServer(t, false), http.MethodGet, "/api/clawdsure", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["healthy"] != false || body["error"] == nil {
		t.Errorf("unexpected report %v", body)
	}
}

func TestLogsEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	rr, body := do(t, s, http.MethodGet, "/api/logs?date=2025-01-15&limit=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	entries, _ := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %v", body["entries"])
	}
	newest := entries[0].(map[string]any)
	if newest["message"] != "connection refused" || newest["type"] != "error" {
		t.Errorf("newest entry = %v", newest)
	}
	if body["file"] != "openclaw-2025-01-15.log" {
		t.Errorf("file = %v", body["file"])
	}
}

func TestLogsValidation(t *testing.T) {
	s := newTestServer(t, true)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"non numeric limit", "limit=abc", "limit"},
		{"zero limit", "limit=0", "limit"},
		{"negative limit", "limit=-5", "limit"},
		{"traversal date", "date=../../etc/passwd", "date"},
		{"unpadded date", "date=2025-1-5", "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, s, http.MethodGet, "/api/logs?"+tt.query, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if body["code"] != "VALIDATION_ERROR" {
				t.Errorf("code = %v", body["code"])
			}
			if !strings.Contains(rr.Body.String(), `"field":"`+tt.field+`"`) {
				t.Errorf("field %s not reported: %s", tt.field, rr.Body.String())
			}
		})
	}
}

func TestLogsMissingDirectory(t *testing.T) {
	rr, body := do(t, newTestServer(t, false), http.MethodGet, "/api/logs", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	entries, ok := body["entries"].([]any)
	if !ok || len(entries) != 0 || body["message"] == nil {
		t.Errorf("unexpected report %v", body)
	}
}

func TestExperimentsEndpoint(t *testing.T) {
	rr, body := do(t, newTestServer(t, true), http.MethodGet, "/api/experiments", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["total"] != float64(2) || stats["active"] != float64(1) || stats["validated"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
}

func TestAgentsAndMemoryWithoutState(t *testing.T) {
	s := newTestServer(t, false)

	rr, body := do(t, s, http.MethodGet, "/api/agents", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	list, _ := body["agents"].([]any)
	if len(list) != 2 {
		t.Fatalf("agents = %v", body["agents"])
	}
	if first := list[0].(map[string]any); first["id"] != "main" || first["status"] != "missing" {
		t.Errorf("first agent = %v", first)
	}

	rr, body = do(t, s, http.MethodGet, "/api/memory", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	stats, _ := body["agents"].([]any)
	if len(stats) != 2 || stats[0].(map[string]any)["available"] != false {
		t.Errorf("memory = %v", body["agents"])
	}
}

func TestCronEndpoint(t *testing.T) {
	t.Run("heartbeat from runtime config", func(t *testing.T) {
		rr, body := do(t, newTestServer(t, true), http.MethodGet, "/api/cron", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		jobs, _ := body["jobs"].([]any)
		if len(jobs) != 1 {
			t.Fatalf("jobs = %v", body["jobs"])
		}
		heartbeat := jobs[0].(map[string]any)
		if heartbeat["name"] != "Heartbeat Check" || heartbeat["schedule"] != "Every 15m" {
			t.Errorf("heartbeat = %v", heartbeat)
		}
	})

	t.Run("no files", func(t *testing.T) {
		rr, body := do(t, newTestServer(t, false), http.MethodGet, "/api/cron", "")
		jobs, ok := body["jobs"].([]any)
		if rr.Code != http.StatusOK || !ok || len(jobs) != 0 {
			t.Errorf("got %d %v", rr.Code, body)
		}
	})
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t, true)

	rr, body := do(t, s, http.MethodGet, "/api/search?q=x", "")
	if rr.Code != http.StatusOK || body["message"] != "Query too short" {
		t.Errorf("got %d %v", rr.Code, body)
	}

	rr, body = do(t, s, http.MethodGet, "/api/search?q=forecast", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	results, _ := body["results"].([]any)
	if len(results) != 2 {
		t.Errorf("expected plan.md and experiments.md, got %v", results)
	}
}

func TestTradingEndpoint(t *testing.T) {
	rr, body := do(t, newTestServer(t, true), http.MethodGet, "/api/trading", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	entries, _ := body["entries"].([]any)
	if len(entries) != 1 || body["latestTimestamp"] != "2025-01-15T10:00:00Z" {
		t.Errorf("snapshot = %v", body)
	}
}

func TestActionsEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	t.Run("success", func(t *testing.T) {
		rr, body := do(t, s, http.MethodPost, "/api/actions", `{"action":"hello"}`)
		if rr.Code != http.StatusOK || body["ok"] != true || body["stdout"] != "hi" {
			t.Errorf("got %d %v", rr.Code, body)
		}
		if id, _ := body["runId"].(string); id == "" {
			t.Error("missing runId")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		rr, body := do(t, s, http.MethodPost, "/api/actions", `{"action":"rm-rf"}`)
		if rr.Code != http.StatusBadRequest || body["code"] != "UNKNOWN_ACTION" {
			t.Errorf("got %d %v", rr.Code, body)
		}
	})

	t.Run("failure", func(t *testing.T) {
		rr, body := do(t, s, http.MethodPost, "/api/actions", `{"action":"fail"}`)
		if rr.Code != http.StatusInternalServerError || body["ok"] != false || body["stderr"] != "oops" {
			t.Errorf("got %d %v", rr.Code, body)
		}
	})

	t.Run("bad body", func(t *testing.T) {
		rr, _ := do(t, s, http.MethodPost, "/api/actions", `{"action":`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rr.Code)
		}
	})

	t.Run("missing action", func(t *testing.T) {
		rr, body := do(t, s, http.MethodPost, "/api/actions", `{}`)
		if rr.Code != http.StatusBadRequest || body["code"] != "VALIDATION_ERROR" {
			t.Errorf("got %d %v", rr.Code, body)
		}
	})
}

func TestUnknownRouteIsStructured404(t *testing.T) {
	rr, body := do(t, newTestServer(t, false), http.MethodGet, "/api/nope", "")
	if rr.Code != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Errorf("got %d %v", rr.Code, body)
	}
}
