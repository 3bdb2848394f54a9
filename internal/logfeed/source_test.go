package logfeed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeGzip(t *testing.T, dir, name, content string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func infoLines(n int, tag string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `{"time":"2024-05-01T10:%02d:00Z","1":"%s %d","_meta":{"logLevelName":"INFO"}}`+"\n", i, tag, i)
	}
	return b.String()
}

func TestAggregateMostRecentFirst(t *testing.T) {
	content := infoLines(10, "msg")
	entries := NewParser(fixedNow).Aggregate(content, 3)

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"msg 9", "msg 8", "msg 7"} {
		if entries[i].Message != want {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Message, want)
		}
	}
}

func TestAggregateSkipsInvalidWithoutCountingThem(t *testing.T) {
	content := infoLines(2, "ok") +
		"not json\n" +
		`{"1":"noise","_meta":{"logLevelName":"DEBUG"}}` + "\n" +
		"{broken\n"

	entries := NewParser(fixedNow).Aggregate(content, 2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "ok 1" || entries[1].Message != "ok 0" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestAggregateZeroLimit(t *testing.T) {
	entries := NewParser(fixedNow).Aggregate(infoLines(3, "x"), 0)
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestSourceOpenExactDate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "openclaw-2024-05-01.log", infoLines(1, "first"))
	writeFile(t, dir, "openclaw-2024-05-02.log", infoLines(1, "second"))

	file, err := NewSource(dir, nil).Open(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if file.Name != "openclaw-2024-05-01.log" {
		t.Errorf("unexpected file %q", file.Name)
	}
}

func TestSourceFallsBackToLatest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "openclaw-2024-04-09.log", infoLines(1, "older"))
	writeFile(t, dir, "openclaw-2024-04-10.log", infoLines(1, "newer"))
	writeFile(t, dir, "other-2024-12-31.log", "ignored")
	writeFile(t, dir, "openclaw-notes.txt", "ignored")

	report := NewSource(dir, nil).Tail(context.Background(), "2024-05-01", 10)
	if report.File != "openclaw-2024-04-10.log" {
		t.Errorf("expected latest zero-padded file, got %q", report.File)
	}
	if len(report.Entries) != 1 || report.Entries[0].Message != "newer 0" {
		t.Errorf("unexpected entries %+v", report.Entries)
	}
	if report.Message != "" {
		t.Errorf("unexpected advisory %q", report.Message)
	}
}

func TestSourceReadsGzip(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, dir, "openclaw-2024-05-01.log.gz", infoLines(4, "zipped"))

	report := NewSource(dir, nil).Tail(context.Background(), "2024-05-01", 2)
	if report.File != "openclaw-2024-05-01.log.gz" {
		t.Errorf("unexpected file %q", report.File)
	}
	if len(report.Entries) != 2 || report.Entries[0].Message != "zipped 3" {
		t.Errorf("unexpected entries %+v", report.Entries)
	}
}

func TestSourceNoFiles(t *testing.T) {
	report := NewSource(t.TempDir(), nil).Tail(context.Background(), "2024-05-01", 10)
	if len(report.Entries) != 0 || report.Message != "No log files found" {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestSourceDirectoryMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	report := NewSource(dir, nil).Tail(context.Background(), "2024-05-01", 10)
	if report.Entries == nil || len(report.Entries) != 0 {
		t.Errorf("expected empty entries, got %#v", report.Entries)
	}
	if report.Message != "Log directory not accessible" {
		t.Errorf("unexpected message %q", report.Message)
	}
}

func TestValidateDate(t *testing.T) {
	for _, ok := range []string{"2024-01-01", "1999-12-31"} {
		if err := ValidateDate(ok); err != nil {
			t.Errorf("ValidateDate(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "2024-1-1", "../../etc/passwd", "2024-13-01", "20240101"} {
		if err := ValidateDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ValidateDate(%q) = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestUsageTotals(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local) }
	content := strings.Join([]string{
		`{"usage":{"inputTokens":100,"outputTokens":20,"totalCostUsd":0.5}}`,
		`not json`,
		`{"usage":{"inputTokens":50,"totalCostUsd":0.25}}`,
		`{"1":"no usage here"}`,
	}, "\n")
	writeFile(t, dir, "openclaw-2024-05-01.log", content)

	summary := NewSource(dir, nil).WithClock(now).Usage(context.Background())
	if !summary.Available {
		t.Fatal("expected usage to be available")
	}
	if summary.InputTokens != 150 || summary.OutputTokens != 20 {
		t.Errorf("unexpected token totals %+v", summary)
	}
	if summary.TotalCostUSD != 0.75 {
		t.Errorf("unexpected cost %v", summary.TotalCostUSD)
	}
}

func TestUsageMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "openclaw-2020-01-01.log", `{"usage":{"inputTokens":1}}`)
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local) }

	summary := NewSource(dir, nil).WithClock(now).Usage(context.Background())
	if summary.Available {
		t.Error("usage must not fall back to other days")
	}
	if summary.Error == "" {
		t.Error("expected error text")
	}
}
