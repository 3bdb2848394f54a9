package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestRunner(timeout time.Duration) *Runner {
	return NewRunner(map[string][]string{
		"hello":   {"echo", "  hello world  "},
		"fail":    {"sh", "-c", "echo partial; echo oops >&2; exit 3"},
		"slow":    {"sleep", "5"},
		"missing": {"/nonexistent/mission-control-binary"},
	}, timeout, nil)
}

func TestRunSuccess(t *testing.T) {
	result, err := newTestRunner(time.Second*5).Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.OK || result.Action != "hello" || result.ExitCode != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Stdout != "hello world" {
		t.Errorf("stdout must be trimmed, got %q", result.Stdout)
	}
	if _, err := uuid.Parse(result.RunID); err != nil {
		t.Errorf("runId is not a uuid: %q", result.RunID)
	}
}

func TestRunUnknownAction(t *testing.T) {
	result, err := newTestRunner(time.Second).Run(context.Background(), "rm -rf /")
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	result, err := newTestRunner(5*time.Second).Run(context.Background(), "fail")
	if !errors.Is(err, ErrActionFailed) {
		t.Fatalf("expected ErrActionFailed, got %v", err)
	}
	if result == nil || result.OK {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if result.ExitCode != 3 || result.Stdout != "partial" || result.Stderr != "oops" {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Error == "" {
		t.Error("expected error text")
	}
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	result, err := newTestRunner(100*time.Millisecond).Run(context.Background(), "slow")
	if !errors.Is(err, ErrActionFailed) {
		t.Fatalf("expected ErrActionFailed, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("timeout was not enforced")
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Errorf("expected timeout in error, got %q", result.Error)
	}
}

func TestRunMissingBinary(t *testing.T) {
	result, err := newTestRunner(time.Second).Run(context.Background(), "missing")
	if !errors.Is(err, ErrActionFailed) {
		t.Fatalf("expected ErrActionFailed, got %v", err)
	}
	if result.ExitCode != -1 || result.OK {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestNames(t *testing.T) {
	got := newTestRunner(time.Second).Names()
	want := []string{"fail", "hello", "missing", "slow"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestShutdownWaitsForInflightRuns(t *testing.T) {
	runner := NewRunner(map[string][]string{"nap": {"sleep", "0.3"}}, time.Second*5, nil)

	finished := make(chan struct{})
	go func() {
		runner.Run(context.Background(), "nap")
		close(finished)
	}()
	time.Sleep(50 * time.Millisecond)

	if err := runner.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-finished:
	default:
		t.Error("Shutdown returned before the run finished")
	}
}

func TestShutdownHonorsDeadline(t *testing.T) {
	runner := NewRunner(map[string][]string{"nap": {"sleep", "2"}}, time.Second*5, nil)
	go runner.Run(context.Background(), "nap")
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := runner.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}
