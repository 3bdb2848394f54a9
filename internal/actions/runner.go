// Package actions runs the whitelisted operator commands exposed on the
// dashboard. Commands are executed directly from their argv, never through
// a shell.
package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/narvanalabs/mission-control/pkg/logger"
)

// DefaultTimeout bounds a run when the runner is given no timeout.
const DefaultTimeout = 2 * time.Minute

var (
	// ErrUnknownAction is returned for names outside the whitelist.
	ErrUnknownAction = errors.New("unknown action")
	// ErrActionFailed wraps a command that exited non-zero, timed out or
	// could not start.
	ErrActionFailed = errors.New("action failed")
)

// Result is the outcome of one run.
type Result struct {
	Action   string        `json:"action"`
	RunID    string        `json:"runId"`
	OK       bool          `json:"ok"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// Runner executes actions from a fixed whitelist.
type Runner struct {
	commands map[string][]string
	timeout  time.Duration
	logger   *slog.Logger

	inflight sync.WaitGroup
}

// NewRunner creates a runner. commands maps an action name to its argv.
func NewRunner(commands map[string][]string, timeout time.Duration, log *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		commands: commands,
		timeout:  timeout,
		logger:   log.With("component", "actions"),
	}
}

// Names returns the whitelisted action names in sorted order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run executes the named action. For a known action the result is always
// non-nil; on failure the returned error wraps ErrActionFailed and the
// result carries whatever output was captured.
func (r *Runner) Run(ctx context.Context, name string) (*Result, error) {
	argv, ok := r.commands[name]
	if !ok || len(argv) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	r.inflight.Add(1)
	defer r.inflight.Done()

	runID := uuid.New().String()
	ctx = logger.ContextWithActionRunID(ctx, runID)
	log := (&logger.Logger{Logger: r.logger}).WithContext(ctx).With("action", name)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log.Info("running action", "argv", argv)
	start := time.Now()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Action:   name,
		RunID:    runID,
		OK:       err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		result.Error = err.Error()
		log.Warn("action failed",
			"exit_code", result.ExitCode,
			"duration", result.Duration,
			"error", err,
		)
		return result, fmt.Errorf("%w: %s: %v", ErrActionFailed, name, err)
	}

	log.Info("action completed", "duration", result.Duration)
	return result, nil
}

// Name identifies the runner during shutdown.
func (r *Runner) Name() string {
	return "actions"
}

// Shutdown waits for in-flight runs to finish or ctx to end. Runs already
// started keep their own timeout.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for actions: %w", ctx.Err())
	}
}
