// Package cron reports the scheduled jobs configured for the local agent
// runtime, plus the synthetic heartbeat job declared in its main config.
package cron

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/jsonc"
)

// isoLayout matches the millisecond UTC timestamps the dashboard renders.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Job is one row of the cron panel.
type Job struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Schedule   string  `json:"schedule"`
	NextRun    *string `json:"nextRun"`
	LastRun    *string `json:"lastRun"`
	LastStatus *string `json:"lastStatus"`
	Enabled    bool    `json:"enabled"`
	Command    string  `json:"command,omitempty"`
}

// Report is the cron panel payload.
type Report struct {
	Jobs  []Job  `json:"jobs"`
	Error string `json:"error,omitempty"`
}

// scheduleExpr accepts either a bare expression string or an object with
// an "expr" field.
type scheduleExpr string

func (s *scheduleExpr) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var expr string
		if err := json.Unmarshal(data, &expr); err != nil {
			return err
		}
		*s = scheduleExpr(expr)
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Expr string `json:"expr"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*s = scheduleExpr(obj.Expr)
	}
	return nil
}

type jobState struct {
	NextRunAtMs int64  `json:"nextRunAtMs"`
	LastRunAtMs int64  `json:"lastRunAtMs"`
	LastStatus  string `json:"lastStatus"`
}

type jobEntry struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Label     string       `json:"label"`
	Schedule  scheduleExpr `json:"schedule"`
	Cron      string       `json:"cron"`
	State     *jobState    `json:"state"`
	NextRunAt string       `json:"nextRunAt"`
	LastRunAt string       `json:"lastRunAt"`
	Enabled   *bool        `json:"enabled"`
	Command   string       `json:"command"`
	Prompt    string       `json:"prompt"`
}

type jobsFile struct {
	Jobs []jobEntry `json:"jobs"`
}

type runtimeConfig struct {
	Agents struct {
		Defaults struct {
			Heartbeat *struct {
				Every string `json:"every"`
			} `json:"heartbeat"`
		} `json:"defaults"`
	} `json:"agents"`
}

// Source reads the jobs file and the runtime config.
type Source struct {
	jobsPath   string
	configPath string
	now        func() time.Time
	logger     *slog.Logger
}

// NewSource creates a cron source. Either path may point at a missing
// file.
func NewSource(jobsPath, configPath string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		jobsPath:   jobsPath,
		configPath: configPath,
		now:        time.Now,
		logger:     logger.With("component", "cron"),
	}
}

// WithClock returns a copy of the source that uses now for computed run
// times.
func (s *Source) WithClock(now func() time.Time) *Source {
	cp := *s
	cp.now = now
	return &cp
}

// Report lists the configured jobs followed by the heartbeat job when one
// is configured. A missing jobs file is not an error.
func (s *Source) Report(ctx context.Context) Report {
	if err := ctx.Err(); err != nil {
		return Report{Jobs: []Job{}, Error: err.Error()}
	}

	now := s.now()
	jobs := []Job{}

	entries, err := readJSONC[jobsFile](s.jobsPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("no cron jobs file", "path", s.jobsPath)
	case err != nil:
		s.logger.Warn("cron jobs file unreadable", "path", s.jobsPath, "error", err)
	default:
		for _, entry := range entries.Jobs {
			jobs = append(jobs, toJob(entry, now))
		}
	}

	cfg, err := readJSONC[runtimeConfig](s.configPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("runtime config unreadable", "path", s.configPath, "error", err)
	}
	if err == nil && cfg.Agents.Defaults.Heartbeat != nil {
		jobs = append(jobs, heartbeatJob(cfg.Agents.Defaults.Heartbeat.Every, now))
	}

	return Report{Jobs: jobs}
}

func readJSONC[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &v); err != nil {
		return v, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

func toJob(entry jobEntry, now time.Time) Job {
	expr := string(entry.Schedule)
	if expr == "" {
		expr = entry.Cron
	}
	schedule := ParseSchedule(expr, now)

	job := Job{
		ID:       firstNonEmpty(entry.ID, entry.Name),
		Name:     firstNonEmpty(entry.Name, entry.Label, "Unnamed Job"),
		Schedule: schedule.Description,
		Enabled:  entry.Enabled == nil || *entry.Enabled,
		Command:  firstNonEmpty(entry.Command, entry.Prompt),
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	switch {
	case entry.State != nil && entry.State.NextRunAtMs > 0:
		job.NextRun = formatMillis(entry.State.NextRunAtMs)
	case entry.NextRunAt != "":
		job.NextRun = &entry.NextRunAt
	case schedule.NextRun != nil:
		job.NextRun = formatTime(*schedule.NextRun)
	}

	switch {
	case entry.State != nil && entry.State.LastRunAtMs > 0:
		job.LastRun = formatMillis(entry.State.LastRunAtMs)
	case entry.LastRunAt != "":
		job.LastRun = &entry.LastRunAt
	}

	if entry.State != nil && entry.State.LastStatus != "" {
		status := entry.State.LastStatus
		job.LastStatus = &status
	}

	return job
}

func heartbeatJob(every string, now time.Time) Job {
	if every == "" {
		every = "30m"
	}
	return Job{
		ID:       "heartbeat",
		Name:     "Heartbeat Check",
		Schedule: "Every " + every,
		NextRun:  formatTime(now.Add(ParseInterval(every))),
		Enabled:  true,
		Command:  "Heartbeat poll",
	}
}

func formatMillis(ms int64) *string {
	return formatTime(time.UnixMilli(ms))
}

func formatTime(t time.Time) *string {
	s := t.UTC().Format(isoLayout)
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
