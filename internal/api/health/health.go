// Package health reports which local data sources the dashboard can read.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the source is present.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the source is missing or unreadable. The
	// dashboard still answers, with empty panels.
	StatusDegraded Status = "degraded"
)

// ComponentStatus represents the health status of a single source.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Probe checks one data source.
type Probe interface {
	Name() string
	Check(ctx context.Context) ComponentStatus
}

// PathProbe reports a file or directory as healthy when it can be stat-ed.
type PathProbe struct {
	Label string
	Path  string
	// Dir requires the path to be a directory.
	Dir bool
}

// Name implements Probe.
func (p PathProbe) Name() string {
	return p.Label
}

// Check implements Probe.
func (p PathProbe) Check(ctx context.Context) ComponentStatus {
	if err := ctx.Err(); err != nil {
		return ComponentStatus{Status: StatusDegraded, Path: p.Path, Message: err.Error()}
	}
	info, err := os.Stat(p.Path)
	if err != nil {
		return ComponentStatus{Status: StatusDegraded, Path: p.Path, Message: err.Error()}
	}
	if p.Dir && !info.IsDir() {
		return ComponentStatus{Status: StatusDegraded, Path: p.Path, Message: "not a directory"}
	}
	return ComponentStatus{Status: StatusHealthy, Path: p.Path, Message: "available"}
}

// Checker runs every probe and aggregates the result.
type Checker struct {
	probes    []Probe
	startTime time.Time
	version   string
	timeout   time.Duration
	mu        sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker(version string, probes ...Probe) *Checker {
	return &Checker{
		probes:    probes,
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components := make(map[string]ComponentStatus, len(c.probes))
	overallStatus := StatusHealthy
	for _, p := range c.probes {
		status := p.Check(checkCtx)
		components[p.Name()] = status
		if status.Status != StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return &Response{
		Status:     overallStatus,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

// Handler returns an HTTP handler for health checks. Missing sources are a
// normal state for a local dashboard, so degraded still answers 200.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
