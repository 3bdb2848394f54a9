// Package agents reports on the configured agent roster: whether each
// agent is installed, and how much its memory database holds.
package agents

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Agent is one roster entry.
type Agent struct {
	ID    string
	Name  string
	Model string
}

// Label is the display name used by the memory panel, e.g. "Clawdine (Opus)".
func (a Agent) Label() string {
	if a.Model == "" {
		return a.Name
	}
	return a.Name + " (" + a.Model + ")"
}

// State is the install state of an agent.
type State string

const (
	StateReady   State = "ready"
	StateMissing State = "missing"
)

// Status is one row of the agents panel.
type Status struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Model  string `json:"model"`
	Status State  `json:"status"`
	Detail string `json:"detail"`
}

// Roster resolves agent files under the runtime directories.
type Roster struct {
	agents    []Agent
	agentsDir string
	memoryDir string
	logger    *slog.Logger
}

// NewRoster creates a roster. agentsDir holds one directory per agent id;
// memoryDir holds one <id>.sqlite file per agent.
func NewRoster(agents []Agent, agentsDir, memoryDir string, logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roster{
		agents:    agents,
		agentsDir: agentsDir,
		memoryDir: memoryDir,
		logger:    logger.With("component", "agents"),
	}
}

// Agents returns the configured roster.
func (r *Roster) Agents() []Agent {
	return r.agents
}

// ConfigDir returns the config directory of an agent.
func (r *Roster) ConfigDir(id string) string {
	return filepath.Join(r.agentsDir, id, "agent")
}

// MemoryPath returns the memory database path of an agent.
func (r *Roster) MemoryPath(id string) string {
	return filepath.Join(r.memoryDir, id+".sqlite")
}

// Statuses checks every agent concurrently. Results follow roster order.
func (r *Roster) Statuses(ctx context.Context) ([]Status, error) {
	statuses := make([]Status, len(r.agents))

	g, ctx := errgroup.WithContext(ctx)
	for i, agent := range r.agents {
		i, agent := i, agent
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			statuses[i] = r.status(agent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *Roster) status(agent Agent) Status {
	s := Status{ID: agent.ID, Name: agent.Name, Model: agent.Model}

	hasConfig := exists(r.ConfigDir(agent.ID))
	hasMemory := exists(r.MemoryPath(agent.ID))

	switch {
	case hasMemory:
		s.Status, s.Detail = StateReady, "Memory DB available"
	case hasConfig:
		s.Status, s.Detail = StateReady, "Config found"
	default:
		s.Status, s.Detail = StateMissing, "Agent config missing"
	}
	return s
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
