package agents

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const countQuery = "SELECT (SELECT count(*) FROM files), (SELECT count(*) FROM chunks)"

// MemoryStats is one row of the memory panel.
type MemoryStats struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
	Files     int64  `json:"files"`
	Chunks    int64  `json:"chunks"`
	Error     string `json:"error,omitempty"`
}

// Memory counts indexed files and chunks in every agent's memory database.
// Databases are opened read-only and inspected concurrently; results follow
// roster order. A missing or unreadable database yields a row with
// Available false rather than an error.
func (r *Roster) Memory(ctx context.Context) ([]MemoryStats, error) {
	stats := make([]MemoryStats, len(r.agents))

	g, ctx := errgroup.WithContext(ctx)
	for i, agent := range r.agents {
		i, agent := i, agent
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats[i] = r.memoryStats(ctx, agent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *Roster) memoryStats(ctx context.Context, agent Agent) MemoryStats {
	s := MemoryStats{ID: agent.ID, Label: agent.Label()}
	path := r.MemoryPath(agent.ID)

	if _, err := os.Stat(path); err != nil {
		s.Error = "Missing database: " + err.Error()
		return s
	}

	files, chunks, err := countMemory(ctx, path)
	if err != nil {
		r.logger.Warn("memory database unreadable", "agent_id", agent.ID, "path", path, "error", err)
		s.Error = "SQLite error: " + err.Error()
		return s
	}

	s.Available, s.Files, s.Chunks = true, files, chunks
	return s
}

func countMemory(ctx context.Context, path string) (files, chunks int64, err error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return 0, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer conn.Close()
	conn.SetInterrupt(ctx.Done())

	err = sqlitex.Execute(conn, countQuery, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			files = stmt.ColumnInt64(0)
			chunks = stmt.ColumnInt64(1)
			return nil
		},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("counting memory: %w", err)
	}
	return files, chunks, nil
}
