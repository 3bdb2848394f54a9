package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/mission-control/internal/agents"
)

// Roster reports agent install state and memory database counts.
type Roster interface {
	Statuses(ctx context.Context) ([]agents.Status, error)
	Memory(ctx context.Context) ([]agents.MemoryStats, error)
}

// AgentHandler serves the agents and memory panels.
type AgentHandler struct {
	roster Roster
	logger *slog.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(roster Roster, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{
		roster: roster,
		logger: logger,
	}
}

// List handles GET /api/agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.roster.Statuses(r.Context())
	if err != nil {
		h.logger.Error("failed to check agents", "error", err)
		WriteInternalError(w, r, "Failed to check agents")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"agents": statuses})
}

// Memory handles GET /api/memory.
func (h *AgentHandler) Memory(w http.ResponseWriter, r *http.Request) {
	stats, err := h.roster.Memory(r.Context())
	if err != nil {
		h.logger.Error("failed to read memory databases", "error", err)
		WriteInternalError(w, r, "Failed to read memory databases")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"agents": stats})
}
