package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/mission-control/internal/journal"
)

// JournalReporter produces the experiment journal report.
type JournalReporter interface {
	Report(ctx context.Context) journal.Report
}

// ExperimentHandler serves the experiments panel.
type ExperimentHandler struct {
	journal JournalReporter
	logger  *slog.Logger
}

// NewExperimentHandler creates a new experiment handler.
func NewExperimentHandler(j JournalReporter, logger *slog.Logger) *ExperimentHandler {
	return &ExperimentHandler{
		journal: j,
		logger:  logger,
	}
}

// List handles GET /api/experiments.
func (h *ExperimentHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.journal.Report(r.Context()))
}
