package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/mission-control/internal/cron"
)

// CronReporter lists scheduled jobs.
type CronReporter interface {
	Report(ctx context.Context) cron.Report
}

// CronHandler serves the cron panel.
type CronHandler struct {
	jobs   CronReporter
	logger *slog.Logger
}

// NewCronHandler creates a new cron handler.
func NewCronHandler(jobs CronReporter, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// List handles GET /api/cron.
func (h *CronHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.jobs.Report(r.Context()))
}
