package handlers

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/narvanalabs/mission-control/internal/api/errors"
	"github.com/narvanalabs/mission-control/internal/logfeed"
)

// LogSource reads the daily structured logs.
type LogSource interface {
	Today() string
	Tail(ctx context.Context, date string, limit int) logfeed.Report
	Usage(ctx context.Context) logfeed.UsageSummary
}

// LogHandler serves the log feed and usage panels.
type LogHandler struct {
	source LogSource
	limits Limits
	logger *slog.Logger
}

// NewLogHandler creates a new log handler.
func NewLogHandler(source LogSource, limits Limits, logger *slog.Logger) *LogHandler {
	return &LogHandler{
		source: source,
		limits: limits,
		logger: logger,
	}
}

// Get handles GET /api/logs?limit=&date=. The date defaults to today and
// must be YYYY-MM-DD.
func (h *LogHandler) Get(w http.ResponseWriter, r *http.Request) {
	var errs apierrors.ValidationErrors

	limit := parseLimit(r, h.limits, &errs)

	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.source.Today()
	} else if err := logfeed.ValidateDate(date); err != nil {
		errs.Add("date", err.Error())
	}

	if errs.HasErrors() {
		WriteError(w, r, errs.ToAPIError())
		return
	}

	WriteJSON(w, http.StatusOK, h.source.Tail(r.Context(), date, limit))
}

// Usage handles GET /api/usage.
func (h *LogHandler) Usage(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.source.Usage(r.Context()))
}
