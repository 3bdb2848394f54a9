package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/mission-control/internal/attestation"
)

// AttestationReporter produces the attestation chain report.
type AttestationReporter interface {
	Report(ctx context.Context) attestation.ChainReport
}

// AttestationHandler serves the attestation integrity panel.
type AttestationHandler struct {
	ledger AttestationReporter
	logger *slog.Logger
}

// NewAttestationHandler creates a new attestation handler.
func NewAttestationHandler(ledger AttestationReporter, logger *slog.Logger) *AttestationHandler {
	return &AttestationHandler{
		ledger: ledger,
		logger: logger,
	}
}

// Get handles GET /api/clawdsure. An unreadable ledger still answers 200
// with an unhealthy report carrying the error.
func (h *AttestationHandler) Get(w http.ResponseWriter, r *http.Request) {
	report := h.ledger.Report(r.Context())
	if report.Error != "" {
		h.logger.Warn("attestation report degraded", "error", report.Error)
	}
	WriteJSON(w, http.StatusOK, report)
}
