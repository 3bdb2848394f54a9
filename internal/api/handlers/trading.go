package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/mission-control/internal/trading"
)

// PriceLog produces the latest price log snapshot.
type PriceLog interface {
	Snapshot(ctx context.Context) trading.Snapshot
}

// TradingHandler serves the trading panel.
type TradingHandler struct {
	prices PriceLog
	logger *slog.Logger
}

// NewTradingHandler creates a new trading handler.
func NewTradingHandler(prices PriceLog, logger *slog.Logger) *TradingHandler {
	return &TradingHandler{
		prices: prices,
		logger: logger,
	}
}

// Get handles GET /api/trading.
func (h *TradingHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.prices.Snapshot(r.Context()))
}
