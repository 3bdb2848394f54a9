package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/narvanalabs/mission-control/internal/api/errors"
	"github.com/narvanalabs/mission-control/internal/search"
)

// Searcher runs workspace text search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// SearchHandler serves workspace search.
type SearchHandler struct {
	searcher Searcher
	limits   Limits
	logger   *slog.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher Searcher, limits Limits, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		limits:   limits,
		logger:   logger,
	}
}

// Search handles GET /api/search?q=&limit=. Queries under two characters
// return no results and an explanatory message.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var errs apierrors.ValidationErrors
	limit := parseLimit(r, h.limits, &errs)
	if errs.HasErrors() {
		WriteError(w, r, errs.ToAPIError())
		return
	}

	results, err := h.searcher.Search(r.Context(), r.URL.Query().Get("q"), limit)
	switch {
	case errors.Is(err, search.ErrQueryTooShort):
		WriteJSON(w, http.StatusOK, map[string]any{
			"results": []search.Result{},
			"message": "Query too short",
		})
	case err != nil:
		h.logger.Error("workspace search failed", "error", err)
		WriteInternalError(w, r, "Search failed")
	default:
		WriteJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}
