package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/narvanalabs/mission-control/internal/actions"
	apierrors "github.com/narvanalabs/mission-control/internal/api/errors"
)

const maxActionBody = 4 << 10

// ActionRunner executes whitelisted operator actions.
type ActionRunner interface {
	Run(ctx context.Context, name string) (*actions.Result, error)
}

// ActionHandler serves operator actions.
type ActionHandler struct {
	runner ActionRunner
	logger *slog.Logger
}

// NewActionHandler creates a new action handler.
func NewActionHandler(runner ActionRunner, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		runner: runner,
		logger: logger,
	}
}

// ActionRequest is the body of POST /api/actions.
type ActionRequest struct {
	Action string `json:"action"`
}

// Run handles POST /api/actions. Unknown actions answer 400; a failed run
// answers 500 with ok false and whatever output was captured.
func (h *ActionHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBody)).Decode(&req); err != nil {
		WriteBadRequest(w, r, "Invalid request body")
		return
	}
	if req.Action == "" {
		var errs apierrors.ValidationErrors
		errs.Add("action", "action is required")
		WriteError(w, r, errs.ToAPIError())
		return
	}

	result, err := h.runner.Run(r.Context(), req.Action)
	switch {
	case errors.Is(err, actions.ErrUnknownAction):
		WriteError(w, r, apierrors.NewUnknownActionError(req.Action))
	case err != nil && result != nil:
		WriteJSON(w, http.StatusInternalServerError, result)
	case err != nil:
		h.logger.Error("action failed", "action", req.Action, "error", err)
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
	default:
		WriteJSON(w, http.StatusOK, result)
	}
}
