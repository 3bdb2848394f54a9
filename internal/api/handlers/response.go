// Package handlers serves the dashboard panels over HTTP.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/narvanalabs/mission-control/internal/api/errors"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// WriteError writes err tagged with the request ID.
func WriteError(w http.ResponseWriter, r *http.Request, err *apierrors.APIError) {
	apierrors.WriteErrorWithRequestID(w, err, middleware.GetReqID(r.Context()))
}

// WriteBadRequest writes a 400 validation error.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, apierrors.NewValidationError(message))
}

// WriteNotFound writes a 404 response.
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, apierrors.NewNotFoundError("No route for "+r.Method+" "+r.URL.Path))
}

// WriteInternalError writes a 500 response.
func WriteInternalError(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, apierrors.NewInternalError(message))
}

// Limits bounds a limit query parameter.
type Limits struct {
	Default int
	Max     int
}

// parseLimit reads the "limit" query parameter. An absent value yields the
// default, values above the maximum are clamped, and anything that is not a
// positive integer is recorded in errs.
func parseLimit(r *http.Request, limits Limits, errs *apierrors.ValidationErrors) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return limits.Default
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		errs.Add("limit", "limit must be a positive integer")
		return 0
	}
	if limits.Max > 0 && n > limits.Max {
		return limits.Max
	}
	return n
}
