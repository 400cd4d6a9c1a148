package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/MediSynth-io/casetracker/internal/tracker"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeValidation(w http.ResponseWriter, verr *models.ValidationError) {
	writeDetail(w, http.StatusUnprocessableEntity, verr.Fields)
}

// writeError maps service errors to HTTP responses. Unknown errors are
// logged and reported as a generic 500.
func (api *Api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr)
	case errors.Is(err, tracker.ErrDuplicateUsername):
		writeDetail(w, http.StatusBadRequest, "Username already registered")
	case errors.Is(err, tracker.ErrDuplicateEmail):
		writeDetail(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, tracker.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
	case errors.Is(err, tracker.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Test case not found")
	case errors.Is(err, tracker.ErrExportDisabled):
		writeDetail(w, http.StatusServiceUnavailable, "Test case export is not configured")
	case auth.KindOf(err) != 0:
		auth.Unauthorized(w)
	default:
		api.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()))
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a JSON request body into v. It writes a 400 response and
// returns false when the body cannot be decoded.
func (api *Api) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.logger.Debug("invalid request body", "error", err, "path", r.URL.Path)
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
