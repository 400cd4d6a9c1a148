package api

import (
	"net/http"
	"strconv"

	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/models"
	"github.com/MediSynth-io/casetracker/internal/tracker"
	"github.com/go-chi/chi/v5"
)

// caller returns the authenticated user. Routes using it sit behind
// auth.AuthMiddleware, so a missing user only happens on misconfigured routes.
func caller(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w)
	}
	return user, ok
}

func testCaseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidation(w, models.NewValidationError("id", "value is not a valid integer"))
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int, verr *models.ValidationError) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(name, "value is not a valid integer")
		return def
	}
	return v
}

func (api *Api) CreateTestCaseHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var in models.TestCaseInput
	if !api.decodeJSON(w, r, &in) {
		return
	}

	tc, err := api.tracker.CreateTestCase(r.Context(), user, in)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tc)
}

func (api *Api) ListTestCasesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var verr models.ValidationError
	skip := queryInt(r, "skip", tracker.DefaultListSkip, &verr)
	limit := queryInt(r, "limit", tracker.DefaultListLimit, &verr)
	if len(verr.Fields) > 0 {
		writeValidation(w, &verr)
		return
	}

	cases, err := api.tracker.ListTestCases(r.Context(), user, skip, limit)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cases)
}

func (api *Api) GetTestCaseHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := testCaseID(w, r)
	if !ok {
		return
	}

	tc, err := api.tracker.GetTestCase(r.Context(), user, id)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tc)
}

func (api *Api) UpdateTestCaseHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := testCaseID(w, r)
	if !ok {
		return
	}

	var in models.TestCaseInput
	if !api.decodeJSON(w, r, &in) {
		return
	}

	tc, err := api.tracker.UpdateTestCase(r.Context(), user, id, in)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tc)
}

func (api *Api) DeleteTestCaseHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := testCaseID(w, r)
	if !ok {
		return
	}

	if err := api.tracker.DeleteTestCase(r.Context(), user, id); err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Test case deleted"})
}

func (api *Api) ExportTestCasesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	export, err := api.tracker.ExportTestCases(r.Context(), user)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, export)
}
