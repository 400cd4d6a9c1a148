package api

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/models"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (api *Api) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if !api.decodeJSON(w, r, &reg) {
		return
	}

	user, err := api.tracker.Register(r.Context(), reg)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// LoginHandler accepts the credentials as a form (the OAuth2 password flow
// used by the web UI) or as a JSON object.
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	creds, ok := api.readCredentials(w, r)
	if !ok {
		return
	}

	var verr models.ValidationError
	if creds.Username == "" {
		verr.Add("username", "field required")
	}
	if creds.Password == "" {
		verr.Add("password", "field required")
	}
	if len(verr.Fields) > 0 {
		writeValidation(w, &verr)
		return
	}

	token, err := api.tracker.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		api.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, token)
}

func (api *Api) readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid request body")
			return creds, false
		}
		return creds, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid request body")
			return creds, false
		}
	} else if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return creds, false
	}

	creds.Username = r.PostFormValue("username")
	creds.Password = r.PostFormValue("password")
	return creds, true
}

func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		auth.Unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
