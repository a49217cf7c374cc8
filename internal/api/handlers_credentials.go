package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/org/credvault/internal/crypto"
)

// CredentialsHandler handles GET /v1/credentials[?url=...]. Without a url
// it returns the full safe projection; with one, only page matches.
func (s *Server) CredentialsHandler(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")

	var err error
	var safe any
	if pageURL == "" {
		safe, err = s.vault.List(r.Context())
	} else {
		safe, err = s.vault.ListForPage(r.Context(), pageURL)
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "credentials": safe})
}

// RefreshHandler handles POST /v1/credentials/refresh.
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	count, err := s.vault.Refresh(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	cacheFillsTotal.Inc()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

// RevealHandler handles POST /v1/credentials/{id}/reveal: the use-one
// flow, invoked only on explicit user selection.
func (s *Server) RevealHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	values, err := s.vault.Reveal(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	revealsTotal.Inc()

	password := string(values.Secret)
	crypto.Wipe(values.Secret)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"credential": map[string]any{
			"username": values.Username,
			"password": password,
		},
	})
}

// AccessLogHandler handles GET /v1/sys/access-log.
func (s *Server) AccessLogHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": s.access.Entries(),
	})
}
