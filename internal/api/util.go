package api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/org/credvault/internal/crypto"
	"github.com/org/credvault/internal/page"
	"github.com/org/credvault/internal/store"
	"github.com/org/credvault/internal/vault"
)

func newUUID() string {
	b := make([]byte, 16)
	rand.Read(b) //nolint:errcheck
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

// writeFailure maps the vault error taxonomy to HTTP statuses. Injection
// failures are mapped separately so the UI can distinguish "no form on
// this page" from "could not load credentials".
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vault.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, vault.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, vault.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vault.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, vault.ErrSourceUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, crypto.ErrDecryption):
		// Cache unusable under the current session key: the client
		// should refresh and retry.
		writeError(w, http.StatusConflict, "credential unusable, refresh required")
	case errors.Is(err, page.ErrNoLoginForm):
		writeError(w, http.StatusUnprocessableEntity, "no login form on this page")
	case errors.Is(err, store.ErrStorage):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
