package api

import (
	"net/http"

	"github.com/org/credvault/internal/vault"
)

// LoginHandler handles POST /v1/auth/login.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.vault.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}

	// The session token stays inside the agent; only identity fields go
	// back to the UI.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"user_id":   session.UserID,
			"full_name": session.FullName,
			"email":     session.Email,
			"role":      session.Role,
		},
	})
}

// LogoutHandler handles POST /v1/auth/logout.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.vault.Logout(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// StatusHandler handles GET /v1/auth/status. Unauthenticated is a valid
// answer here, not an error.
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.vault.Session(r.Context())
	if err != nil {
		if err == vault.ErrUnauthenticated {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "authenticated": false})
			return
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"authenticated": true,
		"user": map[string]any{
			"user_id":   session.UserID,
			"full_name": session.FullName,
			"role":      session.Role,
		},
	})
}
