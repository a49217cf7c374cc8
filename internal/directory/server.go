package directory

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/org/credvault/internal/access"
	"github.com/org/credvault/pkg/models"
)

// Server is the directory backend's HTTP surface. It answers identity
// validation and pre-filtered credential listings; vault agents are the
// only intended callers.
type Server struct {
	store Store
}

func NewServer(store Store) *Server {
	return &Server{store: store}
}

// BuildRouter assembles the directory API.
func (s *Server) BuildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(requestLogger)

	r.Get("/api/health", s.HealthHandler)
	r.Post("/api/validate-user", s.ValidateUserHandler)
	r.Get("/api/credentials", s.CredentialsHandler)
	return r
}

// corsMiddleware answers preflight requests and marks responses for the
// browser-resident agents calling across origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{"status": "ok"})
}

// ValidateUserHandler checks a user id and password against the directory.
// The password never appears in the response or the logs.
func (s *Server) ValidateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	if req.UserID == "" || req.Password == "" {
		respond(w, http.StatusBadRequest, map[string]any{"success": false, "error": "userId and password are required"})
		return
	}

	users, err := s.store.Users(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("loading users")
		respond(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "directory unavailable"})
		return
	}
	for _, u := range users {
		if u.UserID == req.UserID && u.Password == req.Password {
			respond(w, http.StatusOK, map[string]any{"success": true, "user": u.Identity()})
			return
		}
	}
	respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "invalid credentials"})
}

// CredentialsHandler returns the requester's authorized credential subset.
// Authorization is resolved here so agents never see rows they cannot use.
func (s *Server) CredentialsHandler(w http.ResponseWriter, r *http.Request) {
	req := models.Requester{
		UserID:   r.URL.Query().Get("userId"),
		Role:     models.ParseRole(r.URL.Query().Get("role")),
		FullName: r.URL.Query().Get("fullName"),
	}
	if req.UserID == "" {
		respond(w, http.StatusBadRequest, map[string]any{"success": false, "error": "userId is required"})
		return
	}

	creds, err := s.store.Credentials(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("loading credentials")
		respond(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "directory unavailable"})
		return
	}
	grants, err := s.store.Permissions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("loading permissions")
		respond(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "directory unavailable"})
		return
	}

	authorized := access.Resolve(creds, grants, req)
	respond(w, http.StatusOK, map[string]any{"success": true, "credentials": authorized})
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}
