package mock

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

type contextKey string

const userContextKey contextKey = "user"

const maxBodySize = 1 << 20

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logging)
	if s.delay > 0 {
		r.Use(s.delayed)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/authenticate", s.requestCode)
	r.Post("/sessions", s.createSession)
	r.Post("/users", s.createUser)

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)

		r.Get("/me", s.me)
		r.Delete("/sessions", s.deleteSession)
		r.Patch("/users/{id}/name", s.updateName)
		r.Get("/organizations", s.listOrganizations)

		r.Route("/organizations/{orgID}/collections", func(r chi.Router) {
			r.Get("/", s.listCollections)
			r.Post("/", s.createCollection)
			r.Get("/{id}", s.getCollection)
			r.Put("/{id}", s.renameCollection)
			r.Delete("/{id}", s.deleteCollection)
		})

		r.Route("/collections/{collectionID}", func(r chi.Router) {
			r.Put("/environments", s.saveEnvironments)
			r.Get("/requests", s.listRequests)
			r.Post("/requests", s.createRequest)
			r.Get("/requests/{id}", s.getRequest)
			r.Put("/requests/{id}", s.updateRequest)
			r.Delete("/requests/{id}", s.deleteRequest)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	return r
}

// bearerAuth rejects requests without a known bearer token.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, ok := s.store.userForToken(token)
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func currentUser(r *http.Request) model.User {
	u, _ := r.Context().Value(userContextKey).(model.User)
	return u
}

func (s *Server) delayed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-t.C:
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
}
