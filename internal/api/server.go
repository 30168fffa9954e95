// Package api exposes the gateway's HTTP surface: ask a question, read a
// session's history, reset a session. Answers come back with citations
// already parsed so thin clients only render.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/genie-mentor/genied/internal/conversation"
	"github.com/genie-mentor/genied/internal/mentor"
)

// Conversations is the slice of the mentor coordinator the API uses.
type Conversations interface {
	Ask(ctx context.Context, sessionID, question string) (mentor.Result, error)
	History(ctx context.Context, sessionID string) (conversation.State, error)
	Reset(ctx context.Context, sessionID string) error
}

type Server struct {
	router *chi.Mux
	conv   Conversations
	port   int
}

func NewServer(port int, apiToken string, conv Conversations) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		conv:   conv,
		port:   port,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/genie/status", s.status)

	router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(BearerAuth(apiToken))
		r.Post("/{sessionID}/questions", s.ask)
		r.Get("/{sessionID}/history", s.history)
		r.Delete("/{sessionID}", s.reset)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "genie-mentor",
		"status": "ready",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// BearerAuth guards a route subtree with a static bearer token. An empty
// configured token disables the check, which is how local dev runs.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
