package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tweet_monitor/internal/domain"
)

// Runner performs one throttled monitor invocation.
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// StatusRecorder persists provider call-status callbacks.
type StatusRecorder interface {
	InsertStatusUpdate(ctx context.Context, update *domain.CallStatusUpdate) error
}

type Server struct {
	runner       Runner
	statuses     StatusRecorder
	triggerToken string
	logger       *slog.Logger
}

// New builds the HTTP surface. An empty triggerToken leaves the trigger open,
// which suits deployments behind a private scheduler.
func New(runner Runner, statuses StatusRecorder, triggerToken string, logger *slog.Logger) *Server {
	return &Server{
		runner:       runner,
		statuses:     statuses,
		triggerToken: triggerToken,
		logger:       logger.With("component", "server"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.With(s.requireToken).Get("/cron/monitor", s.handleTrigger)
	r.With(s.requireToken).Post("/cron/monitor", s.handleTrigger)

	r.Post("/callbacks/twilio/status", s.handleCallStatus)

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.triggerToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.triggerToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
