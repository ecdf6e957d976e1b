package api

import (
	"context"
	"net/http"
	"time"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/logger"
)

const readyTimeout = 3 * time.Second

// handleHealth is the liveness probe; it always answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the storage backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Gateway.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("readiness check failed - %s backend: %v", s.Gateway.Backend(), err)
		handleError(w, r, errors.NewUnavailableError(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready", "backend": s.Gateway.Backend()})
}
