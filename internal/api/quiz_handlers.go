package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/services"
)

type createSessionRequest struct {
	ChapterID int64 `json:"chapterId"`
	// Start defaults to true.
	Start *bool `json:"start"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.QuizService.ListSessions(r.Context()))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.ChapterID <= 0 {
		handleError(w, r, errors.NewValidationError("chapterId", "is required"))
		return
	}
	start := req.Start == nil || *req.Start

	view, err := s.QuizService.CreateSession(r.Context(), req.ChapterID, start)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.QuizService.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.QuizService.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionAction applies start, pause, resume, reset, answer, next,
// previous, goto or exit. answer and goto read their argument from the body.
func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	var in services.ActionInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}
	action := services.Action(chi.URLParam(r, "action"))

	view, err := s.QuizService.Apply(r.Context(), chi.URLParam(r, "id"), action, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.QuizService.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleRetryWrong(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.QuizService.RetryWrong(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	status := http.StatusCreated
	if outcome.NoWrongAnswers {
		status = http.StatusOK
	}
	writeJSON(w, r, status, outcome)
}
